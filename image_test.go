package lirad

import (
	"math"
	"testing"
)

func TestNewImageAllocatesBuffers(t *testing.T) {
	img := NewImage(4, 3, 2, true)
	if len(img.Intensity) != 4*3*2 {
		t.Fatalf("Intensity buffer length = %d, want %d", len(img.Intensity), 4*3*2)
	}
	if len(img.StokesQ) != 4*3*2 || len(img.StokesU) != 4*3*2 {
		t.Fatal("expected Stokes Q/U buffers sized with polarization on")
	}

	plain := NewImage(4, 3, 2, false)
	if plain.StokesQ != nil || plain.StokesU != nil {
		t.Fatal("expected nil Stokes buffers without polarization")
	}
}

func TestImageIndexIsContiguousPerChannel(t *testing.T) {
	img := NewImage(4, 3, 2, false)
	img.Intensity[img.index(1, 2, 3)] = 42
	if img.Intensity[(1*3+2)*4+3] != 42 {
		t.Fatal("index() does not match the documented flat layout")
	}
}

func TestImageValidateRejectsNonPositiveDimensions(t *testing.T) {
	img := &Image{Nx: 0, Ny: 5, NChannels: 1, Distance: 1}
	if err := img.validate(); err == nil {
		t.Fatal("expected error for zero Nx")
	}
}

func TestRotationMatrixIsOrthonormalAtZeroAngles(t *testing.T) {
	img := &Image{}
	m := img.rotationMatrix()
	v := matVec3(m, [3]float64{1, 2, 3})
	if math.Abs(v[0]-1) > 1e-9 || math.Abs(v[1]-2) > 1e-9 || math.Abs(v[2]-3) > 1e-9 {
		t.Errorf("zero-angle rotation should be identity, got %v", v)
	}
}
