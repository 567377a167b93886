package lirad

import (
	"fmt"
	"math"
)

// Image is a synthetic observation descriptor and result buffer (§3,
// §6): a regular pixel grid times a velocity-channel axis. Buffers are
// held as flat []float64 slices indexed [channel*Ny*Nx + row*Nx + col],
// matching the teacher's flat Cell.Ci/Cf convention (framework.go)
// rather than nested slices, since every raytrace worker writes disjoint
// pixel ranges and a flat slice avoids one allocation per row.
type Image struct {
	Nx, Ny     int
	NChannels  int
	PixelSize  float64 // angular size of one pixel, radians
	ChannelRes float64 // velocity resolution per channel, m/s
	ChannelV0  float64 // velocity of channel 0, m/s

	Inclination float64 // radians, rotation about the camera x-axis
	PositionAngle float64 // radians, rotation about the line of sight
	Distance    float64 // source distance, same length unit as Grid.Radius

	Species     int // index into the species slice
	Line        int // index into that species' line list
	Polarization bool
	ContinuumOnly bool

	Intensity []float64 // erg s^-1 cm^-2 Hz^-1 sr^-1, flat [channel][row][col]
	StokesQ   []float64 // present only when Polarization is set
	StokesU   []float64
	OpticalDepth []float64
}

// NewImage allocates an Image's buffers (§3, §6).
func NewImage(nx, ny, nChannels int, polarization bool) *Image {
	n := nx * ny * nChannels
	img := &Image{
		Nx: nx, Ny: ny, NChannels: nChannels,
		Polarization: polarization,
		Intensity:    make([]float64, n),
		OpticalDepth: make([]float64, n),
	}
	if polarization {
		img.StokesQ = make([]float64, n)
		img.StokesU = make([]float64, n)
	}
	return img
}

// index returns the flat buffer offset for pixel (row,col) of channel ch.
func (img *Image) index(ch, row, col int) int {
	return (ch*img.Ny+row)*img.Nx + col
}

// At returns the intensity, Stokes Q/U, and optical depth at pixel
// (row,col) of channel ch. Q and U are zero when the image was not
// built with polarization.
func (img *Image) At(ch, row, col int) (intensity, q, u, tau float64) {
	i := img.index(ch, row, col)
	intensity = img.Intensity[i]
	tau = img.OpticalDepth[i]
	if img.Polarization {
		q = img.StokesQ[i]
		u = img.StokesU[i]
	}
	return
}

// rotationMatrix builds the camera-to-grid rotation from inclination
// (rotation about x) and position angle (rotation about the resulting
// line of sight), the two-angle camera convention named in §3/§6.
func (img *Image) rotationMatrix() [3][3]float64 {
	ci, si := math.Cos(img.Inclination), math.Sin(img.Inclination)
	cp, sp := math.Cos(img.PositionAngle), math.Sin(img.PositionAngle)

	// Rotation about x by inclination.
	rx := [3][3]float64{
		{1, 0, 0},
		{0, ci, -si},
		{0, si, ci},
	}
	// Rotation about z by position angle.
	rz := [3][3]float64{
		{cp, -sp, 0},
		{sp, cp, 0},
		{0, 0, 1},
	}
	return matMul3(rx, rz)
}

func matMul3(a, b [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			s := 0.0
			for k := 0; k < 3; k++ {
				s += a[i][k] * b[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

func matVec3(m [3][3]float64, v [3]float64) [3]float64 {
	return [3]float64{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

// validate checks the image descriptor's invariants (§3, §8): positive
// pixel counts, a velocity axis only when not continuum-only.
func (img *Image) validate() error {
	if img.Nx <= 0 || img.Ny <= 0 {
		return newError(ConfigInvalid, fmt.Errorf("image: pixel grid must be positive, got %dx%d", img.Nx, img.Ny))
	}
	if !img.ContinuumOnly && img.NChannels <= 0 {
		return newError(ConfigInvalid, fmt.Errorf("image: velocity-resolved image needs NChannels > 0"))
	}
	if img.Distance <= 0 {
		return newError(ConfigInvalid, fmt.Errorf("image: distance must be positive"))
	}
	return nil
}
