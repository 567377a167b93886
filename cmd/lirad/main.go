// Command lirad is a minimal command-line driver for the lirad line
// radiative-transfer engine: it loads a TOML configuration, runs the
// solver with the built-in UniformModel, and writes a rendered image.
//
// Parsing LAMDA-format molecular catalogues and dust opacity tables is
// out of the core library's scope (lirad.MolDataSource/DustOpacitySource
// are contracts only); embedders supply a real implementation. This
// driver's stubs return a descriptive error rather than attempting to
// parse anything.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/andizq/star-forming-regions"
)

type unimplementedCatalogue struct{}

func (unimplementedCatalogue) LoadSpecies(path string) (*lirad.Species, error) {
	return nil, fmt.Errorf("lirad: no MolDataSource wired in; cannot load %s (catalogue parsing is an embedder responsibility)", path)
}

func (unimplementedCatalogue) LoadOpacity(path string) (*lirad.DustOpacity, error) {
	return nil, fmt.Errorf("lirad: no DustOpacitySource wired in; cannot load %s", path)
}

func main() {
	configPath := flag.String("config", "lirad.toml", "path to the TOML run configuration")
	imagePath := flag.String("image", "", "path to write the rendered image intensity data; empty skips raytracing")
	flag.Parse()

	if err := run(*configPath, *imagePath); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}

func run(configPath, imagePath string) error {
	cfg, err := lirad.LoadConfig(configPath)
	if err != nil {
		return err
	}

	catalogue := unimplementedCatalogue{}
	result, err := lirad.Run(cfg, lirad.RunInputs{
		Model:       cfg.UniformModel(),
		MolData:     catalogue,
		MolDataPath: cfg.MolDataPaths,
		DustSource:  catalogue,
		DustPath:    cfg.DustPath,
	})
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		fmt.Println(w)
	}
	fmt.Printf("solved %d vertices over %d passes\n", len(result.Grid.Vertices), len(result.Passes))

	if imagePath == "" {
		return nil
	}
	img := lirad.NewImage(cfg.ImageNx, cfg.ImageNy, cfg.ImageNChannels, cfg.Polarization)
	img.PixelSize, img.ChannelRes, img.ChannelV0 = cfg.PixelSize, cfg.ChannelRes, cfg.ChannelV0
	img.Inclination, img.PositionAngle, img.Distance = cfg.Inclination, cfg.PositionAngle, cfg.Distance
	img.Species, img.Line = cfg.ImageSpecies, cfg.ImageLine
	img.ContinuumOnly = cfg.ContinuumOnly
	if err := lirad.RayTraceImage(result.Grid, result.Species, img); err != nil {
		return err
	}
	return writeIntensityCSV(imagePath, img)
}

// writeIntensityCSV dumps the image's flat intensity buffer as one row
// per channel, matching the simplest possible ImageSink without
// depending on a FITS/VTK library the teacher never imports.
func writeIntensityCSV(path string, img *lirad.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("lirad: writing image to %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()
	pixelsPerChannel := img.Nx * img.Ny
	for ch := 0; ch < img.NChannels; ch++ {
		for i := 0; i < pixelsPerChannel; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, "%g", img.Intensity[ch*pixelsPerChannel+i])
		}
		fmt.Fprintln(w)
	}
	return nil
}
