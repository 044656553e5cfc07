package main

import (
	"cmp"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/twpayne/go-nodata"
)

func run() error {
	generatedData := flag.String("generated-data", cmp.Or(os.Getenv("NODATA_GENERATED_DATA"), "generated-data"), "path to generated data")
	generate := flag.Bool("generate", false, "generate missing data")
	repetitions := flag.Int("repetitions", 1, "number of repetitions")
	verbose := flag.Bool("verbose", false, "verbose logging")
	flag.Parse()

	if flag.NArg() != 0 {
		return errors.New("syntax: nodata-compare [flags]")
	}

	config := zap.NewProductionConfig()
	config.Encoding = "console"
	if *verbose {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	if *generate {
		reference := nodata.SentinelBigEndian.RasterFilename()
		if _, err := os.Stat(filepath.Join(*generatedData, filepath.FromSlash(reference))); errors.Is(err, fs.ErrNotExist) {
			fmt.Println("Generating test data. The data are saved for reuse in next test executions.")
			if err := nodata.Generate(*generatedData, nodata.DefaultConfig(),
				nodata.WithGeneratorLogger(logger),
			); err != nil {
				return err
			}
		}
	}

	runner, err := nodata.NewRunner(
		os.DirFS(*generatedData),
		nodata.WithLogger(logger),
		nodata.WithRepetitions(*repetitions),
	)
	if err != nil {
		return err
	}
	_, err = runner.Run()
	return err
}

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
