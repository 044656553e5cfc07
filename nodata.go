// Package nodata compares two ways of marking missing samples in float32
// rasters: quiet NaNs whose payload carries the reason why a sample is
// missing, and out-of-range "no data" sentinel values. Both feed the same
// bilinear interpolation and must produce identical error statistics.
package nodata

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// A MissingReason is the reason why a sample is missing. Reasons are ordered
// by precedence: when an interpolation combines samples missing for
// different reasons, the greatest reason wins.
type MissingReason int

// Missing reasons, in increasing order of precedence.
const (
	Unknown MissingReason = iota
	Cloud
	Land
	NoPass
)

// NumMissingReasons is the number of distinct missing reasons.
const NumMissingReasons = 4

var missingReasonNames = [NumMissingReasons]string{
	Unknown: "unknown",
	Cloud:   "cloud",
	Land:    "land",
	NoPass:  "no_pass",
}

func (r MissingReason) String() string {
	if r < 0 || r >= NumMissingReasons {
		return fmt.Sprintf("MissingReason(%d)", int(r))
	}
	return missingReasonNames[r]
}

// A Config holds the immutable parameters of a run.
type Config struct {
	Width                  int
	Height                 int
	NumInterpolationPoints int
	// NumVerifiedIterations is the number of iterations compared against
	// the expected results file.
	NumVerifiedIterations int
	// NumIterations is the total number of iterations. Iterations after
	// NumVerifiedIterations are only timed.
	NumIterations int
	// SuccessfulIterations is the number of leading iterations that must
	// not have any missing value mismatch. Later iterations diverge.
	SuccessfulIterations  int
	MissingValueThreshold float64
	Seed                  uint64
}

var errInvalidConfig = errors.New("invalid config")

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Width:                  800,
		Height:                 600,
		NumInterpolationPoints: 20000,
		NumVerifiedIterations:  10,
		NumIterations:          10,
		SuccessfulIterations:   8,
		MissingValueThreshold:  10000,
		Seed:                   2082799447325596418,
	}
}

// Validate returns an error if c is not usable.
func (c Config) Validate() error {
	switch {
	case c.Width < 2 || c.Height < 2:
		return fmt.Errorf("%w: raster size %dx%d", errInvalidConfig, c.Width, c.Height)
	case c.NumInterpolationPoints <= 0:
		return fmt.Errorf("%w: %d interpolation points", errInvalidConfig, c.NumInterpolationPoints)
	case c.NumVerifiedIterations <= 0:
		return fmt.Errorf("%w: %d verified iterations", errInvalidConfig, c.NumVerifiedIterations)
	case c.NumIterations < c.NumVerifiedIterations:
		return fmt.Errorf("%w: %d iterations is less than %d verified iterations", errInvalidConfig, c.NumIterations, c.NumVerifiedIterations)
	case c.SuccessfulIterations < 0 || c.SuccessfulIterations > c.NumVerifiedIterations:
		return fmt.Errorf("%w: %d successful iterations", errInvalidConfig, c.SuccessfulIterations)
	case c.MissingValueThreshold <= 100:
		return fmt.Errorf("%w: missing value threshold %g overlaps valid samples", errInvalidConfig, c.MissingValueThreshold)
	default:
		return nil
	}
}

func (c Config) rasterBytes() int {
	return c.Width * c.Height * 4
}

func (c Config) coordinatesBytes() int {
	return 2 * c.NumInterpolationPoints * 8
}

func (c Config) expectedResultsBytes() int {
	return c.NumInterpolationPoints * c.NumVerifiedIterations * 8
}

// newDefaultLogger returns the logger used when none is given. It writes
// warnings and above to stderr so that fatal errors are never silent.
func newDefaultLogger() *zap.Logger {
	return newWriterLogger(zapcore.Lock(os.Stderr))
}

func newWriterLogger(w zapcore.WriteSyncer, options ...zap.Option) *zap.Logger {
	encoder := zapcore.NewConsoleEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, w, zapcore.WarnLevel), options...)
}
