package nodata

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// ErrDataSetMismatch is returned when the files shared by the NaN and
// sentinel data sets differ.
var ErrDataSetMismatch = errors.New("data set mismatch")

var runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "nodata_run_duration_seconds",
	Help:    "The duration of a test case run",
	Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
}, []string{"variant"})

// A Runner runs all variants and compares them against the reference
// variant.
type Runner struct {
	config      Config
	fsys        fs.FS
	loader      *Loader
	logger      *zap.Logger
	output      io.Writer
	cacheSize   int
	repetitions int
}

// A RunnerOption sets an option on a Runner.
type RunnerOption func(*Runner)

// A Result is the outcome of Runner.Run.
type Result struct {
	Success bool
	// TestCases are the test cases of the last repetition, reference
	// first.
	TestCases []TestCase
	// Offending are the variants that were not successful or whose
	// statistics differ from the reference in any repetition. Each variant
	// appears once.
	Offending []Variant
	// Skipped are the variants whose files could not be loaded. Each
	// variant appears once.
	Skipped []Variant
}

// NewRunner returns a new Runner reading generated data from fsys.
func NewRunner(fsys fs.FS, options ...RunnerOption) (*Runner, error) {
	r := &Runner{
		config:      DefaultConfig(),
		fsys:        fsys,
		logger:      newDefaultLogger(),
		output:      os.Stdout,
		cacheSize:   8,
		repetitions: 1,
	}
	for _, option := range options {
		option(r)
	}
	if err := r.config.Validate(); err != nil {
		return nil, err
	}
	if r.repetitions < 1 {
		return nil, fmt.Errorf("%d repetitions", r.repetitions)
	}

	var err error
	r.loader, err = NewLoader(r.fsys,
		WithLoaderCacheSize(r.cacheSize),
		WithLoaderLogger(r.logger),
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func WithConfig(config Config) RunnerOption {
	return func(r *Runner) {
		r.config = config
	}
}

func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithOutput(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.output = w
	}
}

func WithCacheSize(cacheSize int) RunnerOption {
	return func(r *Runner) {
		r.cacheSize = cacheSize
	}
}

func WithRepetitions(repetitions int) RunnerOption {
	return func(r *Runner) {
		r.repetitions = repetitions
	}
}

// CheckDataSet returns an error wrapping ErrDataSetMismatch if the
// coordinates or expected results differ between the NaN and sentinel data
// sets. Both are written in big-endian byte order by the generator, so equal
// bytes mean equal values.
func (r *Runner) CheckDataSet() error {
	for _, shared := range []struct {
		nan, sentinel string
		byteCount     int
	}{
		{NaNBigEndian.CoordinatesFilename(), SentinelBigEndian.CoordinatesFilename(), r.config.coordinatesBytes()},
		{NaNBigEndian.ExpectedResultsFilename(), SentinelBigEndian.ExpectedResultsFilename(), r.config.expectedResultsBytes()},
	} {
		nanDigest, err := r.loader.Digest(shared.nan, shared.byteCount)
		if err != nil {
			return err
		}
		sentinelDigest, err := r.loader.Digest(shared.sentinel, shared.byteCount)
		if err != nil {
			return err
		}
		if nanDigest != sentinelDigest {
			return fmt.Errorf("%s and %s: %w", shared.nan, shared.sentinel, ErrDataSetMismatch)
		}
	}
	return nil
}

// Run runs every variant, in sequence, and reports the outcome to r's
// output.
func (r *Runner) Run() (*Result, error) {
	switch err := r.CheckDataSet(); {
	case errors.Is(err, ErrMissingFile):
		r.logger.Warn("incomplete data set", zap.Error(err))
	case err != nil:
		return nil, err
	}

	result := &Result{
		Success: true,
	}
	for range r.repetitions {
		result.TestCases = result.TestCases[:0]
		for _, variant := range AllVariants() {
			result.TestCases = append(result.TestCases, NewTestCase(r.config, variant, r.loader, r.logger))
		}
		reference := result.TestCases[0]
		for _, testCase := range result.TestCases {
			switch skipped, err := r.runTestCase(testCase); {
			case err != nil:
				return nil, err
			case skipped:
				result.Success = false
				result.Skipped = appendVariant(result.Skipped, testCase.Variant())
				continue
			}
			successful := testCase.Successful()
			if !successful || !reference.StatisticsEqual(testCase) {
				if err := testCase.PrintStatistics(r.output); err != nil {
					return nil, err
				}
				result.Success = false
				result.Offending = appendVariant(result.Offending, testCase.Variant())
			}
		}
	}

	if result.Success {
		for _, testCase := range result.TestCases {
			if testCase.Variant() != NaNBigEndian {
				continue
			}
			if err := testCase.PrintStatistics(r.output); err != nil {
				return nil, err
			}
		}
		_, err := fmt.Fprintln(r.output, "Success (mismatches in the last iterations are normal).")
		return result, err
	}
	_, err := fmt.Fprintln(r.output, "TEST FAILURE.")
	return result, err
}

// appendVariant appends variant to variants unless an earlier repetition
// already did.
func appendVariant(variants []Variant, variant Variant) []Variant {
	if slices.Contains(variants, variant) {
		return variants
	}
	return append(variants, variant)
}

// runTestCase runs testCase. Missing files are not errors: the test case is
// skipped and keeps empty statistics.
func (r *Runner) runTestCase(testCase TestCase) (bool, error) {
	start := time.Now()
	switch err := testCase.ComputeAndCompare(); {
	case errors.Is(err, ErrMissingFile):
		r.logger.Warn("skipped test case",
			zap.Stringer("variant", testCase.Variant()),
			zap.Error(err),
		)
		return true, nil
	case err != nil:
		return false, err
	}
	runDuration.WithLabelValues(testCase.Variant().String()).Observe(time.Since(start).Seconds())
	return false, nil
}
