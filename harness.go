package nodata

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	interpolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nodata_interpolations_total",
		Help: "The total number of interpolated points",
	}, []string{"codec"})
	missingResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nodata_missing_results_total",
		Help: "The total number of missing interpolation results",
	}, []string{"codec", "reason"})
	mismatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nodata_mismatches_total",
		Help: "The total number of missing value mismatches against expected results",
	}, []string{"codec"})
)

// IterationStatistics are the differences between computed and expected
// values in one iteration.
type IterationStatistics struct {
	// MaxError is the maximum absolute error between valid results.
	MaxError float64
	// Mismatches is the number of results whose missing value state or
	// reason differs from the expected one.
	Mismatches int
	Count      int
	Sum        float64
}

// Mean returns the mean absolute error.
func (s IterationStatistics) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// Statistics holds one IterationStatistics per verified iteration.
type Statistics []IterationStatistics

// Equal returns whether s and other have exactly the same maximum errors
// and mismatch counts.
func (s Statistics) Equal(other Statistics) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i].MaxError != other[i].MaxError || s[i].Mismatches != other[i].Mismatches {
			return false
		}
	}
	return true
}

// A TestCase interpolates a raster repeatedly and compares the results
// against expected values.
type TestCase interface {
	Variant() Variant
	ComputeAndCompare() error
	Successful() bool
	Statistics() Statistics
	StatisticsEqual(other TestCase) bool
	PrintStatistics(w io.Writer) error
}

// verification is the state shared by all test cases.
type verification struct {
	config     Config
	variant    Variant
	loader     *Loader
	logger     *zap.Logger
	statistics Statistics
}

func newVerification(config Config, variant Variant, loader *Loader, logger *zap.Logger) verification {
	if logger == nil {
		logger = newDefaultLogger()
	}
	return verification{
		config:     config,
		variant:    variant,
		loader:     loader,
		logger:     logger.With(zap.Stringer("variant", variant)),
		statistics: make(Statistics, config.NumVerifiedIterations),
	}
}

func (v *verification) Variant() Variant {
	return v.variant
}

func (v *verification) Statistics() Statistics {
	return v.statistics
}

// Successful returns whether no mismatch happened in the leading
// iterations. Later iterations may mismatch because of the chaotic drift.
func (v *verification) Successful() bool {
	for _, s := range v.statistics[:v.config.SuccessfulIterations] {
		if s.Mismatches != 0 {
			return false
		}
	}
	return true
}

func (v *verification) StatisticsEqual(other TestCase) bool {
	return v.statistics.Equal(other.Statistics())
}

func (v *verification) PrintStatistics(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Errors in the use of raster data with %s values in %s byte order:\n"+
		"   Count     Average     Maximum   Number of \"missing value\" mismatches\n",
		v.variant.Encoding, byteOrderName(v.variant.ByteOrder)); err != nil {
		return err
	}
	for _, s := range v.statistics {
		if _, err := fmt.Fprintf(w, "%8d %11.4f %11.4f %6d\n", s.Count, s.Mean(), s.MaxError, s.Mismatches); err != nil {
			return err
		}
	}
	return nil
}

// A run holds the buffers owned by one execution of a test case.
type run struct {
	interpolator    *Interpolator
	coordinates     []float64
	expectedResults []float64
	cursor          int
	missing         [NumMissingReasons]int
	interpolations  int
}

// load loads the buffers of a run. Each run gets its own buffers.
func (v *verification) load() (*run, error) {
	raster, err := v.loader.LoadRaster(v.variant.RasterFilename(), v.config, v.variant.ByteOrder)
	if err != nil {
		return nil, err
	}
	coordinates, err := v.loader.LoadCoordinates(v.variant.CoordinatesFilename(), v.config)
	if err != nil {
		return nil, err
	}
	expectedResults, err := v.loader.LoadExpectedResults(v.variant.ExpectedResultsFilename(), v.config)
	if err != nil {
		return nil, err
	}
	return &run{
		interpolator:    NewInterpolator(raster, v.logger),
		coordinates:     coordinates,
		expectedResults: expectedResults,
	}, nil
}

// nextExpected returns the next expected result. Expected results are
// consumed in order and never rewound.
func (r *run) nextExpected() float64 {
	expected := r.expectedResults[r.cursor]
	r.cursor++
	return expected
}

func (r *run) countMissing(reason MissingReason) {
	if 0 <= reason && reason < NumMissingReasons {
		r.missing[reason]++
	}
}

// advance moves point i to its position for the next iteration.
func (r *run) advance(config Config, i int, x, y, result float64) {
	r.coordinates[2*i] = advance(x, result, float64(config.Width-1))
	r.coordinates[2*i+1] = advance(y, result, float64(config.Height-1))
}

// compareMissing records a missing result whose scalar on the expected
// results scale is nodata.
func (s *IterationStatistics) compareMissing(nodata, expected float64) {
	if nodata != expected {
		s.Mismatches++
	}
}

// compareValid records a valid result.
func (s *IterationStatistics) compareValid(result, expected, threshold float64) {
	if expected >= threshold {
		s.Mismatches++
		return
	}
	err := math.Abs(result - expected)
	s.MaxError = max(s.MaxError, err)
	s.Count++
	s.Sum += err
}

// report publishes the metrics of r.
func (v *verification) report(r *run) {
	codec := v.variant.Encoding.dir()
	interpolations.WithLabelValues(codec).Add(float64(r.interpolations))
	for reason, n := range r.missing {
		if n != 0 {
			missingResults.WithLabelValues(codec, MissingReason(reason).String()).Add(float64(n))
		}
	}
	total := 0
	for _, s := range v.statistics {
		total += s.Mismatches
	}
	mismatches.WithLabelValues(codec).Add(float64(total))
	v.logger.Debug("computed and compared",
		zap.Int("interpolations", r.interpolations),
		zap.Int("mismatches", total),
	)
}

// A SentinelTestCase uses "no data" sentinel values. It checks for missing
// samples before interpolating.
type SentinelTestCase struct {
	verification
	codec SentinelCodec
}

// NewSentinelTestCase returns a new SentinelTestCase.
func NewSentinelTestCase(config Config, byteOrder binary.ByteOrder, loader *Loader, logger *zap.Logger) *SentinelTestCase {
	return &SentinelTestCase{
		verification: newVerification(config, Variant{Encoding: SentinelEncoding, ByteOrder: byteOrder}, loader, logger),
		codec:        NewSentinelCodec(config.MissingValueThreshold),
	}
}

// ComputeAndCompare loads the data, runs all iterations and accumulates
// statistics. If a file cannot be loaded, nothing is computed and the error
// is returned.
func (t *SentinelTestCase) ComputeAndCompare() error {
	r, err := t.load()
	if err != nil {
		return err
	}
	for it := range t.config.NumIterations {
		var stats *IterationStatistics
		if it < t.config.NumVerifiedIterations {
			stats = &t.statistics[it]
		}
		for i := range t.config.NumInterpolationPoints {
			x, y := r.coordinates[2*i], r.coordinates[2*i+1]
			corners, xf, yf := r.interpolator.Corners(i, x, y)
			// Sentinels are valid floats, so they must be detected before
			// they are used in arithmetic.
			var result float64
			if reason := t.codec.Combine(corners); t.codec.IsMissing(reason) {
				if stats != nil {
					stats.compareMissing(t.codec.Comparable(reason), r.nextExpected())
				}
				r.countMissing(t.codec.Reason(reason))
				result = 1
			} else {
				result = Bilinear(corners, xf, yf)
				if stats != nil {
					stats.compareValid(result, r.nextExpected(), t.config.MissingValueThreshold)
				}
			}
			r.advance(t.config, i, x, y, result)
			r.interpolations++
		}
	}
	t.report(r)
	return nil
}

// A NaNTestCase uses NaN payloads. It interpolates unconditionally and
// looks for the missing reason only when the result is NaN.
type NaNTestCase struct {
	verification
	codec NaNCodec
}

// NewNaNTestCase returns a new NaNTestCase.
func NewNaNTestCase(config Config, byteOrder binary.ByteOrder, loader *Loader, logger *zap.Logger) *NaNTestCase {
	return &NaNTestCase{
		verification: newVerification(config, Variant{Encoding: NaNEncoding, ByteOrder: byteOrder}, loader, logger),
		codec:        NewNaNCodec(config.MissingValueThreshold),
	}
}

// ComputeAndCompare loads the data, runs all iterations and accumulates
// statistics. If a file cannot be loaded, nothing is computed and the error
// is returned.
func (t *NaNTestCase) ComputeAndCompare() error {
	r, err := t.load()
	if err != nil {
		return err
	}
	for it := range t.config.NumIterations {
		var stats *IterationStatistics
		if it < t.config.NumVerifiedIterations {
			stats = &t.statistics[it]
		}
		for i := range t.config.NumInterpolationPoints {
			x, y := r.coordinates[2*i], r.coordinates[2*i+1]
			result, corners := r.interpolator.Interpolate(i, x, y)
			if math.IsNaN(result) {
				reason := t.codec.Combine(corners)
				if stats != nil {
					stats.compareMissing(t.codec.Comparable(reason), r.nextExpected())
				}
				r.countMissing(t.codec.Reason(reason))
				result = 1
			} else if stats != nil {
				stats.compareValid(result, r.nextExpected(), t.config.MissingValueThreshold)
			}
			r.advance(t.config, i, x, y, result)
			r.interpolations++
		}
	}
	t.report(r)
	return nil
}

// NewTestCase returns the test case of variant.
func NewTestCase(config Config, variant Variant, loader *Loader, logger *zap.Logger) TestCase {
	if variant.Encoding == NaNEncoding {
		return NewNaNTestCase(config, variant.ByteOrder, loader, logger)
	}
	return NewSentinelTestCase(config, variant.ByteOrder, loader, logger)
}
