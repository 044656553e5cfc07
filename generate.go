package nodata

import (
	"encoding/binary"
	"math"
	"math/big"
	"math/rand/v2"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// nodataInverseProportion is the inverse of the proportion of missing
// samples in generated rasters.
const nodataInverseProportion = 8

// exactPrecision is the precision of exact arithmetic, in bits.
const exactPrecision = 256

type generator struct {
	config Config
	exact  bool
	logger *zap.Logger
}

// A GenerateOption sets an option on Generate.
type GenerateOption func(*generator)

// WithExactArithmetic sets whether expected results are computed with
// extended precision. Otherwise they are computed exactly as a test case
// computes them, so test cases never drift.
func WithExactArithmetic(exact bool) GenerateOption {
	return func(g *generator) {
		g.exact = exact
	}
}

func WithGeneratorLogger(logger *zap.Logger) GenerateOption {
	return func(g *generator) {
		g.logger = logger
	}
}

// Generate writes a complete data set into dir: the nodata and nan
// subdirectories, each with big- and little-endian rasters, coordinates and
// expected results. The random values depend only on config.
func Generate(dir string, config Config, options ...GenerateOption) error {
	if err := config.Validate(); err != nil {
		return err
	}
	g := &generator{
		config: config,
		exact:  true,
		logger: newDefaultLogger(),
	}
	for _, option := range options {
		option(g)
	}

	random := rand.New(rand.NewPCG(config.Seed, 0))
	raster := g.generateRaster(random)
	coordinates := g.generateCoordinates(random)
	// Expected results are computed from the initial coordinates, so
	// encode them first.
	coordinatesBytes := encodeFloat64s(coordinates)
	expectedResultsBytes := encodeFloat64s(g.expectedResults(raster, coordinates))

	sentinel := NewSentinelCodec(config.MissingValueThreshold)
	nan := NewNaNCodec(config.MissingValueThreshold)
	nanSamples := make([]float32, len(raster.Samples))
	for i, sample := range raster.Samples {
		if sentinel.IsMissing(sample) {
			sample = nan.Encode(sentinel.Reason(sample))
		}
		nanSamples[i] = sample
	}

	for _, variant := range AllVariants() {
		samples := raster.Samples
		if variant.Encoding == NaNEncoding {
			samples = nanSamples
		}
		for name, data := range map[string][]byte{
			variant.RasterFilename():          encodeFloat32s(variant.ByteOrder, samples),
			variant.CoordinatesFilename():     coordinatesBytes,
			variant.ExpectedResultsFilename(): expectedResultsBytes,
		} {
			if err := writeFile(filepath.Join(dir, filepath.FromSlash(name)), data); err != nil {
				return err
			}
		}
	}
	g.logger.Info("generated data",
		zap.String("dir", dir),
		zap.Bool("exact", g.exact),
	)
	return nil
}

// generateRaster returns a raster of values in [-100, 100] with missing
// samples encoded as sentinels, for reasons Cloud to NoPass.
func (g *generator) generateRaster(random *rand.Rand) *Raster {
	sentinel := NewSentinelCodec(g.config.MissingValueThreshold)
	samples := make([]float32, g.config.Width*g.config.Height)
	for i := range samples {
		if random.IntN(nodataInverseProportion) == 0 {
			samples[i] = sentinel.Encode(Cloud + MissingReason(random.IntN(int(NoPass-Cloud)+1)))
		} else {
			samples[i] = float32(200*random.Float64() - 100)
		}
	}
	return &Raster{
		Width:   g.config.Width,
		Height:  g.config.Height,
		Samples: samples,
	}
}

// generateCoordinates returns interleaved coordinates in [0, width-1) x
// [0, height-1).
func (g *generator) generateCoordinates(random *rand.Rand) []float64 {
	coordinates := make([]float64, 2*g.config.NumInterpolationPoints)
	for i := 0; i < len(coordinates); i += 2 {
		coordinates[i] = randomBelow(random, float64(g.config.Width-1))
		coordinates[i+1] = randomBelow(random, float64(g.config.Height-1))
	}
	return coordinates
}

func randomBelow(random *rand.Rand, limit float64) float64 {
	return min(limit*random.Float64(), math.Nextafter(limit, 0))
}

// expectedResults computes the results of all verified iterations using the
// sentinel rules. coordinates are modified.
func (g *generator) expectedResults(raster *Raster, coordinates []float64) []float64 {
	sentinel := NewSentinelCodec(g.config.MissingValueThreshold)
	interpolator := NewInterpolator(raster, g.logger)
	width := float64(g.config.Width - 1)
	height := float64(g.config.Height - 1)
	results := make([]float64, 0, g.config.NumInterpolationPoints*g.config.NumVerifiedIterations)
	for range g.config.NumVerifiedIterations {
		for i := range g.config.NumInterpolationPoints {
			x, y := coordinates[2*i], coordinates[2*i+1]
			corners, xf, yf := interpolator.Corners(i, x, y)
			if reason := sentinel.Combine(corners); sentinel.IsMissing(reason) {
				results = append(results, float64(reason))
				coordinates[2*i] = advance(x, 1, width)
				coordinates[2*i+1] = advance(y, 1, height)
				continue
			}
			if g.exact {
				var result float64
				result, coordinates[2*i], coordinates[2*i+1] = exactStep(corners, x, y, width, height)
				results = append(results, result)
			} else {
				result := Bilinear(corners, xf, yf)
				results = append(results, result)
				coordinates[2*i] = advance(x, result, width)
				coordinates[2*i+1] = advance(y, result, height)
			}
		}
	}
	return results
}

// exactStep interpolates at (x, y) and moves (x, y) with extended
// precision. Only the returned values are rounded.
func exactStep(corners Corners, x, y, width, height float64) (result, nextX, nextY float64) {
	bx, by := newExact(x), newExact(y)
	xf := newExact(0).Sub(bx, newExact(math.Floor(x)))
	yf := newExact(0).Sub(by, newExact(math.Floor(y)))
	v0 := exactLerp(newExact(float64(corners.V00)), newExact(float64(corners.V01)), xf)
	v1 := exactLerp(newExact(float64(corners.V10)), newExact(float64(corners.V11)), xf)
	value := exactLerp(v0, v1, yf)
	result, _ = value.Float64()
	nextX = exactAdvance(bx, value, width)
	nextY = exactAdvance(by, value, height)
	return result, nextX, nextY
}

func newExact(v float64) *big.Float {
	return new(big.Float).SetPrec(exactPrecision).SetFloat64(v)
}

// exactLerp returns (b-a)*f + a.
func exactLerp(a, b, f *big.Float) *big.Float {
	z := newExact(0).Sub(b, a)
	z.Mul(z, f)
	return z.Add(z, a)
}

// exactAdvance returns |coord + value| mod extent.
func exactAdvance(coord, value *big.Float, extent float64) float64 {
	e := newExact(extent)
	s := newExact(0).Add(coord, value)
	s.Abs(s)
	q, _ := newExact(0).Quo(s, e).Int(nil)
	r := newExact(0).Mul(newExact(0).SetInt(q), e)
	r.Sub(s, r)
	switch {
	case r.Sign() < 0:
		r.Add(r, e)
	case r.Cmp(e) >= 0:
		r.Sub(r, e)
	}
	// Rounding must not reach the excluded upper bound.
	next, _ := r.Float64()
	return min(next, math.Nextafter(extent, 0))
}

func encodeFloat32s(byteOrder binary.ByteOrder, values []float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, value := range values {
		byteOrder.PutUint32(buf[4*i:], math.Float32bits(value))
	}
	return buf
}

// encodeFloat64s encodes values in the byte order of coordinates and
// expected results files.
func encodeFloat64s(values []float64) []byte {
	buf := make([]byte, 8*len(values))
	for i, value := range values {
		fileByteOrder.PutUint64(buf[8*i:], math.Float64bits(value))
	}
	return buf
}

func writeFile(name string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o777); err != nil {
		return err
	}
	return os.WriteFile(name, data, 0o666)
}
