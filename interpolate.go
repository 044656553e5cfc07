package nodata

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// A Raster is a row-major grid of float32 samples. Missing samples are
// encoded by a Codec.
type Raster struct {
	Width   int
	Height  int
	Samples []float32
}

// Corners are the four samples surrounding a coordinate. V00 is the
// top-left sample, V01 top-right, V10 bottom-left and V11 bottom-right.
type Corners struct {
	V00 float32
	V01 float32
	V10 float32
	V11 float32
}

// An Interpolator interpolates bilinearly in a raster.
type Interpolator struct {
	raster *Raster
	logger *zap.Logger
}

// NewInterpolator returns a new Interpolator. Out of bounds coordinates are
// reported with logger.Fatal.
func NewInterpolator(raster *Raster, logger *zap.Logger) *Interpolator {
	if logger == nil {
		logger = newDefaultLogger()
	}
	return &Interpolator{
		raster: raster,
		logger: logger,
	}
}

// Corners returns the samples surrounding (x, y) and the fractional parts of
// x and y. point identifies the coordinate in log messages. The coordinates
// must be in [0, width-1) x [0, height-1): anything else is a corrupted
// input and terminates the process.
func (ip *Interpolator) Corners(point int, x, y float64) (corners Corners, xf, yf float64) {
	xb := math.Floor(x)
	yb := math.Floor(y)
	width := ip.raster.Width
	// The negated form also rejects NaNs.
	if !(0 <= xb && xb < float64(width-1) && 0 <= yb && yb < float64(ip.raster.Height-1)) {
		ip.logger.Fatal("coordinates out of bounds",
			zap.Float64("x", xb),
			zap.Float64("y", yb),
			zap.Float64("offset", yb*float64(width)+xb),
			zap.Int("point", point),
		)
		panic(fmt.Sprintf("coordinates out of bounds: (%g, %g) for point %d", xb, yb, point))
	}
	offset := width*int(yb) + int(xb)
	samples := ip.raster.Samples
	corners = Corners{
		V00: samples[offset],
		V01: samples[offset+1],
		V10: samples[offset+width],
		V11: samples[offset+width+1],
	}
	return corners, x - xb, y - yb
}

// Interpolate returns the bilinear interpolation at (x, y) together with the
// corner samples. The interpolation is computed unconditionally: if any
// corner is NaN then so is the result.
func (ip *Interpolator) Interpolate(point int, x, y float64) (float64, Corners) {
	corners, xf, yf := ip.Corners(point, x, y)
	return Bilinear(corners, xf, yf), corners
}

// Bilinear interpolates between corners with fused multiply-adds so that
// results are reproducible.
func Bilinear(c Corners, xf, yf float64) float64 {
	v00, v10 := float64(c.V00), float64(c.V10)
	v0 := math.FMA(float64(c.V01)-v00, xf, v00)
	v1 := math.FMA(float64(c.V11)-v10, xf, v10)
	return math.FMA(v1-v0, yf, v0)
}

// advance returns the next coordinate along an axis of the given extent.
// Each result moves the point, so the trajectory is chaotic.
func advance(coord, result, extent float64) float64 {
	return math.Mod(math.Abs(coord+result), extent)
}
