package nodata

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"testing/fstest"

	"github.com/alecthomas/assert/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLoaderLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"file.raw":  &fstest.MapFile{Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		"short.raw": &fstest.MapFile{Data: []byte{1, 2, 3}},
	}
	loader, err := NewLoader(fsys)
	assert.NoError(t, err)

	for _, tc := range []struct {
		name      string
		byteCount int
		expected  []byte
		err       error
	}{
		{name: "file.raw", byteCount: 8, expected: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{name: "file.raw", byteCount: 4, expected: []byte{1, 2, 3, 4}},
		{name: "file.raw", byteCount: 9, err: ErrMissingFile},
		{name: "short.raw", byteCount: 4, err: ErrMissingFile},
		{name: "absent.raw", byteCount: 4, err: ErrMissingFile},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := loader.Load(tc.name, tc.byteCount)
			if tc.err != nil {
				assert.True(t, errors.Is(err, tc.err))
				assert.Zero(t, actual)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestLoaderReturnsCopies(t *testing.T) {
	fsys := fstest.MapFS{
		"file.raw": &fstest.MapFile{Data: []byte{1, 2, 3, 4}},
	}
	loader, err := NewLoader(fsys)
	assert.NoError(t, err)

	misses := testutil.ToFloat64(fileCacheMisses)
	hits := testutil.ToFloat64(fileCacheHits)

	first, err := loader.Load("file.raw", 4)
	assert.NoError(t, err)
	first[0] = 42
	second, err := loader.Load("file.raw", 4)
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, second)

	assert.Equal(t, misses+1, testutil.ToFloat64(fileCacheMisses))
	assert.Equal(t, hits+1, testutil.ToFloat64(fileCacheHits))
}

func TestLoaderDigest(t *testing.T) {
	fsys := fstest.MapFS{
		"a.raw": &fstest.MapFile{Data: []byte{1, 2, 3, 4}},
		"b.raw": &fstest.MapFile{Data: []byte{1, 2, 3, 4}},
		"c.raw": &fstest.MapFile{Data: []byte{1, 2, 3, 5}},
	}
	loader, err := NewLoader(fsys)
	assert.NoError(t, err)

	a, err := loader.Digest("a.raw", 4)
	assert.NoError(t, err)
	b, err := loader.Digest("b.raw", 4)
	assert.NoError(t, err)
	c, err := loader.Digest("c.raw", 4)
	assert.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	_, err = loader.Digest("absent.raw", 4)
	assert.True(t, errors.Is(err, ErrMissingFile))
}

func TestLoaderLoadRaster(t *testing.T) {
	config := Config{Width: 3, Height: 2}
	nan := NewNaNCodec(testThreshold)
	samples := []float32{-100, 0, nan.Encode(Cloud), 99.5, nan.Encode(NoPass), 1e-3}
	fsys := fstest.MapFS{
		"big-endian.raw":    &fstest.MapFile{Data: encodeFloat32s(binary.BigEndian, samples)},
		"little-endian.raw": &fstest.MapFile{Data: encodeFloat32s(binary.LittleEndian, samples)},
	}
	loader, err := NewLoader(fsys)
	assert.NoError(t, err)

	for name, byteOrder := range map[string]binary.ByteOrder{
		"big-endian.raw":    binary.BigEndian,
		"little-endian.raw": binary.LittleEndian,
	} {
		raster, err := loader.LoadRaster(name, config, byteOrder)
		assert.NoError(t, err)
		assert.Equal(t, 3, raster.Width)
		assert.Equal(t, 2, raster.Height)
		for i, sample := range samples {
			assert.Equal(t, math.Float32bits(sample), math.Float32bits(raster.Samples[i]), "%s[%d]", name, i)
		}
	}
}

func TestLoaderLoadCoordinates(t *testing.T) {
	config := Config{NumInterpolationPoints: 2, NumVerifiedIterations: 1}
	coordinates := []float64{0, 1.5, 798.75, 598.125}
	fsys := fstest.MapFS{
		"coordinates.raw":      &fstest.MapFile{Data: encodeFloat64s(coordinates)},
		"expected-results.raw": &fstest.MapFile{Data: encodeFloat64s([]float64{1, 10002, 7})},
	}
	loader, err := NewLoader(fsys)
	assert.NoError(t, err)

	actual, err := loader.LoadCoordinates("coordinates.raw", config)
	assert.NoError(t, err)
	assert.Equal(t, coordinates, actual)

	expected, err := loader.LoadExpectedResults("expected-results.raw", config)
	assert.NoError(t, err)
	assert.Equal(t, []float64{1, 10002}, expected)
}
