package nodata

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestHostByteOrder(t *testing.T) {
	buf := make([]byte, 2)
	binary.NativeEndian.PutUint16(buf, 0x0102)
	expected := binary.ByteOrder(binary.LittleEndian)
	if buf[0] == 0x01 {
		expected = binary.BigEndian
	}
	assert.Equal(t, expected, HostByteOrder())
}

func TestSwapBytes(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	SwapBytes(buf, 4)
	assert.Equal(t, []byte{4, 3, 2, 1, 8, 7, 6, 5}, buf)

	buf = []byte{1, 2, 3, 4, 5, 6, 7, 8}
	SwapBytes(buf, 8)
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, buf)
}

func TestSwapBytesRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(0, 0))
	original := make([]byte, 1024)
	for i := range original {
		original[i] = byte(r.IntN(256))
	}
	for _, elementWidth := range []int{4, 8} {
		buf := slices.Clone(original)
		SwapBytes(buf, elementWidth)
		assert.NotEqual(t, original, buf)
		SwapBytes(buf, elementWidth)
		assert.Equal(t, original, buf)
	}
}

func TestToNativeByteOrderPreservesNaNPayloads(t *testing.T) {
	nan := NewNaNCodec(testThreshold)
	values := []float32{nan.Encode(Unknown), -42.5, nan.Encode(NoPass), 100}
	for _, byteOrder := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		buf := encodeFloat32s(byteOrder, values)
		toNativeByteOrder(buf, 4, byteOrder)
		decoded := decodeFloat32s(buf)
		assert.Equal(t, len(values), len(decoded))
		for i := range values {
			assert.Equal(t, math.Float32bits(values[i]), math.Float32bits(decoded[i]))
		}
	}
}

func TestDecodeFloat64s(t *testing.T) {
	values := []float64{0, 1.5, -798.25, math.MaxFloat64}
	buf := encodeFloat64s(values)
	toNativeByteOrder(buf, 8, fileByteOrder)
	assert.Equal(t, values, decodeFloat64s(buf))
}
