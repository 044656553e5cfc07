package nodata

import (
	"encoding/binary"
	"math"
	"math/bits"
	"unsafe"
)

// fileByteOrder is the byte order of the coordinates and expected results
// files. Only rasters come in both byte orders.
var fileByteOrder binary.ByteOrder = binary.BigEndian

// HostByteOrder returns the byte order of the host.
func HostByteOrder() binary.ByteOrder {
	// 0x0100 stores 0x01 first on big-endian hosts.
	var i uint16 = 0x0100
	if (*[2]byte)(unsafe.Pointer(&i))[0] == 0x01 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// SwapBytes reverses the byte order of every elementWidth-byte element of
// buf in place. elementWidth must be 4 or 8 and divide len(buf).
func SwapBytes(buf []byte, elementWidth int) {
	switch elementWidth {
	case 4:
		for i := 0; i+4 <= len(buf); i += 4 {
			v := binary.LittleEndian.Uint32(buf[i:])
			binary.LittleEndian.PutUint32(buf[i:], bits.ReverseBytes32(v))
		}
	case 8:
		for i := 0; i+8 <= len(buf); i += 8 {
			v := binary.LittleEndian.Uint64(buf[i:])
			binary.LittleEndian.PutUint64(buf[i:], bits.ReverseBytes64(v))
		}
	default:
		panic("nodata: unsupported element width")
	}
}

// toNativeByteOrder swaps buf in place if byteOrder is not the host byte
// order.
func toNativeByteOrder(buf []byte, elementWidth int, byteOrder binary.ByteOrder) {
	if byteOrder != HostByteOrder() {
		SwapBytes(buf, elementWidth)
	}
}

// decodeFloat32s decodes native-order bytes. NaN payloads are preserved.
func decodeFloat32s(buf []byte) []float32 {
	values := make([]float32, len(buf)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.NativeEndian.Uint32(buf[4*i:]))
	}
	return values
}

func decodeFloat64s(buf []byte) []float64 {
	values := make([]float64, len(buf)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.NativeEndian.Uint64(buf[8*i:]))
	}
	return values
}
