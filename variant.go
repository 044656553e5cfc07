package nodata

import (
	"encoding/binary"
	"path"
)

// An Encoding is a way of marking missing samples.
type Encoding int

const (
	SentinelEncoding Encoding = iota
	NaNEncoding
)

func (e Encoding) String() string {
	if e == NaNEncoding {
		return "NaN"
	}
	return `"No data" sentinel`
}

// dir returns the generated data subdirectory of e.
func (e Encoding) dir() string {
	if e == NaNEncoding {
		return "nan"
	}
	return "nodata"
}

// A Variant is a combination of encoding and raster byte order.
type Variant struct {
	Encoding  Encoding
	ByteOrder binary.ByteOrder
}

// Variants in the order they are run. The first one is the reference.
var (
	SentinelBigEndian    = Variant{Encoding: SentinelEncoding, ByteOrder: binary.BigEndian}
	SentinelLittleEndian = Variant{Encoding: SentinelEncoding, ByteOrder: binary.LittleEndian}
	NaNBigEndian         = Variant{Encoding: NaNEncoding, ByteOrder: binary.BigEndian}
	NaNLittleEndian      = Variant{Encoding: NaNEncoding, ByteOrder: binary.LittleEndian}
)

// AllVariants returns all variants, reference first.
func AllVariants() []Variant {
	return []Variant{
		SentinelBigEndian,
		SentinelLittleEndian,
		NaNBigEndian,
		NaNLittleEndian,
	}
}

func (v Variant) String() string {
	return v.Encoding.dir() + "/" + byteOrderName(v.ByteOrder)
}

// RasterFilename returns the name of v's raster file.
func (v Variant) RasterFilename() string {
	return path.Join(v.Encoding.dir(), byteOrderName(v.ByteOrder)+".raw")
}

// CoordinatesFilename returns the name of v's coordinates file.
func (v Variant) CoordinatesFilename() string {
	return path.Join(v.Encoding.dir(), "coordinates.raw")
}

// ExpectedResultsFilename returns the name of v's expected results file.
func (v Variant) ExpectedResultsFilename() string {
	return path.Join(v.Encoding.dir(), "expected-results.raw")
}

func byteOrderName(byteOrder binary.ByteOrder) string {
	if byteOrder == binary.LittleEndian {
		return "little-endian"
	}
	return "big-endian"
}
