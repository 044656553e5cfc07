package nodata

import "math"

// FirstQuietNaN is the bit pattern of the first positive quiet NaN. It is
// the canonical NaN produced by arithmetic and encodes Unknown.
const FirstQuietNaN int32 = 0x7fc00000

// positiveInfinityBits is the greatest bit pattern of a non-NaN float32 with
// the sign bit cleared.
const positiveInfinityBits int32 = 0x7f800000

// A Codec encodes missing reasons in float32 samples. S is a scalar whose
// natural ordering matches both the reason precedence and the ordering
// "valid < missing".
type Codec[S int32 | float32] interface {
	// Encode returns the sample that marks reason.
	Encode(reason MissingReason) float32
	// ReasonScalar returns the comparable scalar of sample.
	ReasonScalar(sample float32) S
	// IsMissing returns whether scalar denotes a missing sample.
	IsMissing(scalar S) bool
	// Combine returns the dominant scalar of the four corners.
	Combine(corners Corners) S
	// Comparable maps a missing dominant scalar onto the scale of the
	// expected results file, threshold + reason.
	Comparable(scalar S) float64
}

// A SentinelCodec marks missing samples with values at or above a threshold.
// Reason r is threshold + r, so the maximum of the corner samples is the
// dominant reason when any corner is missing.
type SentinelCodec struct {
	Threshold float32
}

// NewSentinelCodec returns a new SentinelCodec.
func NewSentinelCodec(threshold float64) SentinelCodec {
	return SentinelCodec{Threshold: float32(threshold)}
}

func (c SentinelCodec) Encode(reason MissingReason) float32 {
	return c.Threshold + float32(reason)
}

func (c SentinelCodec) ReasonScalar(sample float32) float32 {
	return sample
}

func (c SentinelCodec) IsMissing(scalar float32) bool {
	return scalar >= c.Threshold
}

func (c SentinelCodec) Combine(corners Corners) float32 {
	return max(max(corners.V00, corners.V01), max(corners.V10, corners.V11))
}

func (c SentinelCodec) Comparable(scalar float32) float64 {
	return float64(scalar)
}

// Reason returns the reason encoded by a missing scalar.
func (c SentinelCodec) Reason(scalar float32) MissingReason {
	return MissingReason(scalar - c.Threshold)
}

// A NaNCodec marks missing samples with positive quiet NaNs whose bit
// pattern is FirstQuietNaN + reason. Reinterpreted as signed integers these
// patterns are greater than those of all finite floats, so the integer
// maximum of the corners is the dominant reason.
type NaNCodec struct {
	Threshold float64
}

// NewNaNCodec returns a new NaNCodec. threshold is only used to map reasons
// onto the expected results scale.
func NewNaNCodec(threshold float64) NaNCodec {
	return NaNCodec{Threshold: threshold}
}

func (c NaNCodec) Encode(reason MissingReason) float32 {
	return math.Float32frombits(uint32(FirstQuietNaN + int32(reason)))
}

func (c NaNCodec) ReasonScalar(sample float32) int32 {
	return int32(math.Float32bits(sample))
}

func (c NaNCodec) IsMissing(scalar int32) bool {
	return scalar > positiveInfinityBits
}

func (c NaNCodec) Combine(corners Corners) int32 {
	return max(
		max(c.ReasonScalar(corners.V00), c.ReasonScalar(corners.V01)),
		max(c.ReasonScalar(corners.V10), c.ReasonScalar(corners.V11)),
	)
}

func (c NaNCodec) Comparable(scalar int32) float64 {
	return float64(scalar-FirstQuietNaN) + c.Threshold
}

// Reason returns the reason encoded by a missing scalar.
func (c NaNCodec) Reason(scalar int32) MissingReason {
	return MissingReason(scalar - FirstQuietNaN)
}

var (
	_ Codec[float32] = SentinelCodec{}
	_ Codec[int32]   = NaNCodec{}
)
