package nodata

import (
	"math"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestStatisticsEqual(t *testing.T) {
	base := Statistics{
		{MaxError: 1e-12, Mismatches: 0, Count: 10, Sum: 1e-11},
		{MaxError: 0.5, Mismatches: 3, Count: 8, Sum: 1},
	}
	for _, tc := range []struct {
		name     string
		other    Statistics
		expected bool
	}{
		{
			name:     "identical",
			other:    Statistics{base[0], base[1]},
			expected: true,
		},
		{
			name: "count_and_sum_ignored",
			other: Statistics{
				{MaxError: 1e-12, Mismatches: 0},
				{MaxError: 0.5, Mismatches: 3},
			},
			expected: true,
		},
		{
			name: "one_ulp",
			other: Statistics{
				{MaxError: math.Nextafter(1e-12, 1), Mismatches: 0},
				base[1],
			},
		},
		{
			name: "mismatches",
			other: Statistics{
				base[0],
				{MaxError: 0.5, Mismatches: 4},
			},
		},
		{
			name:  "length",
			other: Statistics{base[0]},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, base.Equal(tc.other))
			assert.Equal(t, tc.expected, tc.other.Equal(base))
		})
	}
}

func TestIterationStatisticsCompare(t *testing.T) {
	var s IterationStatistics
	s.compareValid(1.5, 1.25, testThreshold)
	s.compareValid(-2, -2.5, testThreshold)
	s.compareValid(3, 3, testThreshold)
	assert.Equal(t, IterationStatistics{MaxError: 0.5, Count: 3, Sum: 0.75}, s)
	assert.Equal(t, 0.25, s.Mean())

	// Valid result, missing expected value.
	s.compareValid(3, 10001, testThreshold)
	assert.Equal(t, 1, s.Mismatches)
	// Missing result, valid expected value.
	s.compareMissing(10001, 42)
	assert.Equal(t, 2, s.Mismatches)
	// Missing for another reason.
	s.compareMissing(10001, 10003)
	assert.Equal(t, 3, s.Mismatches)
	s.compareMissing(10002, 10002)
	assert.Equal(t, 3, s.Mismatches)
	assert.Equal(t, 0.5, s.MaxError)
}

func TestSuccessful(t *testing.T) {
	config := DefaultConfig()
	v := newVerification(config, SentinelBigEndian, nil, nil)
	assert.True(t, v.Successful())

	v.statistics[8].Mismatches = 12
	v.statistics[9].Mismatches = 300
	assert.True(t, v.Successful())

	v.statistics[7].Mismatches = 1
	assert.False(t, v.Successful())
}

func TestPrintStatistics(t *testing.T) {
	config := DefaultConfig()
	config.NumVerifiedIterations = 2
	config.SuccessfulIterations = 2
	v := newVerification(config, NaNLittleEndian, nil, nil)
	v.statistics[0] = IterationStatistics{MaxError: 1.25e-5, Count: 4, Sum: 2e-5}
	v.statistics[1] = IterationStatistics{MaxError: 12.5, Mismatches: 7, Count: 2, Sum: 13}

	var sb strings.Builder
	assert.NoError(t, v.PrintStatistics(&sb))
	assert.Equal(t, ""+
		"Errors in the use of raster data with NaN values in little-endian byte order:\n"+
		"   Count     Average     Maximum   Number of \"missing value\" mismatches\n"+
		"       4      0.0000      0.0000      0\n"+
		"       2      6.5000     12.5000      7\n",
		sb.String())
}
