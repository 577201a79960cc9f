package bitrate

import (
	"math"
	"strconv"

	"tgvidbot/internal/quality"
)

// Typical stream bitrates in Mbps by tier, used when an extractor reports
// no size.
var tierMbps = map[int]float64{
	144:  0.3,
	240:  0.5,
	360:  1.0,
	480:  2.5,
	720:  5.0,
	1080: 8.0,
}

const (
	audioMbps   = 0.128
	defaultMbps = 5.0
	// container and metadata overhead
	overhead = 1.1
)

// Mbps returns the assumed bitrate of a tier ("720") or "audio". Unknown
// qualities assume 720p.
func Mbps(q string) float64 {
	if q == quality.AudioID {
		return audioMbps
	}
	if n, err := strconv.Atoi(q); err == nil {
		if m, ok := tierMbps[n]; ok {
			return m
		}
	}
	return defaultMbps
}

// EstimateSize approximates the byte size of durationSec seconds at quality q.
func EstimateSize(durationSec float64, q string) int64 {
	if durationSec <= 0 || math.IsNaN(durationSec) || math.IsInf(durationSec, 0) {
		return 0
	}
	size := Mbps(q) * 1024 * 1024 * durationSec / 8 * overhead
	if size >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(size)
}

// Clamp returns v constrained to [min, max].
func Clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
