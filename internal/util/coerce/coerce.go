// Package coerce turns loosely typed metadata values into clean numbers.
//
// Extractors return numbers as JSON numbers, floats, strings or nothing at
// all, depending on the platform and sometimes on the call. Every helper here
// is total: it returns the supplied default instead of failing.
package coerce

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Int converts v to an int, truncating fractional values.
func Int(v any, def int) int {
	n, ok := toInt64(v)
	if !ok || n > math.MaxInt || n < math.MinInt {
		return def
	}
	return int(n)
}

// Int64 is the 64-bit variant of Int, used for byte sizes.
func Int64(v any, def int64) int64 {
	n, ok := toInt64(v)
	if !ok {
		return def
	}
	return n
}

// ByteSize prefers the exact size, then the approximate one, then 0.
func ByteSize(exact, approx any) int64 {
	if n := Int64(exact, 0); n > 0 {
		return n
	}
	if n := Int64(approx, 0); n > 0 {
		return n
	}
	return 0
}

// String returns strings as-is and formats numbers; anything else yields def.
func String(v any, def string) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToString(t)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return def
	}
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case nil, bool:
		return 0, false
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		n, err := cast.ToInt64E(t)
		return n, err == nil
	case uint:
		if uint64(t) > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	case uint64:
		if t > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		return floatToInt64(cast.ToFloat64E(string(t)))
	case float32, float64:
		return floatToInt64(cast.ToFloat64E(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		return floatToInt64(cast.ToFloat64E(s))
	default:
		return 0, false
	}
}

func floatToInt64(f float64, err error) (int64, bool) {
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Trunc(f)
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
