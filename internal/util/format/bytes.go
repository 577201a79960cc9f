package format

import "strconv"

var byteUnits = [...]string{"KB", "MB", "GB", "TB"}

// HumanizeBytes renders a byte count in binary units with one decimal
// ("48.3 MB"). Negative counts render as "0 B"; counts beyond TB stay in TB.
func HumanizeBytes(b int64) string {
	if b < 0 {
		b = 0
	}
	if b < 1<<10 {
		return strconv.FormatInt(b, 10) + " B"
	}
	v := float64(b) / (1 << 10)
	i := 0
	for v >= 1<<10 && i < len(byteUnits)-1 {
		v /= 1 << 10
		i++
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + " " + byteUnits[i]
}
