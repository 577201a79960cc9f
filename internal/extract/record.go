package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tgvidbot/internal/util/coerce"
)

// Record is an untrusted metadata object as returned by an extraction
// backend. Nothing is assumed present; use the accessors.
type Record map[string]any

// String returns the value at key when it is a non-empty string or a
// number; some backends send ids as numbers.
func (r Record) String(key, def string) string {
	s := coerce.String(r[key], "")
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Int coerces the value at key, see coerce.Int.
func (r Record) Int(key string, def int) int {
	return coerce.Int(r[key], def)
}

// ByteSize returns filesize, else filesize_approx, else 0.
func (r Record) ByteSize() int64 {
	return coerce.ByteSize(r["filesize"], r["filesize_approx"])
}

// Codec returns the codec at key, mapping yt-dlp's "none" to empty.
func (r Record) Codec(key string) string {
	c := r.String(key, "")
	if strings.EqualFold(c, "none") {
		return ""
	}
	return c
}

// Records returns the object items of the list at key, skipping anything
// that is not an object.
func (r Record) Records(key string) []Record {
	list, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(list))
	for _, item := range list {
		switch m := item.(type) {
		case map[string]any:
			out = append(out, Record(m))
		case Record:
			out = append(out, m)
		}
	}
	return out
}

// ErrNoRecord is returned when output contains no JSON object.
var ErrNoRecord = errors.New("no metadata object in output")

// DecodeRecord parses yt-dlp JSON output. Numbers stay json.Number so large
// sizes are not rounded. When stdout carries noise around the object, the
// last line that decodes to an object wins.
func DecodeRecord(data []byte) (Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoRecord
	}
	rec, err := decodeOne(data)
	if err == nil {
		return rec, nil
	}

	lines := bytes.Split(data, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		if r, lerr := decodeOne(line); lerr == nil && len(r) > 0 {
			return r, nil
		}
	}
	return nil, fmt.Errorf("parse metadata JSON: %w", err)
}

func decodeOne(b []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNoRecord
	}
	return rec, nil
}
