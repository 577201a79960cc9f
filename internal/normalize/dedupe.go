package normalize

import (
	"sort"

	"tgvidbot/internal/model"
	"tgvidbot/internal/quality"
)

// Dedupe keeps one rendition per FormatID, the one with the largest
// ByteSize (first seen on ties), and orders the result by descending
// priority. Unknown sizes count as 0.
func Dedupe(rs []model.Rendition) []model.Rendition {
	if len(rs) == 0 {
		return nil
	}
	index := make(map[string]int, len(rs))
	out := make([]model.Rendition, 0, len(rs))
	for _, r := range rs {
		i, ok := index[r.FormatID]
		if !ok {
			index[r.FormatID] = len(out)
			out = append(out, r)
			continue
		}
		if r.ByteSize > out[i].ByteSize {
			out[i] = r
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return quality.Priority(out[i].FormatID, out[i].Label) > quality.Priority(out[j].FormatID, out[j].Label)
	})
	return out
}
