// Package normalize turns raw extractor records into canonical renditions.
//
// Each platform gets a Strategy describing which raw fields it trusts. The
// shared algorithm partitions audio-only from video-bearing items, keeps the
// largest candidate per quality tier and fabricates a single fallback
// rendition when only a top-level URL is known. Malformed items are skipped.
package normalize

import (
	"strconv"
	"strings"

	"tgvidbot/internal/extract"
	"tgvidbot/internal/model"
	"tgvidbot/internal/quality"
)

// Normalizer maps one platform's raw record to renditions. The audio-only
// track, when present, is returned with FormatID quality.AudioID.
type Normalizer interface {
	Normalize(raw extract.Record) []model.Rendition
}

// Strategy is the table-driven Normalizer used for every platform.
type Strategy struct {
	// Muxed adds the representative audio size to each video size, for
	// platforms whose video-only streams are merged with audio on delivery.
	Muxed bool
	// ExplicitIDs maps each item to url{height} directly instead of
	// classifying it onto the nearest tier.
	ExplicitIDs bool
	// StandardOnly drops explicit ids outside the six standard tiers.
	StandardOnly bool
	// NoteHeights recovers a missing height from format_note ("720p").
	NoteHeights bool
	// SingleBest keeps only the largest video item and reports it as the
	// default tier.
	SingleBest bool
	// FallbackLabel labels the rendition fabricated from a top-level url.
	FallbackLabel string
}

type candidate struct {
	rec    extract.Record
	url    string
	size   int64
	height int
}

// Normalize implements Normalizer.
func (s Strategy) Normalize(raw extract.Record) []model.Rendition {
	if raw == nil {
		return nil
	}
	duration := raw.Int("duration", 0)
	if duration < 0 {
		duration = 0
	}

	var audio *candidate
	var videos []candidate
	for _, f := range raw.Records("formats") {
		u := f.String("url", "")
		if u == "" {
			continue
		}
		c := candidate{rec: f, url: u, size: f.ByteSize(), height: f.Int("height", 0)}
		if f.Codec("acodec") != "" && f.Codec("vcodec") == "" {
			if audio == nil || c.size > audio.size {
				a := c
				audio = &a
			}
			continue
		}
		// an explicit "none" without audio is a storyboard or thumbnail
		// track; an absent vcodec still counts as video
		if strings.EqualFold(f.String("vcodec", ""), "none") {
			continue
		}
		videos = append(videos, c)
	}

	var out []model.Rendition
	if audio != nil {
		out = append(out, s.rendition(*audio, quality.AudioID, "audio", duration, 0))
	}

	audioSize := int64(0)
	if s.Muxed && audio != nil {
		audioSize = audio.size
	}

	tiers := s.pickTiers(videos)
	for _, t := range tiers {
		out = append(out, s.rendition(t.candidate, t.formatID, t.label, duration, audioSize))
	}

	if len(tiers) == 0 {
		if u := raw.String("url", ""); u != "" {
			c := candidate{rec: raw, url: u, size: raw.ByteSize(), height: raw.Int("height", 0)}
			if c.height <= 0 {
				c.height = quality.DefaultTier
			}
			out = append(out, s.rendition(c, quality.FormatID(quality.DefaultTier), s.fallbackLabel(), duration, 0))
		}
	}
	return out
}

type tierPick struct {
	formatID string
	label    string
	candidate
}

// pickTiers keeps, per format id, the candidate with the largest size.
// Equal sizes keep the first seen.
func (s Strategy) pickTiers(videos []candidate) []tierPick {
	if s.SingleBest {
		var best *candidate
		for i := range videos {
			if best == nil || videos[i].size > best.size {
				best = &videos[i]
			}
		}
		if best == nil {
			return nil
		}
		c := *best
		if c.height <= 0 {
			c.height = quality.DefaultTier
		}
		return []tierPick{{formatID: quality.FormatID(quality.DefaultTier), label: s.fallbackLabel(), candidate: c}}
	}

	var order []string
	picked := make(map[string]tierPick)
	for _, c := range videos {
		h := c.height
		if h <= 0 && s.NoteHeights {
			h = quality.HeightFromNote(c.rec.String("format_note", ""))
			if h <= 0 {
				h = quality.HeightFromNote(c.rec.String("format", ""))
			}
		}
		if h <= 0 {
			continue
		}
		c.height = h

		tier := h
		if !s.ExplicitIDs {
			tier = quality.Classify(h)
		} else if s.StandardOnly && !quality.IsTier(h) {
			continue
		}

		id := quality.FormatID(tier)
		prev, seen := picked[id]
		if !seen {
			order = append(order, id)
		}
		if !seen || c.size > prev.size {
			picked[id] = tierPick{formatID: id, label: strconv.Itoa(tier) + "p", candidate: c}
		}
	}

	out := make([]tierPick, 0, len(order))
	for _, id := range order {
		out = append(out, picked[id])
	}
	return out
}

func (s Strategy) rendition(c candidate, formatID, label string, duration int, extra int64) model.Rendition {
	return model.Rendition{
		SourceURL:       c.url,
		FormatID:        formatID,
		Container:       c.rec.String("ext", model.DefaultContainer),
		ByteSize:        c.size + extra,
		Label:           label,
		DurationSeconds: duration,
		Width:           nonNegative(c.rec.Int("width", 0)),
		Height:          nonNegative(c.height),
		VideoCodec:      c.rec.Codec("vcodec"),
		AudioCodec:      c.rec.Codec("acodec"),
	}
}

func (s Strategy) fallbackLabel() string {
	if s.FallbackLabel == "" {
		return "HD"
	}
	return s.FallbackLabel
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
