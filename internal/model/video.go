package model

import "strconv"

// FileType selects what gets delivered for a rendition.
type FileType string

const (
	FileVideo FileType = "video"
	FileAudio FileType = "audio"
)

// Valid reports whether t is a known file type.
func (t FileType) Valid() bool {
	return t == FileVideo || t == FileAudio
}

// DefaultContainer is assumed when the extractor reports no extension.
const DefaultContainer = "mp4"

// Rendition is one concrete downloadable variant of a video.
type Rendition struct {
	SourceURL       string // direct, possibly signed, fetch location
	FormatID        string // url144..url1080, audio, or a platform label
	Container       string
	ByteSize        int64 // 0 means unknown
	Label           string
	DurationSeconds int
	Width           int
	Height          int
	VideoCodec      string // empty when absent
	AudioCodec      string
}

// VideoInfo is the resolved description of one source URL.
type VideoInfo struct {
	Title           string
	Author          string
	ThumbnailURL    string
	DurationSeconds int
	// Renditions are video tiers, unique by FormatID, highest priority first.
	Renditions []Rendition
	// Audio is the representative audio-only track, if any.
	Audio     *Rendition
	SourceURL string
	Platform  string
}

// Clone returns a deep copy that shares no mutable state with v.
func (v VideoInfo) Clone() VideoInfo {
	out := v
	if v.Renditions != nil {
		out.Renditions = make([]Rendition, len(v.Renditions))
		copy(out.Renditions, v.Renditions)
	}
	if v.Audio != nil {
		a := *v.Audio
		out.Audio = &a
	}
	return out
}

// Empty reports whether v carries nothing downloadable.
func (v VideoInfo) Empty() bool {
	return len(v.Renditions) == 0 && v.Audio == nil
}

// Rendition looks up a rendition by format id, audio included.
func (v VideoInfo) Rendition(formatID string) (Rendition, bool) {
	if v.Audio != nil && v.Audio.FormatID == formatID {
		return *v.Audio, true
	}
	for _, r := range v.Renditions {
		if r.FormatID == formatID {
			return r, true
		}
	}
	return Rendition{}, false
}

// DurationString is the duration in the string form some storage contracts use.
func (v VideoInfo) DurationString() string {
	return strconv.Itoa(v.DurationSeconds)
}
