package normalize

import (
	"tgvidbot/internal/extract"
	"tgvidbot/internal/model"
	"tgvidbot/internal/platform"
	"tgvidbot/internal/quality"
)

const (
	UntitledTitle = "Untitled"
	UnknownAuthor = "Unknown"
)

// BuildInfo assembles a complete VideoInfo from a raw record: renditions are
// normalized with n, the audio track is split off and video tiers are
// deduplicated and ranked.
func BuildInfo(raw extract.Record, sourceURL string, id platform.ID, n Normalizer) model.VideoInfo {
	info := model.VideoInfo{
		Title:           raw.String("title", UntitledTitle),
		Author:          author(raw),
		ThumbnailURL:    raw.String("thumbnail", ""),
		DurationSeconds: nonNegative(raw.Int("duration", 0)),
		SourceURL:       sourceURL,
		Platform:        string(id),
	}

	var videos []model.Rendition
	for _, r := range n.Normalize(raw) {
		if r.FormatID == quality.AudioID {
			if info.Audio == nil || r.ByteSize > info.Audio.ByteSize {
				a := r
				info.Audio = &a
			}
			continue
		}
		videos = append(videos, r)
	}
	info.Renditions = Dedupe(videos)
	return info
}

func author(raw extract.Record) string {
	for _, key := range []string{"uploader", "channel", "creator", "uploader_id"} {
		if s := raw.String(key, ""); s != "" {
			return s
		}
	}
	return UnknownAuthor
}
