package pipeline

import (
	"strconv"

	"tgvidbot/internal/downloader"
	"tgvidbot/internal/model"
	"tgvidbot/internal/quality"
	"tgvidbot/internal/util/bitrate"
)

// Plan describes what RunJob would do for a job, without doing it.
type Plan struct {
	Selector       string
	EstimatedBytes int64
	// Estimated is true when the size comes from the bitrate table rather
	// than the extractor.
	Estimated bool
	TooLarge  bool
}

// Describe plans job against an upload limit. The estimate prefers the
// extractor-reported size and falls back to a bitrate estimate.
func Describe(job Job, maxUpload int64) Plan {
	p := Plan{
		Selector:       downloader.FormatSelector(job.Platform, job.Quality, job.FileType),
		EstimatedBytes: job.KnownSize,
	}
	if p.EstimatedBytes <= 0 {
		p.EstimatedBytes = bitrate.EstimateSize(float64(job.DurationSeconds), job.Quality)
		p.Estimated = true
	}
	p.TooLarge = maxUpload > 0 && p.EstimatedBytes > maxUpload
	return p
}

// QualityOf maps a rendition to the quality string used in callbacks and
// the file cache: the tier number for video, "audio" for the audio track.
func QualityOf(r model.Rendition) (string, model.FileType) {
	if r.FormatID == quality.AudioID {
		return quality.AudioID, model.FileAudio
	}
	if tier, ok := quality.TierOf(r.FormatID); ok {
		return strconv.Itoa(tier), model.FileVideo
	}
	return strconv.Itoa(quality.DefaultTier), model.FileVideo
}

// KnownSize returns the extractor-reported size of the rendition in info
// matching q and ft, or 0.
func KnownSize(info model.VideoInfo, q string, ft model.FileType) int64 {
	if ft == model.FileAudio {
		if info.Audio != nil {
			return info.Audio.ByteSize
		}
		return 0
	}
	for _, r := range info.Renditions {
		if rq, rft := QualityOf(r); rq == q && rft == ft {
			return r.ByteSize
		}
	}
	return 0
}
