package downloader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tgvidbot/internal/progress"
)

// postprocessors whose lines mean the download itself is over.
var mergeTags = []string{"[Merger]", "[ExtractAudio]", "[VideoConvertor]", "[FixupM3u8]"}

// ParseProgress parses a yt-dlp --newline output line, such as
// "[download]  45.2% of 10.00MiB at  1.50MiB/s ETA 00:04".
func ParseProgress(line, jobID string) (u progress.Update, ok bool) {
	line = strings.TrimSpace(line)
	for _, tag := range mergeTags {
		if strings.HasPrefix(line, tag) {
			return progress.Update{JobID: jobID, Stage: progress.StageMerging, Percent: -1, Message: "Processing"}, true
		}
	}
	if !strings.HasPrefix(line, "[download]") {
		return progress.Update{}, false
	}

	rest := strings.TrimSpace(strings.TrimPrefix(line, "[download]"))
	// "Destination: ..." and "... has already been downloaded" carry no numbers
	if !strings.Contains(rest, "%") {
		return progress.Update{}, false
	}

	var percent float64 = -1
	if idx := strings.Index(rest, "%"); idx != -1 {
		pctStr := strings.TrimSpace(rest[:idx])
		if p, err := strconv.ParseFloat(pctStr, 64); err == nil {
			percent = p
		}
	}

	var speed *string
	if idx := strings.Index(rest, " at "); idx != -1 {
		// yt-dlp right-aligns the rate: "at  1.50MiB/s"
		if f := strings.Fields(rest[idx+4:]); len(f) > 0 && f[0] != "Unknown" {
			speed = &f[0]
		}
	}

	var eta *time.Duration
	if idx := strings.Index(rest, "ETA "); idx != -1 {
		etaStr := strings.TrimSpace(rest[idx+4:])
		if idx2 := strings.Index(etaStr, " "); idx2 != -1 {
			etaStr = etaStr[:idx2]
		}
		if d, err := parseETA(etaStr); err == nil {
			eta = &d
		}
	}

	return progress.Update{
		JobID:   jobID,
		Stage:   progress.StageDownloading,
		Percent: percent,
		Speed:   speed,
		ETA:     eta,
		Message: "Downloading",
	}, true
}

// parseETA parses "SS", "MM:SS" or "HH:MM:SS".
func parseETA(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid eta %q", s)
	}
	var total time.Duration
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid eta %q", s)
		}
		total = total*60 + time.Duration(n)*time.Second
	}
	return total, nil
}
