package media

import (
	"path/filepath"
	"strings"

	"tgvidbot/internal/model"
	"tgvidbot/internal/util"
)

// extPriority ranks what yt-dlp may leave in a job dir; lower is better.
var extPriority = map[string]int{
	".mp4":  0,
	".mp3":  1,
	".m4a":  2,
	".webm": 3,
	".mkv":  4,
	".mov":  5,
}

// Rank returns the preference of a downloaded file by extension, and false
// for files that are never delivered (partials, thumbnails, subtitles).
func Rank(path string) (int, bool) {
	r, ok := extPriority[strings.ToLower(filepath.Ext(path))]
	return r, ok
}

// UploadName builds the file name shown to the user for a delivered file:
// "<title>_<quality>p.<ext>" for video, "<title>.<ext>" for audio.
func UploadName(title, quality string, ft model.FileType, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		if ft == model.FileAudio {
			ext = "mp3"
		} else {
			ext = model.DefaultContainer
		}
	}
	name := util.SanitizeFilename(title)
	if ft == model.FileVideo && quality != "" {
		name += "_" + quality + "p"
	}
	return name + "." + ext
}
