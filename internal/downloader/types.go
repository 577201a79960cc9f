package downloader

import (
	"tgvidbot/internal/extract"
	"tgvidbot/internal/model"
	"tgvidbot/internal/platform"
)

// Request describes one file to fetch with yt-dlp.
type Request struct {
	URL      string
	Platform platform.ID
	// Quality is a tier number ("720") or "audio".
	Quality  string
	FileType model.FileType
	// Dir receives the output; it must exist.
	Dir     string
	JobID   string
	Options extract.Options
	// MaxFilesize is passed to --max-filesize when positive.
	MaxFilesize int64
}
