// Package downloader fetches a chosen rendition to disk with yt-dlp.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"tgvidbot/internal/model"
	"tgvidbot/internal/platform"
	"tgvidbot/internal/progress"
	"tgvidbot/internal/quality"
	"tgvidbot/internal/util"
)

// OutputBase is the file name stem yt-dlp writes to inside a job dir.
const OutputBase = "media"

// FragmentRetries is passed to --fragment-retries for HLS/DASH downloads.
const FragmentRetries = 10

// Downloader runs yt-dlp downloads.
type Downloader struct {
	Path    string
	Runner  util.CmdRunner
	Logger  *zap.Logger
	Verbose bool
}

// New returns a Downloader using the default subprocess runner.
func New(path string, log *zap.Logger) *Downloader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Downloader{Path: path, Runner: util.NewDefaultRunner(), Logger: log}
}

func (d *Downloader) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// FormatSelector returns the yt-dlp -f expression for a platform, quality
// and file type. Video tiers cap the height and prefer mp4 with m4a audio
// so the result plays inline in Telegram.
func FormatSelector(id platform.ID, q string, ft model.FileType) string {
	if ft == model.FileAudio {
		return "bestaudio[ext=m4a]/bestaudio/best"
	}
	if id == platform.TikTok {
		return "best"
	}
	h, err := strconv.Atoi(q)
	if err != nil || !quality.IsTier(h) {
		return "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	}
	return fmt.Sprintf(
		"bestvideo[height<=%[1]d][ext=mp4]+bestaudio[ext=m4a]/best[height<=%[1]d][ext=mp4]/best[height<=%[1]d]/best",
		h)
}

// Args builds the full yt-dlp download command line for req.
func Args(req Request) []string {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--no-check-certificates",
		"--newline",
		"--fragment-retries", strconv.Itoa(FragmentRetries),
		"-f", FormatSelector(req.Platform, req.Quality, req.FileType),
		"-o", filepath.Join(req.Dir, OutputBase+".%(ext)s"),
	}
	if req.MaxFilesize > 0 {
		args = append(args, "--max-filesize", strconv.FormatInt(req.MaxFilesize, 10))
	}
	if req.FileType == model.FileAudio {
		args = append(args, "-x", "--audio-format", "mp3")
	} else {
		args = append(args, "--merge-output-format", model.DefaultContainer)
	}
	args = append(args, req.Options.Args()...)
	return append(args, req.URL)
}

// Download fetches req into req.Dir and returns the path of the delivered
// file. Progress lines are forwarded to rep when it is non-nil.
func (d *Downloader) Download(ctx context.Context, req Request, rep progress.Reporter) (string, error) {
	if d.Path == "" {
		return "", errors.New("downloader path is required")
	}
	if req.Dir == "" {
		return "", errors.New("download dir is required")
	}
	if !req.FileType.Valid() {
		return "", fmt.Errorf("unknown file type %q", req.FileType)
	}
	if rep == nil {
		rep = progress.Nop{}
	}
	runner := d.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}

	res, err := runner.Run(ctx, util.CmdSpec{
		Path:    d.Path,
		Args:    Args(req),
		Dir:     req.Dir,
		Logger:  d.logger(),
		Verbose: d.Verbose,
		StdoutLine: func(line string) {
			if u, ok := ParseProgress(line, req.JobID); ok {
				rep.Update(u)
			}
		},
		StderrLine: func(line string) {
			rep.Log(progress.Log{JobID: req.JobID, Stream: progress.StreamStderr, Line: line})
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if tail := res.StderrTail(3); tail != "" {
			return "", fmt.Errorf("yt-dlp download: %s: %w", tail, err)
		}
		return "", fmt.Errorf("yt-dlp download: %w", err)
	}

	path, err := SelectDownloadedFile(req.Dir, OutputBase)
	if err != nil {
		// --max-filesize makes yt-dlp skip the file and still exit 0
		return "", fmt.Errorf("yt-dlp download: %w", err)
	}
	d.logger().Debug("downloaded", zap.String("job_id", req.JobID), zap.String("path", path))
	return path, nil
}
