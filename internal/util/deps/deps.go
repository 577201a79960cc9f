// Package deps locates the external binaries the bot shells out to.
package deps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"tgvidbot/internal/util"
)

// ErrNotFound is wrapped by every lookup failure.
var ErrNotFound = errors.New("binary not found")

// FindDownloader returns the path to yt-dlp (or youtube-dl as a last
// resort). A non-empty customPath must exist or resolve through PATH.
func FindDownloader(customPath string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return customPath, nil
		}
		if p, err := exec.LookPath(customPath); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("downloader %q: %w", customPath, ErrNotFound)
	}
	for _, name := range []string{"yt-dlp", "youtube-dl"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("yt-dlp: %w in PATH, install it with `pip install yt-dlp`", ErrNotFound)
}

// FindFFmpeg returns the path to ffmpeg, which yt-dlp needs to merge
// separate video and audio streams and to extract mp3.
func FindFFmpeg() (string, error) {
	if p, err := exec.LookPath("ffmpeg"); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("ffmpeg: %w in PATH", ErrNotFound)
}

// Version runs `<path> --version` (ffmpeg takes `-version`) and returns the
// first output line.
func Version(ctx context.Context, r util.CmdRunner, path string) (string, error) {
	flag := "--version"
	if strings.Contains(strings.ToLower(path), "ffmpeg") {
		flag = "-version"
	}
	res, err := r.Run(ctx, util.CmdSpec{Path: path, Args: []string{flag}, CaptureStdout: true})
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", path, flag, err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(res.Stdout)), "\n")
	return strings.TrimSpace(line), nil
}
