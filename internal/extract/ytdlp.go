package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"tgvidbot/internal/util"
)

// DefaultUserAgent is sent to every platform unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options are the per-platform knobs passed to yt-dlp.
type Options struct {
	SocketTimeout int // seconds
	Retries       int
	Proxy         string
	CookiesFile   string
	Headers       map[string]string
}

// YTDLP extracts metadata by running yt-dlp --dump-json.
type YTDLP struct {
	Path    string
	Options Options
	Runner  util.CmdRunner
	Logger  *zap.Logger
}

// NewYTDLP returns a yt-dlp extractor using the default subprocess runner.
func NewYTDLP(path string, opts Options, log *zap.Logger) *YTDLP {
	if log == nil {
		log = zap.NewNop()
	}
	return &YTDLP{Path: path, Options: opts, Runner: util.NewDefaultRunner(), Logger: log}
}

// Args builds the yt-dlp command line for a metadata dump of url.
func (y *YTDLP) Args(url string) []string {
	args := []string{
		"--dump-json",
		"--no-playlist",
		"--no-warnings",
		"--no-check-certificates",
	}
	args = append(args, y.Options.Args()...)
	return append(args, url)
}

// Args renders the network flags shared by every yt-dlp invocation.
func (o Options) Args() []string {
	var args []string
	if o.SocketTimeout > 0 {
		args = append(args, "--socket-timeout", strconv.Itoa(o.SocketTimeout))
	}
	if o.Retries > 0 {
		args = append(args, "--retries", strconv.Itoa(o.Retries))
	}
	if o.Proxy != "" {
		args = append(args, "--proxy", o.Proxy)
	}
	if o.CookiesFile != "" {
		args = append(args, "--cookies", o.CookiesFile)
	}
	return append(args, HeaderArgs(o.Headers)...)
}

// HeaderArgs renders headers as sorted --add-header flags.
func HeaderArgs(headers map[string]string) []string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		out = append(out, "--add-header", k+":"+headers[k])
	}
	return out
}

// Extract implements Extractor.
func (y *YTDLP) Extract(ctx context.Context, url string) (Record, error) {
	if y.Path == "" {
		return nil, errors.New("yt-dlp path is required")
	}
	runner := y.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	res, runErr := runner.Run(ctx, util.CmdSpec{
		Path:          y.Path,
		Args:          y.Args(url),
		Logger:        y.Logger,
		CaptureStdout: true,
	})
	if runErr != nil && len(res.Stdout) == 0 {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// yt-dlp explains itself on stderr; that text drives error classification
		if tail := res.StderrTail(3); tail != "" {
			return nil, fmt.Errorf("yt-dlp: %s", tail)
		}
		return nil, fmt.Errorf("yt-dlp: %w", runErr)
	}

	rec, err := DecodeRecord(res.Stdout)
	if errors.Is(err, ErrNoRecord) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}
