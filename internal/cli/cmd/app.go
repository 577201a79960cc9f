package cmd

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tgvidbot/internal/cache"
	"tgvidbot/internal/config"
	"tgvidbot/internal/extract"
	"tgvidbot/internal/logging"
	"tgvidbot/internal/netx"
	"tgvidbot/internal/pipeline"
	"tgvidbot/internal/platform"
	"tgvidbot/internal/resolver"
	"tgvidbot/internal/util/deps"
)

// app holds what every command that touches a platform needs.
type app struct {
	cfg    config.Config
	log    *zap.Logger
	dlPath string
	undo   func()
}

// newApp loads the config, installs the logger and locates yt-dlp.
func newApp(requireToken bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, &ExitError{Code: ExitCLIError, Err: err}
	}
	if err := cfg.Validate(requireToken); err != nil {
		return nil, &ExitError{Code: ExitCLIError, Err: err}
	}
	level := cfg.Log.Level
	if cfg.Verbose {
		level = "debug"
	}
	log, err := logging.New(level, cfg.Log.Development)
	if err != nil {
		return nil, &ExitError{Code: ExitCLIError, Err: err}
	}
	dlPath, err := deps.FindDownloader(cfg.DLBinary)
	if err != nil {
		_ = log.Sync()
		return nil, &ExitError{Code: ExitMissingDep, Err: err}
	}
	if _, err := deps.FindFFmpeg(); err != nil {
		log.Warn("ffmpeg not found; merged video formats and mp3 extraction will fail", zap.Error(err))
	}
	return &app{cfg: cfg, log: log, dlPath: dlPath, undo: logging.Install(log)}, nil
}

func (a *app) Close() {
	a.undo()
	_ = a.log.Sync()
}

func (a *app) extractOptions(id platform.ID) extract.Options {
	return extract.Options{
		SocketTimeout: a.cfg.SocketTimeout,
		Retries:       a.cfg.Retries,
		Proxy:         a.cfg.ProxyFor(id),
		CookiesFile:   a.cfg.Platforms[id].Cookies,
	}
}

func (a *app) httpClient(id platform.ID) (*http.Client, error) {
	c, err := netx.NewHTTPClient(netx.Config{
		ProxyURL:  a.cfg.ProxyFor(id),
		NoProxy:   a.cfg.Proxy.NoProxy,
		Timeout:   time.Duration(a.cfg.SocketTimeout) * time.Second,
		UserAgent: extract.DefaultUserAgent,
		RetryMax:  a.cfg.Retries,
	})
	if err != nil {
		return nil, fmt.Errorf("%s http client: %w", id, err)
	}
	return c, nil
}

// extractor builds the backend chain of one platform. yt-dlp leads unless
// YouTube is switched to the native client; Instagram falls back to the
// post page's Open Graph tags.
func (a *app) extractor(id platform.ID) (extract.Extractor, error) {
	ytdlp := extract.Named{Name: "yt-dlp", Extractor: extract.NewYTDLP(a.dlPath, a.extractOptions(id), a.log)}
	switch id {
	case platform.YouTube:
		client, err := a.httpClient(id)
		if err != nil {
			return nil, err
		}
		native := extract.Named{Name: "youtube", Extractor: extract.NewYouTube(client, a.log)}
		if a.cfg.Platforms[id].Backend == config.BackendNative {
			return extract.NewChain(a.log, native, ytdlp), nil
		}
		return extract.NewChain(a.log, ytdlp, native), nil
	case platform.Instagram:
		client, err := a.httpClient(id)
		if err != nil {
			return nil, err
		}
		return extract.NewChain(a.log, ytdlp, extract.Named{Name: "og", Extractor: &extract.OGPage{Client: client}}), nil
	}
	return ytdlp.Extractor, nil
}

func (a *app) resolver() (*resolver.Service, error) {
	opts := []resolver.Option{
		resolver.WithLogger(a.log),
		resolver.WithWorkers(a.cfg.ExtractWorkers),
		resolver.WithTimeout(a.cfg.ExtractTimeout),
		resolver.WithCache(cache.New(a.cfg.CacheTTL, cache.WithMaxEntries(a.cfg.CacheMaxEntries))),
		resolver.WithSingleFlight(a.cfg.SingleFlight),
	}
	for _, id := range platform.IDs() {
		e, err := a.extractor(id)
		if err != nil {
			return nil, err
		}
		opts = append(opts, resolver.WithExtractor(id, e))
	}
	return resolver.NewService(opts...), nil
}

func (a *app) pipeline() *pipeline.Service {
	opts := []pipeline.Option{
		pipeline.WithDownloaderPath(a.dlPath),
		pipeline.WithLogger(a.log),
		pipeline.WithTempDir(a.cfg.TempDir),
		pipeline.WithWorkers(a.cfg.DownloadWorkers),
		pipeline.WithMaxUploadBytes(a.cfg.MaxUploadBytes()),
		pipeline.WithVerbose(a.cfg.Verbose),
	}
	for _, id := range platform.IDs() {
		opts = append(opts, pipeline.WithPlatformOptions(id, a.extractOptions(id)))
	}
	return pipeline.NewService(opts...)
}
