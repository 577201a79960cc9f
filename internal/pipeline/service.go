// Package pipeline delivers a chosen rendition: it waits for a download
// slot, fetches the file with yt-dlp into a private work dir and checks it
// against the upload limit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"tgvidbot/internal/downloader"
	"tgvidbot/internal/extract"
	"tgvidbot/internal/model"
	"tgvidbot/internal/platform"
	"tgvidbot/internal/progress"
	"tgvidbot/internal/util"
	"tgvidbot/internal/util/format"
	"tgvidbot/internal/util/media"
)

const (
	DefaultWorkers = 2
	// DefaultMaxUploadBytes is the local Bot API server limit (2000 MB).
	DefaultMaxUploadBytes int64 = 2000 * 1024 * 1024
)

var (
	// ErrTooLarge is returned when a file would exceed the upload limit.
	ErrTooLarge = errors.New("file exceeds upload limit")
	// ErrEmptyFile is returned when yt-dlp produced a zero-byte file.
	ErrEmptyFile = errors.New("downloaded file is empty")
)

// Job is one delivery request.
type Job struct {
	ID        string // generated when empty
	VideoID   int64
	SourceURL string
	Platform  platform.ID
	Title     string
	// Quality is a tier number ("720") or "audio".
	Quality         string
	FileType        model.FileType
	DurationSeconds int
	// KnownSize is the extractor-reported size, 0 when unknown.
	KnownSize int64
}

// Result is the outcome of RunJob. The caller owns TempDir and must call
// Cleanup once the file has been uploaded.
type Result struct {
	JobID    string
	Path     string
	FileName string
	Bytes    int64
	TempDir  string
}

// Cleanup removes the job's work dir.
func (r Result) Cleanup() error {
	if r.TempDir == "" {
		return nil
	}
	return util.RemoveAll(r.TempDir)
}

// Service runs delivery jobs with bounded concurrency.
type Service struct {
	dlPath          string
	runner          util.CmdRunner
	reporter        progress.Reporter
	log             *zap.Logger
	tempBase        string
	maxUpload       int64
	workers         int
	verbose         bool
	defaultOptions  extract.Options
	platformOptions map[platform.ID]extract.Options

	sem *semaphore.Weighted
}

// Option configures a Service.
type Option func(*Service)

// WithDownloaderPath sets the yt-dlp binary path.
func WithDownloaderPath(p string) Option {
	return func(s *Service) {
		s.dlPath = p
	}
}

// WithRunner injects a custom command runner (useful for testing).
func WithRunner(r util.CmdRunner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// WithReporter attaches a default progress reporter; RunJob callers may
// pass their own per job.
func WithReporter(rp progress.Reporter) Option {
	return func(s *Service) {
		s.reporter = rp
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// WithTempDir sets the parent of per-job work dirs.
func WithTempDir(dir string) Option {
	return func(s *Service) {
		s.tempBase = dir
	}
}

// WithMaxUploadBytes sets the upload limit.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) {
		s.maxUpload = n
	}
}

// WithWorkers bounds concurrent downloads.
func WithWorkers(n int) Option {
	return func(s *Service) {
		s.workers = n
	}
}

// WithVerbose logs every yt-dlp output line at debug level.
func WithVerbose(v bool) Option {
	return func(s *Service) {
		s.verbose = v
	}
}

// WithOptions sets the yt-dlp network options used for every platform.
func WithOptions(o extract.Options) Option {
	return func(s *Service) {
		s.defaultOptions = o
	}
}

// WithPlatformOptions overrides the yt-dlp network options of one platform.
func WithPlatformOptions(id platform.ID, o extract.Options) Option {
	return func(s *Service) {
		s.platformOptions[id] = o
	}
}

// NewService constructs a Service, applying defaults for missing parts.
func NewService(opts ...Option) *Service {
	s := &Service{
		maxUpload:       DefaultMaxUploadBytes,
		workers:         DefaultWorkers,
		platformOptions: make(map[platform.ID]extract.Options),
	}
	for _, o := range opts {
		o(s)
	}
	if s.runner == nil {
		s.runner = util.NewDefaultRunner()
	}
	if s.reporter == nil {
		s.reporter = progress.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.workers <= 0 {
		s.workers = DefaultWorkers
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}
	s.sem = semaphore.NewWeighted(int64(s.workers))
	return s
}

// MaxUploadBytes returns the configured upload limit.
func (s *Service) MaxUploadBytes() int64 {
	return s.maxUpload
}

func (s *Service) optionsFor(id platform.ID) extract.Options {
	if o, ok := s.platformOptions[id]; ok {
		return o
	}
	return s.defaultOptions
}

// RunJob downloads one rendition. rep may be nil to use the service
// reporter. On success the caller must Cleanup the result.
func (s *Service) RunJob(ctx context.Context, job Job, rep progress.Reporter) (Result, error) {
	if rep == nil {
		rep = s.reporter
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	res := Result{JobID: job.ID}
	log := s.log.With(zap.String("job_id", job.ID), zap.Int64("video_id", job.VideoID),
		zap.String("quality", job.Quality), zap.String("platform", string(job.Platform)))

	fail := func(err error) (Result, error) {
		log.Warn("delivery failed", zap.Error(err))
		rep.Update(progress.Update{JobID: job.ID, Stage: progress.StageError, Percent: -1, Message: err.Error()})
		rep.Result(progress.Result{JobID: job.ID, Err: err})
		return res, err
	}

	if s.dlPath == "" {
		return fail(errors.New("downloader path is required"))
	}
	if !job.FileType.Valid() {
		return fail(fmt.Errorf("unknown file type %q", job.FileType))
	}
	if job.SourceURL == "" {
		return fail(errors.New("source url is required"))
	}
	p := Describe(job, s.maxUpload)
	if p.TooLarge {
		return fail(fmt.Errorf("%w: about %s, limit %s", ErrTooLarge,
			format.HumanizeBytes(p.EstimatedBytes), format.HumanizeBytes(s.maxUpload)))
	}

	rep.Update(progress.Update{JobID: job.ID, Stage: progress.StageQueued, Percent: -1, Message: "Queued"})
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fail(err)
	}
	defer s.sem.Release(1)

	dir, err := util.MakeJobDir(s.tempBase, job.ID)
	if err != nil {
		return fail(err)
	}
	cleanupOnErr := func(err error) (Result, error) {
		_ = util.RemoveAll(dir)
		return fail(err)
	}

	dl := &downloader.Downloader{Path: s.dlPath, Runner: s.runner, Logger: s.log, Verbose: s.verbose}
	path, err := dl.Download(ctx, downloader.Request{
		URL:         job.SourceURL,
		Platform:    job.Platform,
		Quality:     job.Quality,
		FileType:    job.FileType,
		Dir:         dir,
		JobID:       job.ID,
		Options:     s.optionsFor(job.Platform),
		MaxFilesize: s.maxUpload,
	}, rep)
	if err != nil {
		return cleanupOnErr(err)
	}

	st, err := os.Stat(path)
	if err != nil {
		return cleanupOnErr(err)
	}
	switch {
	case st.Size() == 0:
		return cleanupOnErr(ErrEmptyFile)
	case st.Size() > s.maxUpload:
		return cleanupOnErr(fmt.Errorf("%w: %s, limit %s", ErrTooLarge,
			format.HumanizeBytes(st.Size()), format.HumanizeBytes(s.maxUpload)))
	}

	res.Path = path
	res.Bytes = st.Size()
	res.TempDir = dir
	res.FileName = media.UploadName(job.Title, job.Quality, job.FileType, filepath.Ext(path))

	log.Info("downloaded", zap.Int64("bytes", res.Bytes), zap.String("file", res.FileName))
	rep.Update(progress.Update{
		JobID:   job.ID,
		Stage:   progress.StageCompleted,
		Percent: 100,
		Bytes:   &res.Bytes,
		Message: fmt.Sprintf("Downloaded: %s (%s)", res.FileName, format.HumanizeBytes(res.Bytes)),
	})
	rep.Result(progress.Result{JobID: job.ID, OutputPath: path, Bytes: res.Bytes})
	return res, nil
}
