// Package resolver turns a shared link into a VideoInfo: it routes the link
// to a platform, runs the extraction backend in a bounded pool, normalizes
// the result and caches it.
package resolver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"tgvidbot/internal/cache"
	"tgvidbot/internal/extract"
	"tgvidbot/internal/model"
	"tgvidbot/internal/normalize"
	"tgvidbot/internal/platform"
)

const (
	DefaultWorkers = 4
	DefaultTimeout = 90 * time.Second
)

// Service resolves links. It is safe for concurrent use.
type Service struct {
	cache        *cache.Cache
	extractors   map[platform.ID]extract.Extractor
	fallback     extract.Extractor
	normalizers  map[platform.ID]normalize.Normalizer
	workers      int
	timeout      time.Duration
	singleFlight bool
	log          *zap.Logger

	sem   *semaphore.Weighted
	group singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithCache sets the resolution cache. A nil cache disables caching.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithExtractor sets the backend for one platform.
func WithExtractor(id platform.ID, e extract.Extractor) Option {
	return func(s *Service) {
		s.extractors[id] = e
	}
}

// WithDefaultExtractor sets the backend for platforms without their own.
func WithDefaultExtractor(e extract.Extractor) Option {
	return func(s *Service) {
		s.fallback = e
	}
}

// WithWorkers bounds concurrent extractions.
func WithWorkers(n int) Option {
	return func(s *Service) {
		s.workers = n
	}
}

// WithTimeout bounds a single extraction call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// WithSingleFlight toggles collapsing of concurrent resolutions of the
// same link into one extraction. On by default.
func WithSingleFlight(on bool) Option {
	return func(s *Service) {
		s.singleFlight = on
	}
}

// NewService constructs a Service. Without WithCache a default 5 minute
// cache is used.
func NewService(opts ...Option) *Service {
	s := &Service{
		cache:        cache.New(cache.DefaultTTL),
		extractors:   make(map[platform.ID]extract.Extractor),
		normalizers:  normalize.Table(),
		workers:      DefaultWorkers,
		timeout:      DefaultTimeout,
		singleFlight: true,
	}
	for _, o := range opts {
		o(s)
	}
	if s.workers <= 0 {
		s.workers = DefaultWorkers
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.sem = semaphore.NewWeighted(int64(s.workers))
	return s
}

// Resolve returns the renditions available for the link in rawURL, which
// may be embedded in surrounding text. Results are cached per canonical
// link; every returned value is an independent copy.
func (s *Service) Resolve(ctx context.Context, rawURL string) (model.VideoInfo, error) {
	link := platform.CleanURL(rawURL)
	id, ok := platform.Detect(link)
	if !ok {
		return model.VideoInfo{}, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, link)
	}
	key := platform.Canonical(link, id)
	log := s.log.With(zap.String("platform", string(id)), zap.String("url", key))

	if s.cache != nil {
		if info, ok := s.cache.Lookup(key); ok {
			log.Debug("resolve cache hit")
			return info, nil
		}
	}

	if !s.singleFlight {
		return s.resolve(ctx, key, id, log)
	}

	// The shared call outlives any single waiter so late joiners still get
	// the result; each waiter stops waiting on its own context.
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		return s.resolve(shared, key, id, log)
	})
	select {
	case <-ctx.Done():
		return model.VideoInfo{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.VideoInfo{}, res.Err
		}
		if res.Shared {
			log.Debug("joined in-flight resolution")
		}
		return res.Val.(model.VideoInfo).Clone(), nil
	}
}

func (s *Service) resolve(ctx context.Context, key string, id platform.ID, log *zap.Logger) (model.VideoInfo, error) {
	ext := s.extractorFor(id)
	if ext == nil {
		return model.VideoInfo{}, fmt.Errorf("%w: no extractor configured for %s", ErrExtractionFailed, id)
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return model.VideoInfo{}, err
	}
	defer s.sem.Release(1)

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	raw, err := ext.Extract(callCtx, key)
	cancel()
	if err != nil {
		kind := Classify(err)
		log.Warn("extraction failed", zap.Stringer("kind", kind), zap.Error(err))
		return model.VideoInfo{}, &ExtractionError{Platform: id, Kind: kind, Err: err}
	}
	if len(raw) == 0 {
		log.Warn("extraction returned no metadata")
		return model.VideoInfo{}, fmt.Errorf("%w: no metadata for %s", ErrExtractionFailed, key)
	}

	info := normalize.BuildInfo(raw, key, id, s.normalizerFor(id))
	if info.Empty() {
		log.Warn("no downloadable formats")
		return model.VideoInfo{}, fmt.Errorf("%w: no downloadable formats for %s", ErrExtractionFailed, key)
	}
	log.Info("resolved",
		zap.String("title", info.Title),
		zap.Int("renditions", len(info.Renditions)),
		zap.Bool("audio", info.Audio != nil),
		zap.Duration("took", time.Since(start)))

	if s.cache != nil {
		s.cache.Store(key, info)
	}
	return info.Clone(), nil
}

func (s *Service) extractorFor(id platform.ID) extract.Extractor {
	if e, ok := s.extractors[id]; ok && e != nil {
		return e
	}
	return s.fallback
}

func (s *Service) normalizerFor(id platform.ID) normalize.Normalizer {
	if n, ok := s.normalizers[id]; ok && n != nil {
		return n
	}
	return normalize.For(id)
}

// Invalidate drops the cached resolution of rawURL.
func (s *Service) Invalidate(rawURL string) {
	if s.cache == nil {
		return
	}
	link := platform.CleanURL(rawURL)
	if id, ok := platform.Detect(link); ok {
		link = platform.Canonical(link, id)
	}
	s.cache.Invalidate(link)
}

// ClearCache drops every cached resolution.
func (s *Service) ClearCache() {
	if s.cache != nil {
		s.cache.Clear()
	}
}
