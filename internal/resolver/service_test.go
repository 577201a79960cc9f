package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgvidbot/internal/cache"
	"tgvidbot/internal/extract"
	"tgvidbot/internal/platform"
)

type countingExtractor struct {
	calls atomic.Int32
	fn    func(ctx context.Context, url string) (extract.Record, error)
}

func (c *countingExtractor) Extract(ctx context.Context, url string) (extract.Record, error) {
	c.calls.Add(1)
	return c.fn(ctx, url)
}

func returning(rec extract.Record, err error) *countingExtractor {
	return &countingExtractor{fn: func(context.Context, string) (extract.Record, error) {
		return rec, err
	}}
}

func youtubeRecord() extract.Record {
	return extract.Record{
		"title":    "Clip",
		"uploader": "Chan",
		"duration": 61,
		"formats": []any{
			map[string]any{"url": "a", "acodec": "mp4a", "vcodec": "none", "filesize": 3_000_000},
			map[string]any{"url": "v720", "vcodec": "avc1", "height": 720, "filesize": 50_000_000},
			map[string]any{"url": "v1080", "vcodec": "avc1", "height": 1080, "filesize": 90_000_000},
		},
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestResolve_MuxedScenario(t *testing.T) {
	ext := returning(youtubeRecord(), nil)
	s := NewService(WithExtractor(platform.YouTube, ext))

	info, err := s.Resolve(context.Background(), "look 👉 https://youtu.be/abc #fun")
	require.NoError(t, err)

	require.Len(t, info.Renditions, 2)
	assert.Equal(t, "url1080", info.Renditions[0].FormatID)
	assert.Equal(t, int64(93_000_000), info.Renditions[0].ByteSize)
	assert.Equal(t, "url720", info.Renditions[1].FormatID)
	assert.Equal(t, int64(53_000_000), info.Renditions[1].ByteSize)
	require.NotNil(t, info.Audio)
	assert.Equal(t, "Clip", info.Title)
	assert.Equal(t, "youtube", info.Platform)
	assert.Equal(t, "https://youtu.be/abc", info.SourceURL)
}

func TestResolve_CachesWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	ext := returning(youtubeRecord(), nil)
	s := NewService(
		WithExtractor(platform.YouTube, ext),
		WithCache(cache.New(5*time.Minute, cache.WithClock(clock.Now))),
	)
	ctx := context.Background()

	first, err := s.Resolve(ctx, "https://www.youtube.com/watch?v=abc")
	require.NoError(t, err)
	first.Renditions[0].ByteSize = 1
	first.Title = "mutated"

	second, err := s.Resolve(ctx, "https://m.youtube.com/watch?v=abc#t=3")
	require.NoError(t, err)
	assert.Equal(t, int32(1), ext.calls.Load(), "equivalent link should hit the cache")
	assert.Equal(t, "Clip", second.Title)
	assert.Equal(t, int64(93_000_000), second.Renditions[0].ByteSize)

	clock.Advance(5 * time.Minute)
	_, err = s.Resolve(ctx, "https://www.youtube.com/watch?v=abc")
	require.NoError(t, err)
	assert.Equal(t, int32(2), ext.calls.Load(), "expired entry should be re-extracted")
}

func TestResolve_Unsupported(t *testing.T) {
	ext := returning(youtubeRecord(), nil)
	s := NewService(WithDefaultExtractor(ext))

	for _, link := range []string{"https://example.com/video", "not a link", ""} {
		_, err := s.Resolve(context.Background(), link)
		assert.ErrorIs(t, err, ErrUnsupportedPlatform, link)
	}
	assert.Equal(t, int32(0), ext.calls.Load())
}

func TestResolve_ExtractionFailures(t *testing.T) {
	tests := []struct {
		name     string
		ext      extract.Extractor
		wantKind Kind
		typed    bool
	}{
		{"empty record", returning(nil, nil), Generic, false},
		{"no formats", returning(extract.Record{"title": "x"}, nil), Generic, false},
		{"private", returning(nil, errors.New("yt-dlp: ERROR: This video is private")), Private, true},
		{"copyright", returning(nil, errors.New("blocked on copyright grounds")), CopyrightClaim, true},
		{"login", returning(nil, errors.New("Sign in to confirm you're not a bot")), RequiresAuth, true},
		{"unknown", returning(nil, errors.New("exit status 1")), Generic, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(WithExtractor(platform.TikTok, tt.ext))
			info, err := s.Resolve(context.Background(), "https://www.tiktok.com/@u/video/1")
			require.Error(t, err)
			assert.True(t, info.Empty())
			// empty output and backend errors stay distinguishable
			assert.Equal(t, !tt.typed, errors.Is(err, ErrExtractionFailed))

			var ee *ExtractionError
			assert.Equal(t, tt.typed, errors.As(err, &ee))
			assert.Equal(t, tt.wantKind, KindOf(err))
			if tt.typed {
				assert.Equal(t, platform.TikTok, ee.Platform)
			}
		})
	}
}

func TestResolve_FailuresAreNotCached(t *testing.T) {
	ext := returning(nil, errors.New("boom"))
	s := NewService(WithExtractor(platform.VK, ext))
	for i := 0; i < 2; i++ {
		_, err := s.Resolve(context.Background(), "https://vk.com/video1_2")
		require.Error(t, err)
	}
	assert.Equal(t, int32(2), ext.calls.Load())
}

func TestResolve_NoExtractor(t *testing.T) {
	s := NewService()
	_, err := s.Resolve(context.Background(), "https://rutube.ru/video/x/")
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestResolve_DefaultExtractor(t *testing.T) {
	ext := returning(extract.Record{"url": "https://cdn/v.mp4"}, nil)
	s := NewService(WithDefaultExtractor(ext))
	info, err := s.Resolve(context.Background(), "https://www.instagram.com/reel/abc/")
	require.NoError(t, err)
	require.Len(t, info.Renditions, 1)
	assert.Equal(t, "Default", info.Renditions[0].Label)
}

func TestResolve_Timeout(t *testing.T) {
	ext := &countingExtractor{fn: func(ctx context.Context, _ string) (extract.Record, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	s := NewService(WithExtractor(platform.YouTube, ext), WithTimeout(10*time.Millisecond))

	_, err := s.Resolve(context.Background(), "https://youtu.be/slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Generic, KindOf(err))
}

func TestResolve_SingleFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	ext := &countingExtractor{fn: func(context.Context, string) (extract.Record, error) {
		once.Do(func() { close(started) })
		<-release
		return youtubeRecord(), nil
	}}
	s := NewService(WithExtractor(platform.YouTube, ext))

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := s.Resolve(context.Background(), "https://youtu.be/same")
			errs[i] = err
			if err == nil {
				results[i] = info.Title
			}
		}(i)
	}
	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "Clip", results[i])
	}
	assert.Equal(t, int32(1), ext.calls.Load())
}

func TestResolve_CallerCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	ext := &countingExtractor{fn: func(context.Context, string) (extract.Record, error) {
		<-release
		return youtubeRecord(), nil
	}}
	s := NewService(WithExtractor(platform.YouTube, ext))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := s.Resolve(ctx, "https://youtu.be/stuck")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve_WorkersBound(t *testing.T) {
	var inFlight, peak atomic.Int32
	ext := &countingExtractor{fn: func(_ context.Context, url string) (extract.Record, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return youtubeRecord(), nil
	}}
	s := NewService(WithExtractor(platform.YouTube, ext), WithWorkers(2))

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = s.Resolve(context.Background(), "https://youtu.be/"+id)
		}(id)
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int32(6), ext.calls.Load())
}

func TestInvalidateAndClear(t *testing.T) {
	ext := returning(youtubeRecord(), nil)
	s := NewService(WithExtractor(platform.YouTube, ext))
	ctx := context.Background()

	_, _ = s.Resolve(ctx, "https://youtu.be/a")
	s.Invalidate("https://youtu.be/a#frag")
	_, _ = s.Resolve(ctx, "https://youtu.be/a")
	assert.Equal(t, int32(2), ext.calls.Load())

	s.ClearCache()
	_, _ = s.Resolve(ctx, "https://youtu.be/a")
	assert.Equal(t, int32(3), ext.calls.Load())
}
