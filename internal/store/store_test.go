package store

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func openTest(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(Memory, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	ok, err := s.UserExists(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.EnsureUser(ctx, 1, "alice"))
	require.NoError(t, s.EnsureUser(ctx, 1, "alice2"))
	require.NoError(t, s.EnsureUser(ctx, 2, ""))

	ok, err = s.UserExists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := s.AllUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	require.NoError(t, s.SetAdmin(ctx, 2, true))
	require.NoError(t, s.SetAdmin(ctx, 3, true))
	admins, err := s.AdminIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, admins)

	isAdmin, err := s.IsAdmin(ctx, 1)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	// re-registering keeps admin rights
	require.NoError(t, s.EnsureUser(ctx, 2, "bob"))
	isAdmin, err = s.IsAdmin(ctx, 2)
	require.NoError(t, err)
	assert.True(t, isAdmin)
}

func TestUserStats(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := &clock{}
	s := openTest(t, WithClock(c.Now))

	joins := []struct {
		id  int64
		ago time.Duration
	}{
		{1, 40 * 24 * time.Hour},
		{2, 20 * 24 * time.Hour},
		{3, 3 * 24 * time.Hour},
		{4, time.Hour},
	}
	for _, j := range joins {
		c.Set(base.Add(-j.ago))
		require.NoError(t, s.EnsureUser(ctx, j.id, ""))
	}
	c.Set(base)

	st, err := s.UserStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 4, Day: 1, Week: 2, Month: 3}, st)
}

func TestUpsertVideo(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	_, found, err := s.VideoByURL(ctx, "https://youtu.be/x")
	require.NoError(t, err)
	assert.False(t, found)

	id, err := s.UpsertVideo(ctx, Video{SourceURL: "https://youtu.be/x", Title: "One", Platform: "youtube", Duration: 10})
	require.NoError(t, err)
	require.NotZero(t, id)

	again, err := s.UpsertVideo(ctx, Video{SourceURL: "https://youtu.be/x", Title: "Two", Author: "A", Platform: "youtube"})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	v, found, err := s.VideoByID(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Two", v.Title)
	assert.Equal(t, "A", v.Author)
	assert.False(t, v.UploadDate.IsZero())

	other, err := s.UpsertVideo(ctx, Video{SourceURL: "https://vk.com/video1"})
	require.NoError(t, err)
	assert.NotEqual(t, id, other)

	_, found, err = s.VideoByID(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.UpsertVideo(ctx, Video{})
	assert.Error(t, err)
}

func TestUpsertVideo_TruncatesLongURLs(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	long := "https://vk.com/" + strings.Repeat("я", 2000)
	id, err := s.UpsertVideo(ctx, Video{SourceURL: long, ThumbnailURL: long})
	require.NoError(t, err)

	v, found, err := s.VideoByURL(ctx, long)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, v.VideoID)
	assert.LessOrEqual(t, len(v.SourceURL), MaxURLLength)
	assert.LessOrEqual(t, len(v.ThumbnailURL), MaxURLLength)
	assert.True(t, strings.HasPrefix(long, v.SourceURL))
}

func TestFilesAndDownloads(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	vid, err := s.UpsertVideo(ctx, Video{SourceURL: "https://youtu.be/x"})
	require.NoError(t, err)

	_, found, err := s.FindFile(ctx, vid, "720", "video")
	require.NoError(t, err)
	assert.False(t, found)

	fid, err := s.AddFile(ctx, File{VideoID: vid, TelegramFileID: "tg-720", Type: "video", Size: 100, Quality: "720"})
	require.NoError(t, err)
	_, err = s.AddFile(ctx, File{VideoID: vid, TelegramFileID: "tg-audio", Type: "audio", Quality: "audio"})
	require.NoError(t, err)
	_, err = s.AddFile(ctx, File{VideoID: vid, Type: "video"})
	assert.Error(t, err)

	f, found, err := s.FindFile(ctx, vid, "720", "video")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, fid, f.FileID)
	assert.Equal(t, "tg-720", f.TelegramFileID)

	_, found, err = s.FindFile(ctx, vid, "720", "audio")
	require.NoError(t, err)
	assert.False(t, found)

	files, err := s.FilesForVideo(ctx, vid)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	require.NoError(t, s.AddDownload(ctx, 1, vid, fid))
	require.NoError(t, s.AddDownload(ctx, 1, vid, fid))
	require.NoError(t, s.AddDownload(ctx, 2, vid, fid))
	n, err := s.DownloadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	// "é" is two bytes; cutting inside it backs off to the rune start
	assert.Equal(t, "a", truncate("aé", 2))
}
