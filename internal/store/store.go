// Package store persists users, resolved videos and the Telegram file ids of
// finished uploads in sqlite through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"moul.io/zapgorm2"
)

// MaxURLLength bounds stored links and thumbnail URLs.
const MaxURLLength = 2048

// Memory is the path of a private in-memory database.
const Memory = ":memory:"

// Store is safe for concurrent use.
type Store struct {
	db  *gorm.DB
	now func() time.Time
	log *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger routes gorm logging through l.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// WithClock injects the time source used for timestamps and statistics.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{now: time.Now, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}

	dsn := path
	if path != Memory {
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL"
	}
	gl := zapgorm2.New(s.log.Named("gorm"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gl,
		NowFunc: func() time.Time { return s.now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	// sqlite serializes writers; one connection also keeps :memory: a
	// single database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&User{}, &Video{}, &File{}, &Download{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	s.db = db
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// EnsureUser registers a user or refreshes the stored username.
func (s *Store) EnsureUser(ctx context.Context, userID int64, username string) error {
	u := User{UserID: userID, Username: username, FirstSeen: s.now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username"}),
	}).Create(&u).Error
	if err != nil {
		return fmt.Errorf("ensure user %d: %w", userID, err)
	}
	return nil
}

// UserExists reports whether userID has been registered.
func (s *Store) UserExists(ctx context.Context, userID int64) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("user exists %d: %w", userID, err)
	}
	return n > 0, nil
}

// SetAdmin grants or revokes admin rights, registering the user if needed.
func (s *Store) SetAdmin(ctx context.Context, userID int64, admin bool) error {
	u := User{UserID: userID, IsAdmin: admin, FirstSeen: s.now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_admin"}),
	}).Create(&u).Error
	if err != nil {
		return fmt.Errorf("set admin %d: %w", userID, err)
	}
	return nil
}

// AdminIDs lists users with admin rights.
func (s *Store) AdminIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("is_admin = ?", true).Order("user_id").Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("admin ids: %w", err)
	}
	return ids, nil
}

// IsAdmin reports whether userID has admin rights.
func (s *Store) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&User{}).Where("user_id = ? AND is_admin = ?", userID, true).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("is admin %d: %w", userID, err)
	}
	return n > 0, nil
}

// AllUserIDs lists every registered user.
func (s *Store) AllUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.WithContext(ctx).Model(&User{}).Order("user_id").Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("all user ids: %w", err)
	}
	return ids, nil
}

// UserStats counts all users and those first seen within the last day,
// week and 30 days.
func (s *Store) UserStats(ctx context.Context) (Stats, error) {
	now := s.now().UTC()
	db := s.db.WithContext(ctx).Model(&User{})

	var st Stats
	if err := db.Count(&st.Total).Error; err != nil {
		return Stats{}, fmt.Errorf("user stats: %w", err)
	}
	windows := []struct {
		dst *int64
		d   time.Duration
	}{
		{&st.Day, 24 * time.Hour},
		{&st.Week, 7 * 24 * time.Hour},
		{&st.Month, 30 * 24 * time.Hour},
	}
	for _, w := range windows {
		err := s.db.WithContext(ctx).Model(&User{}).Where("first_seen >= ?", now.Add(-w.d)).Count(w.dst).Error
		if err != nil {
			return Stats{}, fmt.Errorf("user stats: %w", err)
		}
	}
	return st, nil
}

// VideoByURL looks a video up by its source link.
func (s *Store) VideoByURL(ctx context.Context, sourceURL string) (Video, bool, error) {
	return s.findVideo(ctx, "source_url = ?", truncate(sourceURL, MaxURLLength))
}

// VideoByID looks a video up by id.
func (s *Store) VideoByID(ctx context.Context, videoID int64) (Video, bool, error) {
	return s.findVideo(ctx, "video_id = ?", videoID)
}

func (s *Store) findVideo(ctx context.Context, query string, arg any) (Video, bool, error) {
	var vs []Video
	res := s.db.WithContext(ctx).Where(query, arg).Limit(1).Find(&vs)
	if res.Error != nil {
		return Video{}, false, fmt.Errorf("find video: %w", res.Error)
	}
	if len(vs) == 0 {
		return Video{}, false, nil
	}
	return vs[0], true, nil
}

// UpsertVideo stores v keyed by its source link and returns its id. An
// existing row keeps its id and upload date; metadata is refreshed.
func (s *Store) UpsertVideo(ctx context.Context, v Video) (int64, error) {
	v.SourceURL = truncate(v.SourceURL, MaxURLLength)
	v.ThumbnailURL = truncate(v.ThumbnailURL, MaxURLLength)
	if v.SourceURL == "" {
		return 0, errors.New("upsert video: empty source url")
	}

	var id int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []Video
		if err := tx.Where("source_url = ?", v.SourceURL).Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) > 0 {
			id = existing[0].VideoID
			return tx.Model(&Video{}).Where("video_id = ?", id).Updates(map[string]any{
				"title":         v.Title,
				"author":        v.Author,
				"duration":      v.Duration,
				"thumbnail_url": v.ThumbnailURL,
				"platform":      v.Platform,
			}).Error
		}
		v.VideoID = 0
		if v.UploadDate.IsZero() {
			v.UploadDate = s.now().UTC()
		}
		if err := tx.Create(&v).Error; err != nil {
			return err
		}
		id = v.VideoID
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("upsert video: %w", err)
	}
	return id, nil
}

// FindFile returns a stored upload for a video, quality and file type.
func (s *Store) FindFile(ctx context.Context, videoID int64, quality, fileType string) (File, bool, error) {
	var fs []File
	res := s.db.WithContext(ctx).
		Where("video_id = ? AND quality = ? AND type = ?", videoID, quality, fileType).
		Order("file_id DESC").Limit(1).Find(&fs)
	if res.Error != nil {
		return File{}, false, fmt.Errorf("find file: %w", res.Error)
	}
	if len(fs) == 0 {
		return File{}, false, nil
	}
	return fs[0], true, nil
}

// FilesForVideo lists every stored upload of a video.
func (s *Store) FilesForVideo(ctx context.Context, videoID int64) ([]File, error) {
	var fs []File
	if err := s.db.WithContext(ctx).Where("video_id = ?", videoID).Order("file_id").Find(&fs).Error; err != nil {
		return nil, fmt.Errorf("files for video %d: %w", videoID, err)
	}
	return fs, nil
}

// AddFile stores an upload and returns its id.
func (s *Store) AddFile(ctx context.Context, f File) (int64, error) {
	if f.TelegramFileID == "" {
		return 0, errors.New("add file: empty telegram file id")
	}
	f.FileID = 0
	if err := s.db.WithContext(ctx).Create(&f).Error; err != nil {
		return 0, fmt.Errorf("add file: %w", err)
	}
	return f.FileID, nil
}

// AddDownload records a delivery; repeats are ignored.
func (s *Store) AddDownload(ctx context.Context, userID, videoID, fileID int64) error {
	d := Download{UserID: userID, VideoID: videoID, FileID: fileID}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&d).Error; err != nil {
		return fmt.Errorf("add download: %w", err)
	}
	return nil
}

// DownloadCount returns the number of recorded deliveries.
func (s *Store) DownloadCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Download{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("download count: %w", err)
	}
	return n, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
