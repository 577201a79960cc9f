package store

import "time"

// User is a bot user, registered on first contact.
type User struct {
	UserID    int64 `gorm:"primaryKey;autoIncrement:false"`
	Username  string
	IsAdmin   bool      `gorm:"index"`
	FirstSeen time.Time `gorm:"index"`
}

// Video is one resolved source link.
type Video struct {
	VideoID      int64  `gorm:"primaryKey"`
	SourceURL    string `gorm:"size:2048;uniqueIndex"`
	Title        string
	Author       string
	Duration     int
	ThumbnailURL string `gorm:"size:2048"`
	Platform     string
	UploadDate   time.Time
}

// File is an upload already sitting on Telegram's servers, reusable by its
// file id. Quality is the tier number ("720") or "audio".
type File struct {
	FileID         int64  `gorm:"primaryKey"`
	VideoID        int64  `gorm:"index:idx_files_lookup"`
	TelegramFileID string `gorm:"not null"`
	Type           string `gorm:"index:idx_files_lookup"`
	Size           int64
	Quality        string `gorm:"index:idx_files_lookup"`
	CreatedAt      time.Time
}

// Download records that a user received a file.
type Download struct {
	ID        int64 `gorm:"primaryKey"`
	UserID    int64 `gorm:"uniqueIndex:idx_downloads_unique"`
	VideoID   int64 `gorm:"uniqueIndex:idx_downloads_unique"`
	FileID    int64 `gorm:"uniqueIndex:idx_downloads_unique"`
	CreatedAt time.Time
}

// Stats counts users by first contact.
type Stats struct {
	Total int64
	Day   int64
	Week  int64
	Month int64
}
