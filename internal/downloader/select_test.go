package downloader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSelectDownloadedFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name      string
		files     []string
		empty     []string // created with zero bytes
		base      string
		wantFile  string
		wantError bool
	}{
		{
			name:     "prefers mp4 over webm",
			files:    []string{"media.webm", "media.mp4"},
			base:     "media",
			wantFile: "media.mp4",
		},
		{
			name:     "audio extraction result",
			files:    []string{"media.mp3", "media.webm.part"},
			base:     "media",
			wantFile: "media.mp3",
		},
		{
			name:     "webm when no mp4",
			files:    []string{"media.mkv", "media.webm"},
			base:     "media",
			wantFile: "media.webm",
		},
		{
			name:     "matching base beats better extension",
			files:    []string{"other.mp4", "media.mkv"},
			base:     "media",
			wantFile: "media.mkv",
		},
		{
			name:     "fallback to any file when base mismatch",
			files:    []string{"different.mp4"},
			base:     "media",
			wantFile: "different.mp4",
		},
		{
			name:      "ignores partials and thumbnails",
			files:     []string{"media.mp4.part", "media.jpg", "media.ytdl"},
			base:      "media",
			wantError: true,
		},
		{
			name:      "ignores empty files",
			empty:     []string{"media.mp4"},
			base:      "media",
			wantError: true,
		},
		{
			name:      "error when no files",
			base:      "media",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testDir := filepath.Join(tmpDir, tt.name)
			if err := os.MkdirAll(testDir, 0o755); err != nil {
				t.Fatalf("Failed to create test dir: %v", err)
			}
			for _, f := range tt.files {
				if err := os.WriteFile(filepath.Join(testDir, f), []byte("test"), 0o644); err != nil {
					t.Fatalf("Failed to create test file %s: %v", f, err)
				}
			}
			for _, f := range tt.empty {
				if err := os.WriteFile(filepath.Join(testDir, f), nil, 0o644); err != nil {
					t.Fatalf("Failed to create test file %s: %v", f, err)
				}
			}

			got, err := SelectDownloadedFile(testDir, tt.base)

			if tt.wantError {
				if !errors.Is(err, ErrNoOutput) {
					t.Errorf("SelectDownloadedFile() err = %v, want ErrNoOutput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SelectDownloadedFile() unexpected error: %v", err)
			}
			if gotBase := filepath.Base(got); gotBase != tt.wantFile {
				t.Errorf("SelectDownloadedFile() = %v, want %v", gotBase, tt.wantFile)
			}
		})
	}
}

func TestSelectDownloadedFile_MissingDir(t *testing.T) {
	if _, err := SelectDownloadedFile(filepath.Join(t.TempDir(), "nope"), "media"); err == nil {
		t.Error("expected error for missing dir")
	}
}
