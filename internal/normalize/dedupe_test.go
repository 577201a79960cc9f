package normalize

import (
	"testing"

	"tgvidbot/internal/extract"
	"tgvidbot/internal/model"
	"tgvidbot/internal/platform"
)

func ids(rs []model.Rendition) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.FormatID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDedupe(t *testing.T) {
	tests := []struct {
		name      string
		in        []model.Rendition
		wantIDs   []string
		wantSizes map[string]int64
	}{
		{
			name: "largest per id",
			in: []model.Rendition{
				{FormatID: "url720", ByteSize: 100},
				{FormatID: "url720", ByteSize: 200},
				{FormatID: "url720", ByteSize: 150},
			},
			wantIDs:   []string{"url720"},
			wantSizes: map[string]int64{"url720": 200},
		},
		{
			name: "sorted by priority",
			in: []model.Rendition{
				{FormatID: "url360", Label: "360p"},
				{FormatID: "HD", Label: "HD"},
				{FormatID: "url1080", Label: "1080p"},
				{FormatID: "url144", Label: "144p"},
			},
			wantIDs: []string{"url1080", "url360", "url144", "HD"},
		},
		{
			name: "unknown size loses to known",
			in: []model.Rendition{
				{FormatID: "url480", ByteSize: 0, SourceURL: "unknown"},
				{FormatID: "url480", ByteSize: 1, SourceURL: "known"},
			},
			wantIDs:   []string{"url480"},
			wantSizes: map[string]int64{"url480": 1},
		},
		{
			name:    "empty",
			in:      nil,
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dedupe(tt.in)
			if !equalStrings(ids(got), tt.wantIDs) {
				t.Errorf("Dedupe() ids = %v, want %v", ids(got), tt.wantIDs)
			}
			for _, r := range got {
				if want, ok := tt.wantSizes[r.FormatID]; ok && r.ByteSize != want {
					t.Errorf("%s size = %d, want %d", r.FormatID, r.ByteSize, want)
				}
			}
		})
	}
}

func TestDedupe_Unique(t *testing.T) {
	in := []model.Rendition{
		{FormatID: "url720"}, {FormatID: "url1080"}, {FormatID: "url720"},
		{FormatID: "Default"}, {FormatID: "url1080"}, {FormatID: "Default"},
	}
	seen := map[string]bool{}
	for _, r := range Dedupe(in) {
		if seen[r.FormatID] {
			t.Errorf("duplicate format id %q", r.FormatID)
		}
		seen[r.FormatID] = true
	}
	if len(seen) != 3 {
		t.Errorf("got %d unique ids, want 3", len(seen))
	}
}

func TestBuildInfo(t *testing.T) {
	raw := extract.Record{
		"title":     "Clip",
		"channel":   "Some Channel",
		"thumbnail": "https://i/thumb.jpg",
		"duration":  "42.9",
		"formats": formats(
			map[string]any{"url": "v720", "vcodec": "avc1", "height": 720, "filesize": 50_000_000},
			map[string]any{"url": "v1080", "vcodec": "avc1", "height": 1080, "filesize": 90_000_000},
			map[string]any{"url": "a", "acodec": "mp4a", "vcodec": "none", "filesize": 3_000_000},
		),
	}

	info := BuildInfo(raw, "https://youtu.be/x", platform.YouTube, For(platform.YouTube))

	if info.Title != "Clip" || info.Author != "Some Channel" || info.DurationSeconds != 42 {
		t.Errorf("metadata = %+v", info)
	}
	if info.Platform != "youtube" || info.SourceURL != "https://youtu.be/x" {
		t.Errorf("source = %q %q", info.Platform, info.SourceURL)
	}
	if info.Audio == nil || info.Audio.ByteSize != 3_000_000 {
		t.Errorf("audio = %+v", info.Audio)
	}
	if !equalStrings(ids(info.Renditions), []string{"url1080", "url720"}) {
		t.Fatalf("renditions = %v, want [url1080 url720]", ids(info.Renditions))
	}
	if info.Renditions[0].ByteSize != 93_000_000 || info.Renditions[1].ByteSize != 53_000_000 {
		t.Errorf("sizes = %d, %d", info.Renditions[0].ByteSize, info.Renditions[1].ByteSize)
	}
}

func TestBuildInfo_Fallbacks(t *testing.T) {
	info := BuildInfo(extract.Record{"url": "https://cdn/v.mp4", "title": ""}, "u", platform.Instagram, For(platform.Instagram))
	if info.Title != UntitledTitle || info.Author != UnknownAuthor {
		t.Errorf("fallbacks = %q / %q", info.Title, info.Author)
	}
	if len(info.Renditions) != 1 || info.Renditions[0].Label != "Default" {
		t.Errorf("renditions = %+v", info.Renditions)
	}
	if info.Audio != nil {
		t.Errorf("unexpected audio %+v", info.Audio)
	}
}
