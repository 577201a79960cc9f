package bot

import (
	"testing"
	"time"

	"tgvidbot/internal/model"
	"tgvidbot/internal/store"
)

func TestInitialCaption(t *testing.T) {
	now := time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		video store.Video
		want  string
	}{
		{
			name: "full",
			video: store.Video{
				Title:     "Cats & <Dogs>",
				Author:    "Best Pets TV",
				SourceURL: "https://youtu.be/abc",
				Duration:  3725,
			},
			want: "<code>🍿 Cats &amp; &lt;Dogs&gt;</code>\n" +
				"🔗 https://youtu.be/abc\n" +
				"👤 Автор: #Best_Pets_TV\n" +
				"📅 Дата: 07.03.2026\n" +
				"⏱ Продолжительность: 1:02:05",
		},
		{
			name:  "defaults",
			video: store.Video{SourceURL: "https://vk.com/clip-1_2", Duration: 59},
			want: "<code>🍿 Без названия</code>\n" +
				"🔗 https://vk.com/clip-1_2\n" +
				"👤 Автор: #Unknown\n" +
				"📅 Дата: 07.03.2026\n" +
				"⏱ Продолжительность: 0:59",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InitialCaption(tt.video, now); got != tt.want {
				t.Errorf("InitialCaption() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestDownloadCaption(t *testing.T) {
	now := time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)
	v := store.Video{Title: "Clip", Author: "A", SourceURL: "https://youtu.be/abc", Duration: 10}
	base := InitialCaption(v, now)

	tests := []struct {
		quality string
		ft      model.FileType
		want    string
	}{
		{"720", model.FileVideo, base + "\n📺 Качество: 1280x720"},
		{"480", model.FileVideo, base + "\n📺 Качество: 852x480"},
		{"audio", model.FileAudio, base + "\n💿 Тип: Аудио"},
		{"999", model.FileVideo, base},
	}
	for _, tt := range tests {
		if got := DownloadCaption(v, tt.quality, tt.ft, now); got != tt.want {
			t.Errorf("DownloadCaption(%q, %q) =\n%s\nwant\n%s", tt.quality, tt.ft, got, tt.want)
		}
	}
}
