package bot

import (
	"errors"
	"testing"

	"tgvidbot/internal/model"
)

func TestCallbackRoundTrip(t *testing.T) {
	tests := []struct {
		videoID int64
		quality string
		ft      model.FileType
		want    string
	}{
		{12, "720", model.FileVideo, "dl_12_720_video"},
		{1, "144", model.FileVideo, "dl_1_144_video"},
		{9000000000, "audio", model.FileAudio, "dl_9000000000_audio_audio"},
	}
	for _, tt := range tests {
		data := CallbackData(tt.videoID, tt.quality, tt.ft)
		if data != tt.want {
			t.Errorf("CallbackData() = %q, want %q", data, tt.want)
		}
		if len(data) > 64 {
			t.Errorf("callback data %q exceeds Telegram's 64 byte limit", data)
		}
		got, err := ParseCallback(data)
		if err != nil {
			t.Fatalf("ParseCallback(%q) error = %v", data, err)
		}
		if got != (Callback{VideoID: tt.videoID, Quality: tt.quality, FileType: tt.ft}) {
			t.Errorf("ParseCallback(%q) = %+v", data, got)
		}
	}
}

func TestParseCallbackRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"wrong prefix", "get_1_720_video"},
		{"too few parts", "dl_1_720"},
		{"too many parts", "dl_1_720_video_x"},
		{"non numeric id", "dl_x_720_video"},
		{"zero id", "dl_0_720_video"},
		{"off ladder tier", "dl_1_1440_video"},
		{"url prefixed tier", "dl_1_url720_video"},
		{"audio quality with video type", "dl_1_audio_video"},
		{"video quality with audio type", "dl_1_720_audio"},
		{"unknown file type", "dl_1_720_gif"},
		{"admin refresh", refreshStatsData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCallback(tt.data); !errors.Is(err, ErrBadCallback) {
				t.Errorf("ParseCallback(%q) error = %v, want ErrBadCallback", tt.data, err)
			}
		})
	}
}
