package downloader

import (
	"testing"
	"time"

	"tgvidbot/internal/progress"
)

func TestParseProgress(t *testing.T) {
	sec := func(n int) *time.Duration {
		d := time.Duration(n) * time.Second
		return &d
	}
	tests := []struct {
		name    string
		line    string
		ok      bool
		stage   progress.Stage
		percent float64
		speed   string
		eta     *time.Duration
	}{
		{
			name: "video stream", ok: true, stage: progress.StageDownloading,
			line:    "[download]  45.2% of   80.13MiB at    1.50MiB/s ETA 00:29",
			percent: 45.2, speed: "1.50MiB/s", eta: sec(29),
		},
		{
			name: "hls fragments with approximate size", ok: true, stage: progress.StageDownloading,
			line:    "[download]  12.3% of ~ 310.50MiB at  2.10MiB/s ETA 02:05 (frag 5/40)",
			percent: 12.3, speed: "2.10MiB/s", eta: sec(125),
		},
		{
			name: "unknown rate and eta", ok: true, stage: progress.StageDownloading,
			line:    "[download]   0.0% of    3.52MiB at  Unknown B/s ETA Unknown",
			percent: 0,
		},
		{
			name: "finished stream", ok: true, stage: progress.StageDownloading,
			line:    "[download] 100% of   40.12MiB in 00:00:07 at 5.55MiB/s",
			percent: 100, speed: "5.55MiB/s",
		},
		{
			name: "long eta", ok: true, stage: progress.StageDownloading,
			line:    "[download]   1.0% of    1.95GiB at  300.00KiB/s ETA 01:52:10",
			percent: 1, speed: "300.00KiB/s", eta: sec(6730),
		},
		{
			name: "merging audio and video", ok: true, stage: progress.StageMerging, percent: -1,
			line: `[Merger] Merging formats into "/tmp/tgvidbot/job/media.mp4"`,
		},
		{
			name: "audio extraction", ok: true, stage: progress.StageMerging, percent: -1,
			line: "[ExtractAudio] Destination: /tmp/tgvidbot/job/media.mp3",
		},
		{
			name: "hls container fixup", ok: true, stage: progress.StageMerging, percent: -1,
			line: `[FixupM3u8] Fixing MPEG-TS in MP4 container of "/tmp/tgvidbot/job/media.mp4"`,
		},
		{name: "destination", line: "[download] Destination: /tmp/tgvidbot/job/media.f137.mp4"},
		{name: "already downloaded", line: "[download] /tmp/tgvidbot/job/media.mp4 has already been downloaded"},
		{name: "extractor chatter", line: "[youtube] dQw4w9WgXcQ: Downloading webpage"},
		{name: "manifest", line: "[hlsnative] Downloading m3u8 manifest"},
		{name: "blank", line: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, ok := ParseProgress(tt.line, "job-1")
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if u.JobID != "job-1" || u.Stage != tt.stage || u.Percent != tt.percent {
				t.Errorf("update = %+v, want stage %s at %.1f%%", u, tt.stage, tt.percent)
			}
			switch {
			case tt.speed == "" && u.Speed != nil:
				t.Errorf("speed = %q, want none", *u.Speed)
			case tt.speed != "" && (u.Speed == nil || *u.Speed != tt.speed):
				t.Errorf("speed = %v, want %q", u.Speed, tt.speed)
			}
			switch {
			case tt.eta == nil && u.ETA != nil:
				t.Errorf("eta = %v, want none", *u.ETA)
			case tt.eta != nil && (u.ETA == nil || *u.ETA != *tt.eta):
				t.Errorf("eta = %v, want %v", u.ETA, *tt.eta)
			}
		})
	}
}

func TestParseETA(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "45", want: 45 * time.Second},
		{in: "02:05", want: 2*time.Minute + 5*time.Second},
		{in: "01:52:10", want: time.Hour + 52*time.Minute + 10*time.Second},
		{in: "00:00", want: 0},
		{in: "Unknown", wantErr: true},
		{in: "02:xx", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "1:2:3:4", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseETA(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseETA(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseETA(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
