package bot

import (
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tgvidbot/internal/progress"
)

func TestStatusReporterThrottles(t *testing.T) {
	now := fixedNow
	api := &fakeSender{}
	b := New(api, nil, nil, nil, WithClock(func() time.Time { return now }), WithStatusInterval(3*time.Second))
	msg := &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: chatID}, Photo: []tgbotapi.PhotoSize{{}}}
	rep := b.newStatus(msg, "base")

	steps := []struct {
		advance time.Duration
		update  progress.Update
		want    string // expected new caption suffix, empty when no edit
	}{
		{0, progress.Update{Stage: progress.StageDownloading, Percent: 10}, ""},
		{4 * time.Second, progress.Update{Stage: progress.StageDownloading, Percent: 20}, downloadingNote + " 20%"},
		{time.Second, progress.Update{Stage: progress.StageDownloading, Percent: 30}, ""},
		{0, progress.Update{Stage: progress.StageMerging, Percent: -1}, mergingNote},
		{0, progress.Update{Stage: progress.StageMerging, Percent: -1}, ""},
		{0, progress.Update{Stage: progress.StageQueued, Percent: -1}, ""},
		{0, progress.Update{Stage: progress.StageUploading, Percent: -1}, uploadingNote},
	}
	for i, s := range steps {
		now = now.Add(s.advance)
		before := len(api.captionEdits())
		rep.Update(s.update)
		edits := api.captionEdits()
		switch {
		case s.want == "" && len(edits) != before:
			t.Errorf("step %d: unexpected edit %q", i, edits[len(edits)-1].Caption)
		case s.want != "" && len(edits) == before:
			t.Errorf("step %d: no edit, want %q", i, s.want)
		case s.want != "":
			got := edits[len(edits)-1].Caption
			if !strings.HasPrefix(got, "base\n\n") || !strings.HasSuffix(got, s.want) {
				t.Errorf("step %d: caption = %q, want suffix %q", i, got, s.want)
			}
		}
	}
}
