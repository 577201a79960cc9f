package bot

import (
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tgvidbot/internal/progress"
)

// statusReporter mirrors pipeline progress into the keyboard message's
// caption. Edits within one stage are throttled; a stage change is shown
// at once.
type statusReporter struct {
	b    *Bot
	msg  *tgbotapi.Message
	base string

	mu        sync.Mutex
	last      time.Time
	lastStage progress.Stage
	lastNote  string
}

func (b *Bot) newStatus(msg *tgbotapi.Message, base string) *statusReporter {
	return &statusReporter{
		b:         b,
		msg:       msg,
		base:      base,
		last:      b.now(),
		lastStage: progress.StageDownloading,
		lastNote:  downloadingNote,
	}
}

func statusNote(u progress.Update) (string, bool) {
	switch u.Stage {
	case progress.StageDownloading:
		if u.Percent >= 0 {
			return fmt.Sprintf("%s %.0f%%", downloadingNote, u.Percent), true
		}
		return downloadingNote, true
	case progress.StageMerging:
		return mergingNote, true
	case progress.StageUploading:
		return uploadingNote, true
	}
	return "", false
}

func (r *statusReporter) Update(u progress.Update) {
	note, ok := statusNote(u)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.b.now()
	if note == r.lastNote {
		return
	}
	if u.Stage == r.lastStage && now.Sub(r.last) < r.b.statusInterval {
		return
	}
	r.last, r.lastStage, r.lastNote = now, u.Stage, note

	if err := r.b.editBody(r.msg, r.base+"\n\n"+note, nil); err != nil && !isBadRequest(err) {
		r.b.log.Debug("status edit", zap.Error(err))
	}
}

func (r *statusReporter) Log(progress.Log) {}

func (r *statusReporter) Result(progress.Result) {}
