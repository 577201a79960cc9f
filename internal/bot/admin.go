package bot

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) stats(ctx context.Context) (string, error) {
	s, err := b.store.UserStats(ctx)
	if err != nil {
		return "", err
	}
	n, err := b.store.DownloadCount(ctx)
	if err != nil {
		return "", err
	}
	return statsText(s, n), nil
}

func (b *Bot) handleAdmin(ctx context.Context, msg *tgbotapi.Message) {
	text, err := b.stats(ctx)
	if err != nil {
		b.log.Error("user stats", zap.Error(err))
		b.reply(msg.Chat.ID, processingError)
		return
	}
	m := tgbotapi.NewMessage(msg.Chat.ID, text)
	m.ReplyMarkup = adminKeyboard()
	if _, err := b.api.Send(m); err != nil {
		b.log.Warn("send stats", zap.Error(err))
	}
}

func (b *Bot) refreshStats(ctx context.Context, msg *tgbotapi.Message) {
	text, err := b.stats(ctx)
	if err != nil {
		b.log.Error("user stats", zap.Error(err))
		return
	}
	// unchanged stats come back as a 400 "message is not modified"
	b.request(tgbotapi.NewEditMessageTextAndMarkup(msg.Chat.ID, msg.MessageID, text, adminKeyboard()), "refresh stats")
}

// handleBroadcast sends "/broadcast <html text>" to every user, or copies
// the message the command replies to, which covers photos and captions.
func (b *Bot) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	var build func(chatID int64) tgbotapi.Chattable
	text := strings.TrimSpace(msg.CommandArguments())
	switch {
	case msg.ReplyToMessage != nil && msg.ReplyToMessage.Chat != nil:
		src := msg.ReplyToMessage
		build = func(chatID int64) tgbotapi.Chattable {
			return tgbotapi.NewCopyMessage(chatID, src.Chat.ID, src.MessageID)
		}
	case text != "":
		build = func(chatID int64) tgbotapi.Chattable {
			m := tgbotapi.NewMessage(chatID, text)
			m.ParseMode = tgbotapi.ModeHTML
			return m
		}
	default:
		b.reply(msg.Chat.ID, broadcastUsage)
		return
	}

	ids, err := b.store.AllUserIDs(ctx)
	if err != nil {
		b.log.Error("list users", zap.Error(err))
		b.reply(msg.Chat.ID, processingError)
		return
	}
	status, _ := b.reply(msg.Chat.ID, broadcastStartText)

	ok, failed := b.broadcast(ctx, ids, build)
	b.log.Info("broadcast finished", zap.Int("ok", ok), zap.Int("failed", failed))

	done := broadcastDoneText(ok, failed)
	if status.MessageID != 0 {
		if _, err := b.api.Request(tgbotapi.NewEditMessageText(msg.Chat.ID, status.MessageID, done)); err == nil {
			b.handleAdmin(ctx, msg)
			return
		}
	}
	b.reply(msg.Chat.ID, done)
	b.handleAdmin(ctx, msg)
}

// broadcast delivers build(id) to each user. Users not reached before ctx
// ends count as failed.
func (b *Bot) broadcast(ctx context.Context, ids []int64, build func(int64) tgbotapi.Chattable) (ok, failed int) {
	for i, id := range ids {
		if i > 0 && b.broadcastDelay > 0 {
			select {
			case <-ctx.Done():
				return ok, failed + len(ids) - i
			case <-time.After(b.broadcastDelay):
			}
		}
		if _, err := b.api.Request(build(id)); err != nil {
			b.log.Debug("broadcast send", zap.Int64("user_id", id), zap.Error(err))
			failed++
			continue
		}
		ok++
	}
	return ok, failed
}
