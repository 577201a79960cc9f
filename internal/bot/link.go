package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tgvidbot/internal/platform"
	"tgvidbot/internal/store"
)

// findLink returns the first link in text when it points at a supported
// platform.
func findLink(text string) (string, bool) {
	link := platform.CleanURL(text)
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		return "", false
	}
	if _, ok := platform.Detect(link); !ok {
		return "", false
	}
	return link, true
}

// handleLink resolves a link and answers with the thumbnail, caption and
// download keyboard.
func (b *Bot) handleLink(ctx context.Context, msg *tgbotapi.Message, link string) {
	chatID := msg.Chat.ID
	log := b.log.With(zap.Int64("chat_id", chatID), zap.String("url", link))
	b.registerUser(ctx, msg.From)

	status, err := b.reply(chatID, fetchingText)
	if err != nil {
		return
	}
	fail := func(text string) {
		if _, err := b.api.Request(tgbotapi.NewEditMessageText(chatID, status.MessageID, text)); err != nil {
			b.reply(chatID, text)
		}
	}

	info, err := b.resolver.Resolve(ctx, link)
	if err != nil {
		log.Info("resolve failed", zap.Error(err))
		fail(UserMessage(err))
		return
	}

	video := store.Video{
		SourceURL:    info.SourceURL,
		Title:        info.Title,
		Author:       info.Author,
		Duration:     info.DurationSeconds,
		ThumbnailURL: info.ThumbnailURL,
		Platform:     info.Platform,
		UploadDate:   b.now(),
	}
	if video.SourceURL == "" {
		video.SourceURL = link
	}
	videoID, err := b.store.UpsertVideo(ctx, video)
	if err != nil {
		log.Error("store video", zap.Error(err))
		fail(processingError)
		return
	}
	files, err := b.store.FilesForVideo(ctx, videoID)
	if err != nil {
		log.Warn("load cached files", zap.Int64("video_id", videoID), zap.Error(err))
	}

	caption := InitialCaption(video, b.now())
	kb := Keyboard(videoID, info, files, b.maxUpload)
	b.request(tgbotapi.NewDeleteMessage(chatID, status.MessageID), "delete status")

	if info.ThumbnailURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(info.ThumbnailURL))
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = kb
		_, err := b.api.Send(photo)
		if err == nil {
			return
		}
		log.Debug("send thumbnail, falling back to text", zap.Error(err))
	}
	text := tgbotapi.NewMessage(chatID, caption)
	text.ParseMode = tgbotapi.ModeHTML
	text.DisableWebPagePreview = true
	text.ReplyMarkup = kb
	if _, err := b.api.Send(text); err != nil {
		log.Error("send keyboard", zap.Error(err))
		b.reply(chatID, processingError)
	}
}
