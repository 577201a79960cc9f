package bot

import (
	"context"
	"errors"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tgvidbot/internal/model"
	"tgvidbot/internal/pipeline"
	"tgvidbot/internal/platform"
	"tgvidbot/internal/progress"
	"tgvidbot/internal/store"
)

type activeKey struct {
	chatID    int64
	messageID int
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Data == refreshStatsData {
		b.request(tgbotapi.NewCallback(cq.ID, ""), "answer callback")
		if cq.Message != nil && cq.Message.Chat != nil && b.isAdmin(ctx, cq.From) {
			b.refreshStats(ctx, cq.Message)
		}
		return
	}

	cb, err := ParseCallback(cq.Data)
	if err != nil || cq.Message == nil || cq.Message.Chat == nil {
		b.request(tgbotapi.NewCallback(cq.ID, ""), "answer callback")
		b.log.Debug("ignoring callback", zap.String("data", cq.Data), zap.Error(err))
		return
	}

	key := activeKey{cq.Message.Chat.ID, cq.Message.MessageID}
	if _, busy := b.active.LoadOrStore(key, struct{}{}); busy {
		b.request(tgbotapi.NewCallback(cq.ID, busyText), "answer callback")
		return
	}
	defer b.active.Delete(key)

	// answered before the download so Telegram stops the button spinner
	b.request(tgbotapi.NewCallback(cq.ID, ""), "answer callback")
	b.deliver(ctx, cq, cb)
}

// deliver sends the requested file: straight from the Telegram file cache
// when it was uploaded before, otherwise through the download pipeline.
func (b *Bot) deliver(ctx context.Context, cq *tgbotapi.CallbackQuery, cb Callback) {
	msg := cq.Message
	chatID := msg.Chat.ID
	var userID int64
	if cq.From != nil {
		userID = cq.From.ID
	}
	log := b.log.With(zap.Int64("chat_id", chatID), zap.Int64("video_id", cb.VideoID),
		zap.String("quality", cb.Quality))

	video, ok, err := b.store.VideoByID(ctx, cb.VideoID)
	if err != nil {
		log.Error("load video", zap.Error(err))
		b.reply(chatID, processingError)
		return
	}
	if !ok {
		b.reply(chatID, notFoundText)
		return
	}

	job := pipeline.Job{
		VideoID:         video.VideoID,
		SourceURL:       video.SourceURL,
		Platform:        platform.ID(video.Platform),
		Title:           video.Title,
		Quality:         cb.Quality,
		FileType:        cb.FileType,
		DurationSeconds: video.Duration,
	}
	if plan := pipeline.Describe(job, b.maxUpload); plan.TooLarge && plan.Estimated {
		// the bitrate estimate is pessimistic; ask the resolver for the real size
		if info, err := b.resolver.Resolve(ctx, video.SourceURL); err == nil {
			job.KnownSize = pipeline.KnownSize(info, cb.Quality, cb.FileType)
		}
	}
	if pipeline.Describe(job, b.maxUpload).TooLarge {
		b.reply(chatID, UserMessage(pipeline.ErrTooLarge))
		return
	}

	caption := DownloadCaption(video, cb.Quality, cb.FileType, b.now())
	cached, hit, err := b.store.FindFile(ctx, video.VideoID, cb.Quality, string(cb.FileType))
	if err != nil {
		log.Warn("file cache lookup", zap.Error(err))
	}
	if hit {
		_, err := b.sendFile(chatID, cb.FileType, tgbotapi.FileID(cached.TelegramFileID), caption, video)
		if err == nil {
			log.Info("served from file cache")
			b.request(tgbotapi.NewDeleteMessage(chatID, msg.MessageID), "delete keyboard")
			b.recordDownload(ctx, userID, video.VideoID, cached.FileID)
			return
		}
		// stale file ids happen after a bot token change; fall through
		log.Warn("send cached file", zap.Error(err))
	}

	base := InitialCaption(video, b.now())
	if err := b.editBody(msg, base+"\n\n"+downloadingNote, nil); err != nil {
		log.Debug("mark downloading", zap.Error(err))
	}
	b.request(tgbotapi.NewChatAction(chatID, chatAction(cb.FileType)), "chat action")

	status := b.newStatus(msg, base)
	res, err := b.pipeline.RunJob(ctx, job, status)
	if err != nil {
		log.Warn("download failed", zap.Error(err))
		b.restoreKeyboard(ctx, msg, video, base, err)
		return
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			log.Warn("cleanup", zap.String("dir", res.TempDir), zap.Error(err))
		}
	}()

	status.Update(progress.Update{JobID: res.JobID, Stage: progress.StageUploading, Percent: -1})
	sent, err := b.upload(chatID, cb.FileType, res, caption, video)
	if err != nil {
		log.Warn("upload failed", zap.String("job_id", res.JobID), zap.Error(err))
		b.restoreKeyboard(ctx, msg, video, base, err)
		return
	}
	b.request(tgbotapi.NewDeleteMessage(chatID, msg.MessageID), "delete keyboard")

	tgID := uploadedFileID(sent)
	if tgID == "" {
		log.Warn("upload returned no file id", zap.String("job_id", res.JobID))
		return
	}
	fileID, err := b.store.AddFile(ctx, store.File{
		VideoID:        video.VideoID,
		TelegramFileID: tgID,
		Type:           string(cb.FileType),
		Size:           res.Bytes,
		Quality:        cb.Quality,
	})
	if err != nil {
		log.Error("store file", zap.Error(err))
		return
	}
	b.recordDownload(ctx, userID, video.VideoID, fileID)
	log.Info("delivered", zap.String("job_id", res.JobID), zap.Int64("bytes", res.Bytes))
}

func (b *Bot) upload(chatID int64, ft model.FileType, res pipeline.Result, caption string, v store.Video) (tgbotapi.Message, error) {
	f, err := os.Open(res.Path)
	if err != nil {
		return tgbotapi.Message{}, err
	}
	defer f.Close()
	return b.sendFile(chatID, ft, tgbotapi.FileReader{Name: res.FileName, Reader: f}, caption, v)
}

func (b *Bot) sendFile(chatID int64, ft model.FileType, file tgbotapi.RequestFileData, caption string, v store.Video) (tgbotapi.Message, error) {
	if ft == model.FileAudio {
		a := tgbotapi.NewAudio(chatID, file)
		a.Caption = caption
		a.ParseMode = tgbotapi.ModeHTML
		a.Title = v.Title
		a.Performer = v.Author
		a.Duration = v.Duration
		return b.api.Send(a)
	}
	vc := tgbotapi.NewVideo(chatID, file)
	vc.Caption = caption
	vc.ParseMode = tgbotapi.ModeHTML
	vc.Duration = v.Duration
	vc.SupportsStreaming = true
	return b.api.Send(vc)
}

// restoreKeyboard puts the buttons back with an error note so the user can
// retry or pick another quality.
func (b *Bot) restoreKeyboard(ctx context.Context, msg *tgbotapi.Message, v store.Video, base string, cause error) {
	note := downloadFailed
	if errors.Is(cause, pipeline.ErrTooLarge) {
		note = UserMessage(cause)
	}
	var kb *tgbotapi.InlineKeyboardMarkup
	if info, err := b.resolver.Resolve(ctx, v.SourceURL); err == nil {
		files, _ := b.store.FilesForVideo(ctx, v.VideoID)
		k := Keyboard(v.VideoID, info, files, b.maxUpload)
		kb = &k
	}
	if err := b.editBody(msg, base+"\n\n"+note, kb); err != nil {
		b.log.Debug("restore keyboard", zap.Error(err))
		b.reply(msg.Chat.ID, note)
	}
}

func (b *Bot) recordDownload(ctx context.Context, userID, videoID, fileID int64) {
	if userID == 0 {
		return
	}
	if err := b.store.AddDownload(ctx, userID, videoID, fileID); err != nil {
		b.log.Warn("record download", zap.Error(err))
	}
}

func uploadedFileID(m tgbotapi.Message) string {
	switch {
	case m.Video != nil:
		return m.Video.FileID
	case m.Audio != nil:
		return m.Audio.FileID
	case m.Document != nil:
		return m.Document.FileID
	}
	return ""
}

func chatAction(ft model.FileType) string {
	if ft == model.FileAudio {
		return tgbotapi.ChatUploadDocument
	}
	return tgbotapi.ChatUploadVideo
}
