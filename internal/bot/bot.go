// Package bot is the Telegram front end: it turns links into a download
// keyboard and button presses into delivered files.
package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tgvidbot/internal/model"
	"tgvidbot/internal/pipeline"
	"tgvidbot/internal/progress"
	"tgvidbot/internal/store"
)

const (
	// DefaultBroadcastDelay spaces broadcast sends to stay under Telegram's
	// per-bot rate limit.
	DefaultBroadcastDelay = 50 * time.Millisecond
	// DefaultStatusInterval throttles download progress edits.
	DefaultStatusInterval = 3 * time.Second
)

// Sender is the part of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Resolver turns a link into its available renditions.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (model.VideoInfo, error)
}

// Deliverer downloads one rendition to a local file.
type Deliverer interface {
	RunJob(ctx context.Context, job pipeline.Job, rep progress.Reporter) (pipeline.Result, error)
}

// Store persists users, videos and the Telegram file cache.
type Store interface {
	EnsureUser(ctx context.Context, userID int64, username string) error
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	AllUserIDs(ctx context.Context) ([]int64, error)
	UserStats(ctx context.Context) (store.Stats, error)
	DownloadCount(ctx context.Context) (int64, error)
	UpsertVideo(ctx context.Context, v store.Video) (int64, error)
	VideoByID(ctx context.Context, videoID int64) (store.Video, bool, error)
	FindFile(ctx context.Context, videoID int64, quality, fileType string) (store.File, bool, error)
	FilesForVideo(ctx context.Context, videoID int64) ([]store.File, error)
	AddFile(ctx context.Context, f store.File) (int64, error)
	AddDownload(ctx context.Context, userID, videoID, fileID int64) error
}

// Bot handles Telegram updates.
type Bot struct {
	api      Sender
	resolver Resolver
	pipeline Deliverer
	store    Store

	log            *zap.Logger
	now            func() time.Time
	maxUpload      int64
	broadcastDelay time.Duration
	statusInterval time.Duration

	// active holds the keyboard messages with a download in progress.
	active sync.Map
	wg     sync.WaitGroup
}

// Option configures a Bot.
type Option func(*Bot)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bot) {
		b.log = l
	}
}

// WithClock overrides time.Now for caption dates and throttling.
func WithClock(now func() time.Time) Option {
	return func(b *Bot) {
		b.now = now
	}
}

// WithMaxUploadBytes hides buttons over the upload limit.
func WithMaxUploadBytes(n int64) Option {
	return func(b *Bot) {
		b.maxUpload = n
	}
}

// WithBroadcastDelay sets the pause between broadcast messages.
func WithBroadcastDelay(d time.Duration) Option {
	return func(b *Bot) {
		b.broadcastDelay = d
	}
}

// WithStatusInterval sets the minimum gap between progress edits.
func WithStatusInterval(d time.Duration) Option {
	return func(b *Bot) {
		b.statusInterval = d
	}
}

// New returns a Bot. All collaborators are required.
func New(api Sender, r Resolver, d Deliverer, st Store, opts ...Option) *Bot {
	b := &Bot{
		api:            api,
		resolver:       r,
		pipeline:       d,
		store:          st,
		now:            time.Now,
		maxUpload:      pipeline.DefaultMaxUploadBytes,
		broadcastDelay: DefaultBroadcastDelay,
		statusInterval: DefaultStatusInterval,
	}
	for _, o := range opts {
		o(b)
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	return b
}

// Run handles updates until ctx is done or the channel closes, one goroutine
// per update, and waits for in-flight handlers before returning.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, u)
			}()
		}
	}
}

// HandleUpdate dispatches one update. It never panics on a bad update;
// handler failures are logged.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("handler panic", zap.Any("panic", r), zap.Int("update_id", u.UpdateID))
		}
	}()

	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		b.handleMessage(ctx, u.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handleStart(ctx, msg)
			return
		case "admin":
			if b.isAdmin(ctx, msg.From) {
				b.handleAdmin(ctx, msg)
				return
			}
		case "broadcast":
			if b.isAdmin(ctx, msg.From) {
				b.handleBroadcast(ctx, msg)
				return
			}
		}
		b.reply(msg.Chat.ID, hintText)
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if link, ok := findLink(text); ok {
		b.handleLink(ctx, msg, link)
		return
	}
	b.reply(msg.Chat.ID, hintText)
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	b.registerUser(ctx, msg.From)
	b.reply(msg.Chat.ID, greetingText)
}

func (b *Bot) registerUser(ctx context.Context, u *tgbotapi.User) {
	if u == nil {
		return
	}
	if err := b.store.EnsureUser(ctx, u.ID, u.UserName); err != nil {
		b.log.Warn("register user", zap.Int64("user_id", u.ID), zap.Error(err))
	}
}

func (b *Bot) isAdmin(ctx context.Context, u *tgbotapi.User) bool {
	if u == nil {
		return false
	}
	ok, err := b.store.IsAdmin(ctx, u.ID)
	if err != nil {
		b.log.Warn("admin lookup", zap.Int64("user_id", u.ID), zap.Error(err))
	}
	return ok
}

// reply sends plain text, logging failures.
func (b *Bot) reply(chatID int64, text string) (tgbotapi.Message, error) {
	sent, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		b.log.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return sent, err
}

func (b *Bot) request(c tgbotapi.Chattable, what string) {
	if _, err := b.api.Request(c); err != nil {
		b.log.Debug(what, zap.Error(err))
	}
}

// editBody replaces the caption of a photo message or the text of a text
// message. A nil kb removes the keyboard.
func (b *Bot) editBody(msg *tgbotapi.Message, body string, kb *tgbotapi.InlineKeyboardMarkup) error {
	var c tgbotapi.Chattable
	if len(msg.Photo) > 0 {
		e := tgbotapi.NewEditMessageCaption(msg.Chat.ID, msg.MessageID, body)
		e.ParseMode = tgbotapi.ModeHTML
		e.ReplyMarkup = kb
		c = e
	} else {
		e := tgbotapi.NewEditMessageText(msg.Chat.ID, msg.MessageID, body)
		e.ParseMode = tgbotapi.ModeHTML
		e.DisableWebPagePreview = true
		e.ReplyMarkup = kb
		c = e
	}
	_, err := b.api.Request(c)
	return err
}

func isBadRequest(err error) bool {
	var tgErr *tgbotapi.Error
	return errors.As(err, &tgErr) && tgErr.Code == 400
}
