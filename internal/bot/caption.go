package bot

import (
	"html"
	"strconv"
	"strings"
	"time"

	"tgvidbot/internal/model"
	"tgvidbot/internal/quality"
	"tgvidbot/internal/store"
	"tgvidbot/internal/util/format"
)

const (
	untitled      = "Без названия"
	unknownAuthor = "Unknown"
	dateLayout    = "02.01.2006"
)

// InitialCaption is shown under the thumbnail together with the keyboard.
// The result is HTML.
func InitialCaption(v store.Video, now time.Time) string {
	title := v.Title
	if title == "" {
		title = untitled
	}
	author := v.Author
	if author == "" {
		author = unknownAuthor
	}

	var b strings.Builder
	b.WriteString("<code>🍿 " + html.EscapeString(title) + "</code>\n")
	b.WriteString("🔗 " + html.EscapeString(v.SourceURL) + "\n")
	b.WriteString("👤 Автор: #" + html.EscapeString(authorTag(author)) + "\n")
	b.WriteString("📅 Дата: " + now.Format(dateLayout) + "\n")
	b.WriteString("⏱ Продолжительность: " + format.Duration(v.Duration))
	return b.String()
}

// DownloadCaption is attached to the delivered file: the initial caption
// plus the quality line.
func DownloadCaption(v store.Video, q string, ft model.FileType, now time.Time) string {
	c := InitialCaption(v, now)
	switch ft {
	case model.FileAudio:
		return c + "\n💿 Тип: Аудио"
	case model.FileVideo:
		if tier, err := strconv.Atoi(q); err == nil && quality.IsTier(tier) {
			return c + "\n📺 Качество: " + quality.Resolution(tier)
		}
	}
	return c
}

// authorTag turns an author name into a hashtag body.
func authorTag(author string) string {
	return strings.ReplaceAll(strings.TrimSpace(author), " ", "_")
}
