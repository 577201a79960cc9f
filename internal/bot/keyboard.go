package bot

import (
	"fmt"
	"sort"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tgvidbot/internal/model"
	"tgvidbot/internal/pipeline"
	"tgvidbot/internal/quality"
	"tgvidbot/internal/store"
	"tgvidbot/internal/util/bitrate"
	"tgvidbot/internal/util/format"
)

const cachedMark = "⚡️"

// fileKey identifies an entry of the Telegram file cache for one video.
type fileKey struct {
	quality  string
	fileType model.FileType
}

// cachedSet indexes the files already uploaded for a video.
func cachedSet(files []store.File) map[fileKey]bool {
	out := make(map[fileKey]bool, len(files))
	for _, f := range files {
		out[fileKey{f.Quality, model.FileType(f.Type)}] = true
	}
	return out
}

type button struct {
	tier int // 0 for audio
	text string
	data string
}

// Keyboard builds the download buttons for a resolved video: audio first,
// then one button per quality tier in ascending order. Sizes come from the
// extractor when known and from the bitrate table otherwise; buttons whose
// size exceeds limit are left out. Entries already uploaded (files) are
// marked with ⚡️.
func Keyboard(videoID int64, info model.VideoInfo, files []store.File, limit int64) tgbotapi.InlineKeyboardMarkup {
	cached := cachedSet(files)
	duration := float64(info.DurationSeconds)
	var buttons []button

	audioSize := bitrate.EstimateSize(duration, quality.AudioID)
	if info.Audio != nil && info.Audio.ByteSize > 0 {
		audioSize = info.Audio.ByteSize
	}
	if fits(audioSize, limit) {
		buttons = append(buttons, button{
			text: label("🎵 audio", audioSize, cached[fileKey{quality.AudioID, model.FileAudio}]),
			data: CallbackData(videoID, quality.AudioID, model.FileAudio),
		})
	}

	seen := make(map[string]bool)
	var videos []button
	for _, r := range info.Renditions {
		q, ft := pipeline.QualityOf(r)
		if ft != model.FileVideo || seen[q] {
			continue
		}
		seen[q] = true
		size := r.ByteSize
		if size <= 0 {
			size = bitrate.EstimateSize(duration, q)
		}
		if !fits(size, limit) {
			continue
		}
		tier, _ := strconv.Atoi(q)
		videos = append(videos, button{
			tier: tier,
			text: label("📹 "+quality.Resolution(tier), size, cached[fileKey{q, model.FileVideo}]),
			data: CallbackData(videoID, q, model.FileVideo),
		})
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].tier < videos[j].tier })
	buttons = append(buttons, videos...)

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(b.text, b.data)))
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func fits(size, limit int64) bool {
	return limit <= 0 || size < limit
}

func label(prefix string, size int64, cached bool) string {
	s := fmt.Sprintf("%s / %s", prefix, format.HumanizeBytes(size))
	if cached {
		s += " " + cachedMark
	}
	return s
}

// adminKeyboard is attached to the statistics message.
func adminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(refreshStatsText, refreshStatsData)),
	)
}
