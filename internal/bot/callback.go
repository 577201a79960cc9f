package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tgvidbot/internal/model"
	"tgvidbot/internal/quality"
)

const (
	callbackPrefix = "dl"
	// refreshStatsData is the admin panel's refresh button.
	refreshStatsData = "refresh_stats"
)

// ErrBadCallback is returned for callback data that is not a download request.
var ErrBadCallback = errors.New("malformed callback data")

// Callback is a parsed download button press.
type Callback struct {
	VideoID  int64
	Quality  string // tier number or "audio"
	FileType model.FileType
}

// CallbackData encodes a download button as dl_{video_id}_{quality}_{file_type}.
func CallbackData(videoID int64, q string, ft model.FileType) string {
	return fmt.Sprintf("%s_%d_%s_%s", callbackPrefix, videoID, q, ft)
}

// ParseCallback decodes data produced by CallbackData.
func ParseCallback(data string) (Callback, error) {
	parts := strings.Split(data, "_")
	if len(parts) != 4 || parts[0] != callbackPrefix {
		return Callback{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return Callback{}, fmt.Errorf("%w: video id %q", ErrBadCallback, parts[1])
	}
	cb := Callback{VideoID: id, Quality: parts[2], FileType: model.FileType(parts[3])}

	switch cb.FileType {
	case model.FileAudio:
		if cb.Quality != quality.AudioID {
			return Callback{}, fmt.Errorf("%w: audio with quality %q", ErrBadCallback, cb.Quality)
		}
	case model.FileVideo:
		tier, err := strconv.Atoi(cb.Quality)
		if err != nil || !quality.IsTier(tier) {
			return Callback{}, fmt.Errorf("%w: quality %q", ErrBadCallback, cb.Quality)
		}
	default:
		return Callback{}, fmt.Errorf("%w: file type %q", ErrBadCallback, parts[3])
	}
	return cb, nil
}
