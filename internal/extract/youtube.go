package extract

import (
	"context"
	"net/http"
	"strings"

	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"
)

// YouTube extracts metadata with the native kkdai/youtube client, without a
// yt-dlp subprocess. The record uses yt-dlp field names so the same
// normalizer handles both backends.
type YouTube struct {
	client *youtube.Client
	log    *zap.Logger
}

// NewYouTube builds the native extractor. httpClient may carry a proxy.
func NewYouTube(httpClient *http.Client, log *zap.Logger) *YouTube {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &YouTube{client: &youtube.Client{HTTPClient: httpClient}, log: log}
}

// Extract implements Extractor.
func (y *YouTube) Extract(ctx context.Context, url string) (Record, error) {
	v, err := y.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return recordFromVideo(v, func(f *youtube.Format) (string, error) {
		return y.client.GetStreamURLContext(ctx, v, f)
	}, y.log), nil
}

func recordFromVideo(v *youtube.Video, streamURL func(*youtube.Format) (string, error), log *zap.Logger) Record {
	if v == nil {
		return nil
	}
	formats := make([]any, 0, len(v.Formats))
	for i := range v.Formats {
		f := &v.Formats[i]
		u := f.URL
		if u == "" {
			resolved, err := streamURL(f)
			if err != nil {
				// ciphered formats that fail to decode are simply not offered
				log.Debug("skip youtube format", zap.Int("itag", f.ItagNo), zap.Error(err))
				continue
			}
			u = resolved
		}
		ext, vcodec, acodec := parseMime(f.MimeType)
		formats = append(formats, map[string]any{
			"format_id":   f.ItagNo,
			"url":         u,
			"ext":         ext,
			"width":       f.Width,
			"height":      f.Height,
			"filesize":    f.ContentLength,
			"vcodec":      vcodec,
			"acodec":      acodec,
			"format_note": f.QualityLabel,
		})
	}

	rec := Record{
		"id":       v.ID,
		"title":    v.Title,
		"uploader": v.Author,
		"duration": int64(v.Duration.Seconds()),
		"formats":  formats,
	}
	if n := len(v.Thumbnails); n > 0 {
		// thumbnails are ordered smallest first
		rec["thumbnail"] = v.Thumbnails[n-1].URL
	}
	if !v.PublishDate.IsZero() {
		rec["upload_date"] = v.PublishDate.Format("20060102")
	}
	return rec
}

// parseMime splits `video/mp4; codecs="avc1.64001F, mp4a.40.2"` into the
// container and yt-dlp style codec fields.
func parseMime(mime string) (ext, vcodec, acodec string) {
	vcodec, acodec = "none", "none"
	kind, params, _ := strings.Cut(mime, ";")
	major, sub, _ := strings.Cut(strings.TrimSpace(kind), "/")
	ext = sub
	if ext == "" {
		ext = "mp4"
	}

	var codecs []string
	if _, list, ok := strings.Cut(params, "codecs="); ok {
		for _, c := range strings.Split(strings.Trim(strings.TrimSpace(list), `"`), ",") {
			if c = strings.TrimSpace(c); c != "" {
				codecs = append(codecs, c)
			}
		}
	}

	switch major {
	case "audio":
		if len(codecs) > 0 {
			acodec = codecs[0]
		} else {
			acodec = "unknown"
		}
	case "video":
		if len(codecs) > 0 {
			vcodec = codecs[0]
		} else {
			vcodec = "unknown"
		}
		if len(codecs) > 1 {
			acodec = codecs[1]
		}
	}
	return ext, vcodec, acodec
}
