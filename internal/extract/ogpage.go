package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxPage caps how much of a post page is read.
const maxPage = 4 << 20

// OGPage reads Open Graph video tags from a public post page. It is the last
// resort for login-gated platforms where yt-dlp needs a session: the result
// carries a single top-level url and no format list.
type OGPage struct {
	Client  *http.Client
	Headers map[string]string
}

// Extract implements Extractor. A page without og:video yields an empty record.
func (p *OGPage) Extract(ctx context.Context, url string) (Record, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("page not found (HTTP %d)", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch page: HTTP %d", resp.StatusCode)
	}
	return ParseOGPage(io.LimitReader(resp.Body, maxPage))
}

// ParseOGPage extracts og:* video metadata from HTML.
func ParseOGPage(r io.Reader) (Record, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	meta := func(props ...string) string {
		for _, prop := range props {
			sel := doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, prop, prop)).First()
			if v, ok := sel.Attr("content"); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	videoURL := meta("og:video:secure_url", "og:video", "og:video:url")
	if videoURL == "" {
		return nil, nil
	}
	rec := Record{
		"url":      videoURL,
		"ext":      extFromType(meta("og:video:type")),
		"width":    meta("og:video:width"),
		"height":   meta("og:video:height"),
		"title":    meta("og:title", "twitter:title"),
		"uploader": meta("og:site_name"),
	}
	if thumb := meta("og:image", "twitter:image"); thumb != "" {
		rec["thumbnail"] = thumb
	}
	return rec, nil
}

func extFromType(mime string) string {
	if _, sub, ok := strings.Cut(mime, "/"); ok && sub != "" {
		return sub
	}
	return ""
}
