// Package platform recognises which video host a link points to.
package platform

import (
	"net/url"
	"regexp"
	"strings"
)

// ID identifies a supported video platform.
type ID string

const (
	YouTube   ID = "youtube"
	Instagram ID = "instagram"
	TikTok    ID = "tiktok"
	VK        ID = "vk"
	Rutube    ID = "rutube"
)

type marker struct {
	substr string
	id     ID
}

// markers are checked in order; the first substring found wins.
var markers = []marker{
	{"youtube.com", YouTube},
	{"youtu.be", YouTube},
	{"instagram.com", Instagram},
	{"instagr.am", Instagram},
	{"tiktok.com", TikTok},
	{"vk.com", VK},
	{"vkvideo.ru", VK},
	{"rutube.ru", Rutube},
}

// IDs lists the supported platforms in routing order.
func IDs() []ID {
	return []ID{YouTube, Instagram, TikTok, VK, Rutube}
}

// Detect classifies raw by substring match. ok is false for unsupported links,
// which is a normal outcome rather than an error.
func Detect(raw string) (ID, bool) {
	s := strings.ToLower(raw)
	for _, m := range markers {
		if strings.Contains(s, m.substr) {
			return m.id, true
		}
	}
	return "", false
}

// DisplayName returns the human-facing platform name.
func DisplayName(id ID) string {
	switch id {
	case YouTube:
		return "YouTube"
	case Instagram:
		return "Instagram"
	case TikTok:
		return "TikTok"
	case VK:
		return "VK"
	case Rutube:
		return "Rutube"
	default:
		return string(id)
	}
}

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// CleanURL extracts the first http(s) link from free text such as a
// forwarded caption. The input is returned trimmed when it holds no link.
func CleanURL(text string) string {
	if m := urlPattern.FindString(text); m != "" {
		return m
	}
	return strings.TrimSpace(text)
}

// Canonical normalizes a link so equivalent forms share one cache key:
// mobile hosts are folded to the desktop host and fragments are dropped.
// Links that do not parse are returned unchanged.
func Canonical(raw string, id ID) string {
	u, err := url.Parse(raw)
	if err == nil && (u.Scheme == "" || u.Host == "") {
		if u2, e2 := url.Parse("https://" + raw); e2 == nil {
			u = u2
		}
	}
	if err != nil || u == nil || u.Host == "" {
		return raw
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment, u.RawFragment = "", ""
	switch id {
	case YouTube:
		if u.Host == "m.youtube.com" || u.Host == "music.youtube.com" {
			u.Host = "www.youtube.com"
		}
	case VK:
		if u.Host == "m.vk.com" {
			u.Host = "vk.com"
		}
	case Instagram:
		if u.Host == "instagr.am" {
			u.Host = "www.instagram.com"
		}
	}
	return u.String()
}
