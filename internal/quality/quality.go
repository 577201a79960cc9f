// Package quality maps raw pixel heights onto the fixed ladder of download tiers.
package quality

import (
	"fmt"
	"strconv"
	"strings"
)

// Tiers is the quality ladder, ascending.
var Tiers = [...]int{144, 240, 360, 480, 720, 1080}

const (
	// AudioID is the format id of the audio-only rendition.
	AudioID = "audio"
	// DefaultTier is used for fallback renditions without a known height.
	DefaultTier = 720

	fallbackPriority = -1
	audioPriority    = -2
)

// Classify returns the tier nearest to height. Equidistant heights resolve to
// the lower tier. Non-positive heights return 0.
func Classify(height int) int {
	if height <= 0 {
		return 0
	}
	best := Tiers[0]
	bestDiff := abs(height - best)
	for _, t := range Tiers[1:] {
		if d := abs(height - t); d < bestDiff {
			best, bestDiff = t, d
		}
	}
	return best
}

// FormatID returns the canonical id for a tier, e.g. "url720".
func FormatID(tier int) string {
	return "url" + strconv.Itoa(tier)
}

// TierOf extracts the tier from a canonical id. ok is false for anything that
// is not one of the six standard tiers.
func TierOf(formatID string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(formatID, "url"))
	if err != nil || !strings.HasPrefix(formatID, "url") {
		return 0, false
	}
	return n, IsTier(n)
}

// IsTier reports whether n is on the ladder.
func IsTier(n int) bool {
	for _, t := range Tiers {
		if t == n {
			return true
		}
	}
	return false
}

// IsStandard reports whether formatID is one of url144..url1080.
func IsStandard(formatID string) bool {
	_, ok := TierOf(formatID)
	return ok
}

// Priority orders renditions: numeric tiers by height, then labelled
// fallbacks such as "HD", then audio.
func Priority(formatID, label string) int {
	if formatID == AudioID {
		return audioPriority
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(formatID, "url")); err == nil && n > 0 {
		return n
	}
	if n, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(label), "p")); err == nil && n > 0 {
		return n
	}
	return fallbackPriority
}

type noteToken struct {
	tier   int
	tokens []string
}

// noteTokens is ordered longest tier first so "1080p" is tried before "080p"
// could ever match.
var noteTokens = func() []noteToken {
	out := make([]noteToken, 0, len(Tiers))
	for i := len(Tiers) - 1; i >= 0; i-- {
		t := Tiers[i]
		out = append(out, noteToken{tier: t, tokens: []string{
			fmt.Sprintf("%dp", t),
			fmt.Sprintf("hd%d", t),
			fmt.Sprintf("x%d", t),
		}})
	}
	return out
}()

// HeightFromNote recovers a height from a free-text quality note such as
// "720p", "1080p60" or "hd720". It returns 0 when nothing matches.
func HeightFromNote(note string) int {
	n := strings.ToLower(note)
	if n == "" {
		return 0
	}
	for _, e := range noteTokens {
		for _, tok := range e.tokens {
			if containsToken(n, tok) {
				return e.tier
			}
		}
	}
	return 0
}

// containsToken reports whether tok occurs in s without being glued to a
// longer number: "1440p" holds no "440p" and "2560x1440" no "x144".
func containsToken(s, tok string) bool {
	for from := 0; from < len(s); {
		idx := strings.Index(s[from:], tok)
		if idx < 0 {
			return false
		}
		start, end := from+idx, from+idx+len(tok)
		glued := (isDigit(tok[0]) && start > 0 && isDigit(s[start-1])) ||
			(isDigit(tok[len(tok)-1]) && end < len(s) && isDigit(s[end]))
		if !glued {
			return true
		}
		from = start + 1
	}
	return false
}

// Resolution renders the landscape frame size for a tier, e.g. "1280x720".
func Resolution(tier int) string {
	switch tier {
	case 144:
		return "256x144"
	case 240:
		return "426x240"
	case 360:
		return "640x360"
	case 480:
		return "852x480"
	case 720:
		return "1280x720"
	case 1080:
		return "1920x1080"
	default:
		return fmt.Sprintf("%dp", tier)
	}
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
