package resolver

import (
	"errors"
	"fmt"
	"strings"

	"tgvidbot/internal/platform"
)

var (
	// ErrUnsupportedPlatform is returned for links no platform claims.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrExtractionFailed is returned when a backend ran without error but
	// produced nothing usable. Backend errors are *ExtractionError instead.
	ErrExtractionFailed = errors.New("extraction failed")
)

// Kind classifies why an extraction backend refused a link.
type Kind int

const (
	Generic Kind = iota
	CopyrightClaim
	Private
	Unavailable
	RequiresAuth
)

func (k Kind) String() string {
	switch k {
	case CopyrightClaim:
		return "copyright"
	case Private:
		return "private"
	case Unavailable:
		return "unavailable"
	case RequiresAuth:
		return "requires_auth"
	default:
		return "generic"
	}
}

// ExtractionError wraps a backend failure with its classification.
type ExtractionError struct {
	Platform platform.ID
	Kind     Kind
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s extraction (%s): %v", e.Platform, e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

type kindPattern struct {
	kind     Kind
	patterns []string
}

// Order matters: a message mentioning both "private" and "not found" is private.
var kindPatterns = []kindPattern{
	{CopyrightClaim, []string{"copyright"}},
	{Private, []string{"private"}},
	{Unavailable, []string{"unavailable", "not available", "deleted", "removed", "not found", "404", "blocked", "unable to extract"}},
	{RequiresAuth, []string{"sign in", "login", "log in", "confirm your age", "age-restricted", "age restricted", "authentication", "cookies"}},
}

// Classify maps a backend error message onto a Kind.
func Classify(err error) Kind {
	if err == nil {
		return Generic
	}
	msg := strings.ToLower(err.Error())
	for _, kp := range kindPatterns {
		for _, p := range kp.patterns {
			if strings.Contains(msg, p) {
				return kp.kind
			}
		}
	}
	return Generic
}

// KindOf returns the kind carried by err, or Generic.
func KindOf(err error) Kind {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return Generic
}
