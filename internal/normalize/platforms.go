package normalize

import "tgvidbot/internal/platform"

var strategies = map[platform.ID]Strategy{
	// DASH video-only streams are merged with the best audio on download.
	platform.YouTube: {Muxed: true, FallbackLabel: "HD"},
	// Often login-gated; the page scraper yields only a top-level url.
	platform.Instagram: {FallbackLabel: "Default"},
	// One watermark-free stream is offered, reported as the default tier.
	platform.TikTok: {SingleBest: true, FallbackLabel: "HD"},
	// VK names its streams url{height}; anything off the ladder is dropped.
	platform.VK: {ExplicitIDs: true, StandardOnly: true, FallbackLabel: "HD"},
	// HLS variants frequently lack a height but carry it in format_note.
	platform.Rutube: {NoteHeights: true, FallbackLabel: "HD"},
}

// For returns the normalizer of a platform. Unknown platforms get the
// generic height-classifying strategy.
func For(id platform.ID) Normalizer {
	if s, ok := strategies[id]; ok {
		return s
	}
	return Strategy{FallbackLabel: "Default"}
}

// Table returns a fresh platform-to-normalizer map.
func Table() map[platform.ID]Normalizer {
	out := make(map[platform.ID]Normalizer, len(strategies))
	for id, s := range strategies {
		out[id] = s
	}
	return out
}
