package model

import "testing"

func TestVideoInfoClone(t *testing.T) {
	orig := VideoInfo{
		Title:      "Clip",
		Renditions: []Rendition{{FormatID: "url720", ByteSize: 10}},
		Audio:      &Rendition{FormatID: "audio", ByteSize: 3},
	}

	c := orig.Clone()
	c.Renditions[0].ByteSize = 999
	c.Audio.ByteSize = 999
	c.Title = "changed"

	if orig.Renditions[0].ByteSize != 10 {
		t.Errorf("clone shares renditions backing array")
	}
	if orig.Audio.ByteSize != 3 {
		t.Errorf("clone shares audio pointer")
	}
	if orig.Title != "Clip" {
		t.Errorf("clone changed title of original")
	}
}

func TestVideoInfoRendition(t *testing.T) {
	v := VideoInfo{
		Renditions: []Rendition{{FormatID: "url1080"}, {FormatID: "url720"}},
		Audio:      &Rendition{FormatID: "audio"},
	}
	for _, id := range []string{"url1080", "url720", "audio"} {
		if _, ok := v.Rendition(id); !ok {
			t.Errorf("Rendition(%q) not found", id)
		}
	}
	if _, ok := v.Rendition("url144"); ok {
		t.Errorf("Rendition(url144) found, want missing")
	}
	if v.Empty() {
		t.Errorf("Empty() = true for populated info")
	}
	if !(VideoInfo{}).Empty() {
		t.Errorf("Empty() = false for zero info")
	}
}

func TestDurationString(t *testing.T) {
	if got := (VideoInfo{DurationSeconds: 125}).DurationString(); got != "125" {
		t.Errorf("DurationString() = %q, want 125", got)
	}
}
