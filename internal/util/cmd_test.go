package util

import "testing"

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: "''"},
		{in: "yt-dlp", want: "yt-dlp"},
		{in: "User-Agent: Mozilla/5.0", want: "'User-Agent: Mozilla/5.0'"},
		{in: "it's", want: `'it'\''s'`},
	}
	for _, tt := range tests {
		if got := quote(tt.in); got != tt.want {
			t.Errorf("quote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShellQuote(t *testing.T) {
	got := ShellQuote("yt-dlp", []string{"--dump-json", "https://youtu.be/x?a=1&b=2"})
	want := "yt-dlp --dump-json 'https://youtu.be/x?a=1&b=2'"
	if got != want {
		t.Errorf("ShellQuote() = %q, want %q", got, want)
	}
}

func TestStderrTail(t *testing.T) {
	res := CmdResult{Stderr: []byte("WARNING: a\n\nERROR: [youtube] x: Private video\n")}
	if got := res.StderrTail(1); got != "ERROR: [youtube] x: Private video" {
		t.Errorf("StderrTail(1) = %q", got)
	}
	if got := res.StderrTail(5); got != "WARNING: a; ERROR: [youtube] x: Private video" {
		t.Errorf("StderrTail(5) = %q", got)
	}
	if got := (CmdResult{}).StderrTail(2); got != "" {
		t.Errorf("StderrTail on empty = %q, want empty", got)
	}
}
