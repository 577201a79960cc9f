package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"tgvidbot/internal/util"
)

type fakeRunner struct {
	stdout string
	stderr string
	err    error
	spec   util.CmdSpec
	calls  int
}

func (f *fakeRunner) Run(_ context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	f.calls++
	f.spec = spec
	res := util.CmdResult{Stdout: []byte(f.stdout), Stderr: []byte(f.stderr)}
	if f.err != nil {
		res.Code = 1
		res.Err = f.err
	}
	return res, f.err
}

func contains(ss []string, q string) bool {
	for _, s := range ss {
		if s == q {
			return true
		}
	}
	return false
}

func TestYTDLPArgs(t *testing.T) {
	y := &YTDLP{Path: "yt-dlp", Options: Options{
		SocketTimeout: 30,
		Retries:       5,
		Proxy:         "socks5://127.0.0.1:1080",
		CookiesFile:   "/etc/cookies.txt",
		Headers:       map[string]string{"Referer": "https://www.tiktok.com/", "Origin": "https://www.tiktok.com"},
	}}
	args := y.Args("https://www.tiktok.com/@u/video/1")
	got := strings.Join(args, " ")

	for _, want := range []string{
		"--dump-json",
		"--no-playlist",
		"--socket-timeout 30",
		"--retries 5",
		"--proxy socks5://127.0.0.1:1080",
		"--cookies /etc/cookies.txt",
		"--add-header Origin:https://www.tiktok.com --add-header Referer:https://www.tiktok.com/",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Args() = %q, missing %q", got, want)
		}
	}
	if args[len(args)-1] != "https://www.tiktok.com/@u/video/1" {
		t.Errorf("url must be the last argument, got %q", args[len(args)-1])
	}

	bare := (&YTDLP{Path: "yt-dlp"}).Args("u")
	if contains(bare, "--proxy") || contains(bare, "--cookies") || contains(bare, "--socket-timeout") {
		t.Errorf("zero options produced optional flags: %v", bare)
	}
}

func TestYTDLPExtract(t *testing.T) {
	tests := []struct {
		name       string
		runner     *fakeRunner
		wantErr    string
		wantEmpty  bool
		wantFormat int
	}{
		{
			name:       "metadata",
			runner:     &fakeRunner{stdout: `{"id":"x","title":"T","formats":[{"url":"a","height":720}]}`},
			wantFormat: 1,
		},
		{
			name:    "stderr becomes the error text",
			runner:  &fakeRunner{stderr: "WARNING: slow\nERROR: [youtube] x: Private video. Sign in if you've been granted access\n", err: errors.New("exit status 1")},
			wantErr: "Private video",
		},
		{
			name:    "silent failure",
			runner:  &fakeRunner{err: errors.New("exit status 1")},
			wantErr: "exit status 1",
		},
		{
			name:      "no output",
			runner:    &fakeRunner{stdout: ""},
			wantEmpty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y := &YTDLP{Path: "/bin/yt-dlp", Runner: tt.runner}
			rec, err := y.Extract(context.Background(), "https://youtu.be/x")
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Extract() err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() error: %v", err)
			}
			if tt.wantEmpty {
				if len(rec) != 0 {
					t.Errorf("Extract() = %v, want empty", rec)
				}
				return
			}
			if got := len(rec.Records("formats")); got != tt.wantFormat {
				t.Errorf("formats = %d, want %d", got, tt.wantFormat)
			}
			if !contains(tt.runner.spec.Args, "--dump-json") {
				t.Errorf("runner not asked for --dump-json: %v", tt.runner.spec.Args)
			}
		})
	}
}

func TestYTDLPExtract_MissingPath(t *testing.T) {
	if _, err := (&YTDLP{}).Extract(context.Background(), "u"); err == nil {
		t.Errorf("expected error without binary path")
	}
}

func TestChain(t *testing.T) {
	fail := func(msg string) Named {
		return Named{Name: msg, Extractor: Func(func(context.Context, string) (Record, error) {
			return nil, errors.New(msg)
		})}
	}
	empty := Named{Name: "empty", Extractor: Func(func(context.Context, string) (Record, error) {
		return nil, nil
	})}
	ok := Named{Name: "ok", Extractor: Func(func(context.Context, string) (Record, error) {
		return Record{"url": "x"}, nil
	})}

	tests := []struct {
		name     string
		steps    []Named
		wantRec  bool
		wantErrs []string
	}{
		{name: "first success wins", steps: []Named{ok, fail("never")}, wantRec: true},
		{name: "falls through failures", steps: []Named{fail("ytdlp broke"), empty, ok}, wantRec: true},
		{name: "all fail aggregates", steps: []Named{fail("first"), fail("second")}, wantErrs: []string{"first", "second"}},
		{name: "all empty", steps: []Named{empty, empty}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := (&Chain{Steps: tt.steps}).Extract(context.Background(), "u")
			if tt.wantRec != (len(rec) > 0) {
				t.Errorf("record present = %v, want %v", len(rec) > 0, tt.wantRec)
			}
			if len(tt.wantErrs) == 0 {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected aggregated error")
			}
			for _, w := range tt.wantErrs {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error %q missing %q", err, w)
				}
			}
		})
	}
}

func TestChain_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	c := NewChain(nil, Named{Name: "x", Extractor: Func(func(context.Context, string) (Record, error) {
		called = true
		return Record{"url": "x"}, nil
	})})
	if _, err := c.Extract(ctx, "u"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Errorf("extractor called after cancellation")
	}
}

func TestParseMime(t *testing.T) {
	tests := []struct {
		mime                string
		ext, vcodec, acodec string
	}{
		{mime: `video/mp4; codecs="avc1.64001F"`, ext: "mp4", vcodec: "avc1.64001F", acodec: "none"},
		{mime: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, ext: "mp4", vcodec: "avc1.42001E", acodec: "mp4a.40.2"},
		{mime: `audio/webm; codecs="opus"`, ext: "webm", vcodec: "none", acodec: "opus"},
		{mime: `audio/mp4`, ext: "mp4", vcodec: "none", acodec: "unknown"},
		{mime: ``, ext: "mp4", vcodec: "none", acodec: "none"},
	}
	for _, tt := range tests {
		ext, v, a := parseMime(tt.mime)
		if ext != tt.ext || v != tt.vcodec || a != tt.acodec {
			t.Errorf("parseMime(%q) = (%q, %q, %q), want (%q, %q, %q)", tt.mime, ext, v, a, tt.ext, tt.vcodec, tt.acodec)
		}
	}
}

func TestRecordFromVideo(t *testing.T) {
	v := &youtube.Video{
		ID:          "abc",
		Title:       "Native",
		Author:      "Channel",
		Duration:    95 * time.Second,
		PublishDate: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		Thumbnails:  youtube.Thumbnails{{URL: "small.jpg"}, {URL: "big.jpg"}},
		Formats: youtube.FormatList{
			{ItagNo: 137, URL: "v1080", MimeType: `video/mp4; codecs="avc1.640028"`, Height: 1080, ContentLength: 90},
			{ItagNo: 140, URL: "a", MimeType: `audio/mp4; codecs="mp4a.40.2"`, ContentLength: 3},
			{ItagNo: 22, MimeType: `video/mp4; codecs="avc1.64001F, mp4a.40.2"`, Height: 720},
			{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Height: 360},
		},
	}
	resolve := func(f *youtube.Format) (string, error) {
		if f.ItagNo == 22 {
			return "", fmt.Errorf("cipher")
		}
		return "deciphered", nil
	}

	rec := recordFromVideo(v, resolve, zap.NewNop())
	if got := rec.String("title", ""); got != "Native" {
		t.Errorf("title = %q", got)
	}
	if got := rec.Int("duration", 0); got != 95 {
		t.Errorf("duration = %d, want 95", got)
	}
	if got := rec.String("thumbnail", ""); got != "big.jpg" {
		t.Errorf("thumbnail = %q, want the largest", got)
	}
	if got := rec.String("upload_date", ""); got != "20240309" {
		t.Errorf("upload_date = %q", got)
	}
	formats := rec.Records("formats")
	if len(formats) != 3 {
		t.Fatalf("formats = %d, want 3 (cipher failure skipped)", len(formats))
	}
	if got := formats[2].String("url", ""); got != "deciphered" {
		t.Errorf("ciphered url = %q, want deciphered", got)
	}
	if got := formats[1].Codec("vcodec"); got != "" {
		t.Errorf("audio vcodec = %q, want none", got)
	}
	if got := formats[0].ByteSize(); got != 90 {
		t.Errorf("filesize = %d, want 90", got)
	}
}

func TestOGPage(t *testing.T) {
	page := `<html><head>
<meta property="og:title" content="Reel by someone">
<meta property="og:site_name" content="Instagram">
<meta property="og:image" content="https://cdn/thumb.jpg">
<meta property="og:video" content="http://cdn/v.mp4">
<meta property="og:video:secure_url" content="https://cdn/v.mp4">
<meta property="og:video:type" content="video/mp4">
<meta property="og:video:width" content="720">
<meta property="og:video:height" content="1280">
</head><body></body></html>`

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/reel/ok/":
			fmt.Fprint(w, page)
		case "/reel/nometa/":
			fmt.Fprint(w, "<html><head><title>Login</title></head></html>")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := &OGPage{Client: srv.Client(), Headers: map[string]string{"User-Agent": "ua-test"}}

	rec, err := p.Extract(context.Background(), srv.URL+"/reel/ok/")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if gotUA != "ua-test" {
		t.Errorf("User-Agent header = %q", gotUA)
	}
	if got := rec.String("url", ""); got != "https://cdn/v.mp4" {
		t.Errorf("url = %q, want secure url", got)
	}
	if got := rec.Int("height", 0); got != 1280 {
		t.Errorf("height = %d, want 1280", got)
	}
	if got := rec.String("ext", ""); got != "mp4" {
		t.Errorf("ext = %q", got)
	}
	if got := rec.String("thumbnail", ""); got != "https://cdn/thumb.jpg" {
		t.Errorf("thumbnail = %q", got)
	}

	rec, err = p.Extract(context.Background(), srv.URL+"/reel/nometa/")
	if err != nil || len(rec) != 0 {
		t.Errorf("page without og:video = (%v, %v), want empty", rec, err)
	}

	if _, err := p.Extract(context.Background(), srv.URL+"/gone/"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("404 err = %v, want not found", err)
	}
}
