// Package progress carries job events from the resolver and the delivery
// pipeline to whoever shows them: a Telegram status message or the TUI.
package progress

import "time"

// Stage identifies a high-level step of a job.
type Stage string

const (
	StageQueued      Stage = "queued"
	StageResolving   Stage = "resolving"
	StageDownloading Stage = "downloading"
	StageMerging     Stage = "merging" // yt-dlp muxing or audio extraction
	StageUploading   Stage = "uploading"
	StageCompleted   Stage = "completed"
	StageError       Stage = "error"
)

// Terminal reports whether no further updates follow s.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageError
}

// LogStream indicates which stream produced a log line.
type LogStream int

const (
	StreamStdout LogStream = iota
	StreamStderr
)

// Update conveys progress or stage changes for a job.
// Percent is 0..100 when known and negative when unknown.
type Update struct {
	JobID   string
	Stage   Stage
	Percent float64

	ETA     *time.Duration
	Bytes   *int64
	Speed   *string // e.g. "2.5MiB/s"
	Message string
}

// Log is a raw subprocess line associated with a job.
type Log struct {
	JobID  string
	Stream LogStream
	Line   string
}

// Result is emitted once per job when it completes or fails.
type Result struct {
	JobID      string
	OutputPath string
	Bytes      int64
	Err        error
}

// Reporter is implemented by any observer interested in job events.
type Reporter interface {
	Update(u Update)
	Log(l Log)
	Result(r Result)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Update(Update) {}
func (Nop) Log(Log)       {}
func (Nop) Result(Result) {}

// Func adapts a function receiving only updates to a Reporter.
type Func func(Update)

func (f Func) Update(u Update) { f(u) }
func (Func) Log(Log)           {}
func (Func) Result(Result)     {}
