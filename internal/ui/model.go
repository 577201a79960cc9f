package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"tgvidbot/internal/model"
	"tgvidbot/internal/pipeline"
	"tgvidbot/internal/platform"
	"tgvidbot/internal/progress"
	"tgvidbot/internal/util/format"
)

const defaultWorkers = 2

// Resolver turns a link into its renditions.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (model.VideoInfo, error)
}

// Deliverer downloads one rendition.
type Deliverer interface {
	RunJob(ctx context.Context, job pipeline.Job, rep progress.Reporter) (pipeline.Result, error)
}

// Options configure a TUI session. Without a Deliverer links are only
// resolved.
type Options struct {
	Resolver  Resolver
	Deliverer Deliverer
	Quality   string
	FileType  model.FileType
	OutDir    string
	Workers   int
}

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options

	urls     []string
	jobOrder []string
	jobs     map[string]*jobState
	workers  int
	running  int
	next     int // next index in urls to start

	width  int
	styles Styles

	// fed by reporters running inside job commands
	eventCh chan tea.Msg
}

func NewModel(ctx context.Context, urls []string, opts Options) Model {
	c, cancel := context.WithCancel(ctx)
	sty := defaultStyles()

	jobs := make(map[string]*jobState, len(urls))
	order := make([]string, 0, len(urls))
	for i, u := range urls {
		id := "job-" + strconv.Itoa(i)
		jobs[id] = newJobState(id, u, sty)
		order = append(order, id)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return Model{
		ctx:      c,
		cancel:   cancel,
		opts:     opts,
		urls:     urls,
		jobs:     jobs,
		jobOrder: order,
		workers:  workers,
		styles:   sty,
		eventCh:  make(chan tea.Msg, 256),
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.listenEventsCmd(), func() tea.Msg { return startMsg{} }}
	for _, id := range m.jobOrder {
		cmds = append(cmds, m.jobs[id].spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case startMsg:
		return m, m.launch()

	case jobUpdateMsg:
		u := msg.U
		if js, ok := m.jobs[u.JobID]; ok && !js.done {
			js.stage = u.Stage
			js.percent = u.Percent
			if u.Message != "" {
				js.status = u.Message
			}
			if u.Bytes != nil {
				js.bytes = *u.Bytes
			}
		}
		return m, m.listenEventsCmd()

	case jobInfoMsg:
		if js, ok := m.jobs[msg.JobID]; ok {
			js.title = msg.Info.Title
			js.summary = summarize(msg.Info)
			// the result may overtake this message
			if !js.done {
				js.status = js.summary
			}
		}
		return m, m.listenEventsCmd()

	case jobResultMsg:
		r := msg.R
		js, ok := m.jobs[r.JobID]
		if !ok || !js.started || js.done {
			return m, nil
		}
		js.done = true
		js.err = r.Err
		js.percent = -1
		if msg.Info != nil {
			js.title = msg.Info.Title
			js.summary = summarize(*msg.Info)
		}
		switch {
		case r.Err != nil:
			js.stage = progress.StageError
			js.status = r.Err.Error()
		case r.OutputPath != "":
			js.stage = progress.StageCompleted
			js.outputPath = r.OutputPath
			js.bytes = r.Bytes
			js.status = fmt.Sprintf("Saved: %s (%s)", filepath.Base(r.OutputPath), format.HumanizeBytes(r.Bytes))
		default:
			js.stage = progress.StageCompleted
			js.status = js.summary
		}
		m.running--
		if m.running == 0 && m.next >= len(m.urls) {
			return m, tea.Quit
		}
		return m, m.launch()

	case allDoneMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmds []tea.Cmd
		for _, id := range m.jobOrder {
			js := m.jobs[id]
			var c tea.Cmd
			js.spinner, c = js.spinner.Update(msg)
			if c != nil {
				cmds = append(cmds, c)
			}
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m Model) View() string {
	out := m.viewHeader() + "\n\n" + m.viewJobs()
	if summary := m.viewSummary(); summary != "" {
		out += "\n" + summary
	}
	return out
}

// launch starts jobs until the worker limit is reached.
func (m *Model) launch() tea.Cmd {
	if m.ctx.Err() != nil {
		return func() tea.Msg { return allDoneMsg{} }
	}
	if len(m.urls) == 0 {
		return tea.Quit
	}
	var cmds []tea.Cmd
	for m.running < m.workers && m.next < len(m.urls) {
		id := m.jobOrder[m.next]
		url := m.urls[m.next]
		m.next++
		m.running++
		js := m.jobs[id]
		js.started = true
		js.stage = progress.StageResolving
		js.status = "Resolving"
		cmds = append(cmds, m.jobCmd(id, url))
	}
	return tea.Batch(cmds...)
}

func (m Model) listenEventsCmd() tea.Cmd {
	ctx, ch := m.ctx, m.eventCh
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return allDoneMsg{}
		case msg := <-ch:
			return msg
		}
	}
}

// jobCmd resolves url and, when a Deliverer is set, downloads the chosen
// rendition into OutDir. Progress flows through eventCh; the result is the
// command's own message.
func (m Model) jobCmd(id, url string) tea.Cmd {
	ctx, opts := m.ctx, m.opts
	rep := teaReporter{ch: m.eventCh, done: m.ctx.Done(), jobID: id}
	return func() tea.Msg {
		r, info := runJob(ctx, id, url, opts, rep)
		return jobResultMsg{R: r, Info: info}
	}
}

func runJob(ctx context.Context, id, url string, opts Options, rep teaReporter) (progress.Result, *model.VideoInfo) {
	info, err := opts.Resolver.Resolve(ctx, url)
	if err != nil {
		return progress.Result{JobID: id, Err: err}, nil
	}
	if opts.Deliverer == nil {
		return progress.Result{JobID: id}, &info
	}
	rep.send(jobInfoMsg{JobID: id, Info: info})

	src := info.SourceURL
	if src == "" {
		src = url
	}
	pid, _ := platform.Detect(url)
	res, err := opts.Deliverer.RunJob(ctx, pipeline.Job{
		SourceURL:       src,
		Platform:        pid,
		Title:           info.Title,
		Quality:         opts.Quality,
		FileType:        opts.FileType,
		DurationSeconds: info.DurationSeconds,
		KnownSize:       pipeline.KnownSize(info, opts.Quality, opts.FileType),
	}, rep)
	if err != nil {
		return progress.Result{JobID: id, Err: err}, &info
	}
	defer func() { _ = res.Cleanup() }()

	dst := filepath.Join(opts.OutDir, res.FileName)
	if err := moveFile(res.Path, dst); err != nil {
		return progress.Result{JobID: id, Err: err}, &info
	}
	return progress.Result{JobID: id, OutputPath: dst, Bytes: res.Bytes}, &info
}

func summarize(info model.VideoInfo) string {
	s := fmt.Sprintf("%d rendition(s)", len(info.Renditions))
	if len(info.Renditions) > 0 {
		s += ", best " + info.Renditions[0].FormatID
	}
	if info.Audio != nil {
		s += ", audio"
	}
	if info.DurationSeconds > 0 {
		s += ", " + format.Duration(info.DurationSeconds)
	}
	return s
}

// moveFile renames src to dst, copying across filesystems.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}

// teaReporter forwards pipeline events as tea messages under the TUI's
// own job id. Results are returned by the job command instead.
type teaReporter struct {
	ch    chan tea.Msg
	done  <-chan struct{}
	jobID string
}

func (r teaReporter) send(msg tea.Msg) {
	select {
	case r.ch <- msg:
	case <-r.done:
	}
}

func (r teaReporter) Update(u progress.Update) {
	u.JobID = r.jobID
	// stage changes must arrive; percentage ticks may be dropped
	if u.Stage.Terminal() || u.Percent < 0 {
		r.send(jobUpdateMsg{U: u})
		return
	}
	select {
	case r.ch <- jobUpdateMsg{U: u}:
	default:
	}
}

func (teaReporter) Log(progress.Log)       {}
func (teaReporter) Result(progress.Result) {}
