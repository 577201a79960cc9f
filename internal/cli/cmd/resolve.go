package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tgvidbot/internal/model"
	"tgvidbot/internal/platform"
	"tgvidbot/internal/ui"
	"tgvidbot/internal/util/format"
)

type infoResolver interface {
	Resolve(ctx context.Context, rawURL string) (model.VideoInfo, error)
}

// outcome is the result of resolving one command-line link.
type outcome struct {
	URL  string
	Info model.VideoInfo
	Err  error
}

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "resolve [urls...]",
		Short:         "List the renditions available for each link",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			useTUI, _ := cmd.Flags().GetBool("tui")
			if err := checkLinks(args); err != nil {
				return err
			}

			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()
			r, err := a.resolver()
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}

			if useTUI && !asJSON {
				if err := ui.Run(cmd.Context(), args, ui.Options{Resolver: r}); err != nil {
					return &ExitError{Code: ExitResolveError, Err: err}
				}
				return nil
			}

			outs := resolveAll(cmd.Context(), r, args)
			w := cmd.OutOrStdout()
			if asJSON {
				err = writeJSON(w, outs)
			} else {
				err = writeText(w, outs)
			}
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			if n := failed(outs); n > 0 {
				return &ExitError{Code: ExitResolveError, Err: fmt.Errorf("%d of %d link(s) failed", n, len(outs))}
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print machine-readable JSON")
	cmd.Flags().Bool("tui", false, "Show an interactive job list")
	return cmd
}

// checkLinks rejects arguments that name no supported platform.
func checkLinks(args []string) error {
	for _, raw := range args {
		if _, ok := platform.Detect(raw); !ok {
			return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("unsupported link %q", raw)}
		}
	}
	return nil
}

// resolveAll resolves every link concurrently; the resolver bounds the
// number of extractions in flight. Order follows urls.
func resolveAll(ctx context.Context, r infoResolver, urls []string) []outcome {
	outs := make([]outcome, len(urls))
	var g errgroup.Group
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			info, err := r.Resolve(ctx, u)
			outs[i] = outcome{URL: u, Info: info, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outs
}

func failed(outs []outcome) int {
	n := 0
	for _, o := range outs {
		if o.Err != nil {
			n++
		}
	}
	return n
}

func writeText(w io.Writer, outs []outcome) error {
	var b strings.Builder
	for i, o := range outs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(o.URL + "\n")
		if o.Err != nil {
			fmt.Fprintf(&b, "  error: %v\n", o.Err)
			continue
		}
		fmt.Fprintf(&b, "  Title:    %s\n", o.Info.Title)
		fmt.Fprintf(&b, "  Author:   %s\n", o.Info.Author)
		fmt.Fprintf(&b, "  Platform: %s\n", o.Info.Platform)
		fmt.Fprintf(&b, "  Duration: %s\n", format.Duration(o.Info.DurationSeconds))
		b.WriteString(renditionTable(o.Info) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renditionTable(info model.VideoInfo) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("FORMAT", "RESOLUTION", "SIZE", "CONTAINER", "CODECS")
	rows := info.Renditions
	if info.Audio != nil {
		rows = append(append([]model.Rendition(nil), rows...), *info.Audio)
	}
	for _, r := range rows {
		t.Row(r.FormatID, resolution(r), size(r.ByteSize), r.Container, codecs(r))
	}
	return t.Render()
}

func resolution(r model.Rendition) string {
	if r.Width > 0 && r.Height > 0 {
		return fmt.Sprintf("%dx%d", r.Width, r.Height)
	}
	if r.Label != "" {
		return r.Label
	}
	return "-"
}

func size(n int64) string {
	if n <= 0 {
		return "?"
	}
	return format.HumanizeBytes(n)
}

func codecs(r model.Rendition) string {
	v, a := r.VideoCodec, r.AudioCodec
	if v == "" {
		v = "-"
	}
	if a == "" {
		a = "-"
	}
	return v + "/" + a
}

type jsonRendition struct {
	FormatID   string `json:"format_id"`
	URL        string `json:"url"`
	Container  string `json:"ext"`
	ByteSize   int64  `json:"filesize,omitempty"`
	Label      string `json:"label,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	VideoCodec string `json:"vcodec,omitempty"`
	AudioCodec string `json:"acodec,omitempty"`
}

type jsonInfo struct {
	Input      string          `json:"input"`
	Error      string          `json:"error,omitempty"`
	Title      string          `json:"title,omitempty"`
	Author     string          `json:"author,omitempty"`
	Platform   string          `json:"platform,omitempty"`
	SourceURL  string          `json:"source_url,omitempty"`
	Thumbnail  string          `json:"thumbnail,omitempty"`
	Duration   string          `json:"duration,omitempty"`
	Renditions []jsonRendition `json:"renditions,omitempty"`
	Audio      *jsonRendition  `json:"audio,omitempty"`
}

func toJSONRendition(r model.Rendition) jsonRendition {
	return jsonRendition{
		FormatID:   r.FormatID,
		URL:        r.SourceURL,
		Container:  r.Container,
		ByteSize:   r.ByteSize,
		Label:      r.Label,
		Width:      r.Width,
		Height:     r.Height,
		VideoCodec: r.VideoCodec,
		AudioCodec: r.AudioCodec,
	}
}

func writeJSON(w io.Writer, outs []outcome) error {
	view := make([]jsonInfo, 0, len(outs))
	for _, o := range outs {
		ji := jsonInfo{Input: o.URL}
		if o.Err != nil {
			ji.Error = o.Err.Error()
			view = append(view, ji)
			continue
		}
		ji.Title = o.Info.Title
		ji.Author = o.Info.Author
		ji.Platform = o.Info.Platform
		ji.SourceURL = o.Info.SourceURL
		ji.Thumbnail = o.Info.ThumbnailURL
		ji.Duration = o.Info.DurationString()
		for _, r := range o.Info.Renditions {
			ji.Renditions = append(ji.Renditions, toJSONRendition(r))
		}
		if o.Info.Audio != nil {
			a := toJSONRendition(*o.Info.Audio)
			ji.Audio = &a
		}
		view = append(view, ji)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
