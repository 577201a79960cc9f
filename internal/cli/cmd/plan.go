package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tgvidbot/internal/downloader"
	"tgvidbot/internal/extract"
	"tgvidbot/internal/model"
	"tgvidbot/internal/pipeline"
	"tgvidbot/internal/platform"
	"tgvidbot/internal/quality"
	"tgvidbot/internal/util"
	"tgvidbot/internal/util/format"
	"tgvidbot/internal/util/media"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "plan [urls...]",
		Short:         "Show the download a quality button would start, without running it",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("quality")
			q, ft, err := parseQuality(raw)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
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

			outs := resolveAll(cmd.Context(), r, args)
			w := cmd.OutOrStdout()
			for i, o := range outs {
				if i > 0 {
					fmt.Fprintln(w)
				}
				id, _ := platform.Detect(o.URL)
				writePlan(w, o, planInput{
					Quality:   q,
					FileType:  ft,
					Platform:  id,
					DLPath:    a.dlPath,
					TempDir:   a.cfg.TempDir,
					MaxUpload: a.cfg.MaxUploadBytes(),
					Options:   a.extractOptions(id),
				})
			}
			if n := failed(outs); n > 0 {
				return &ExitError{Code: ExitResolveError, Err: fmt.Errorf("%d of %d link(s) failed", n, len(outs))}
			}
			return nil
		},
	}
	cmd.Flags().StringP("quality", "q", strconv.Itoa(quality.DefaultTier), "Tier (144, 240, 360, 480, 720, 1080) or audio")
	return cmd
}

// parseQuality accepts a tier number, optionally suffixed with p, or "audio".
func parseQuality(s string) (string, model.FileType, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "p")
	if s == quality.AudioID {
		return s, model.FileAudio, nil
	}
	if n, err := strconv.Atoi(s); err == nil && quality.IsTier(n) {
		return s, model.FileVideo, nil
	}
	return "", "", fmt.Errorf("invalid --quality %q (valid: 144|240|360|480|720|1080|audio)", s)
}

type planInput struct {
	Quality   string
	FileType  model.FileType
	Platform  platform.ID
	DLPath    string
	TempDir   string
	MaxUpload int64
	Options   extract.Options
}

func writePlan(w io.Writer, o outcome, in planInput) {
	fmt.Fprintf(w, "Plan for %s\n", o.URL)
	if o.Err != nil {
		fmt.Fprintf(w, "- Error:       %v\n", o.Err)
		return
	}
	job := pipeline.Job{
		SourceURL:       o.Info.SourceURL,
		Platform:        in.Platform,
		Title:           o.Info.Title,
		Quality:         in.Quality,
		FileType:        in.FileType,
		DurationSeconds: o.Info.DurationSeconds,
		KnownSize:       pipeline.KnownSize(o.Info, in.Quality, in.FileType),
	}
	if job.SourceURL == "" {
		job.SourceURL = o.URL
	}
	p := pipeline.Describe(job, in.MaxUpload)

	sizeNote := "reported"
	if p.Estimated {
		sizeNote = "estimated"
	}
	fits := "yes"
	if p.TooLarge {
		fits = "no, the button is hidden"
	}
	args := downloader.Args(downloader.Request{
		URL:         job.SourceURL,
		Platform:    job.Platform,
		Quality:     job.Quality,
		FileType:    job.FileType,
		Dir:         filepath.Join(in.TempDir, "<job-id>"),
		Options:     in.Options,
		MaxFilesize: in.MaxUpload,
	})

	fmt.Fprintf(w, "- Title:       %s\n", o.Info.Title)
	fmt.Fprintf(w, "- Duration:    %s\n", format.Duration(o.Info.DurationSeconds))
	fmt.Fprintf(w, "- Quality:     %s (%s)\n", in.Quality, in.FileType)
	fmt.Fprintf(w, "- Selector:    %s\n", p.Selector)
	fmt.Fprintf(w, "- Size:        %s (%s), limit %s\n", format.HumanizeBytes(p.EstimatedBytes), sizeNote, format.HumanizeBytes(in.MaxUpload))
	fmt.Fprintf(w, "- Fits:        %s\n", fits)
	fmt.Fprintf(w, "- Upload name: %s\n", media.UploadName(job.Title, job.Quality, job.FileType, ""))
	fmt.Fprintf(w, "- Command:     %s\n", util.ShellQuote(in.DLPath, args))
}
