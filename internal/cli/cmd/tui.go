package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"tgvidbot/internal/ui"
	"tgvidbot/internal/util"
)

func newTuiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tui [urls...]",
		Short:         "Resolve links in an interactive job list, optionally downloading them",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal() {
				return &ExitError{Code: ExitCLIError, Err: errors.New("tui needs a terminal; use resolve instead")}
			}
			opts := ui.Options{}
			if raw, _ := cmd.Flags().GetString("quality"); raw != "" {
				q, ft, err := parseQuality(raw)
				if err != nil {
					return &ExitError{Code: ExitCLIError, Err: err}
				}
				opts.Quality, opts.FileType = q, ft
				opts.OutDir, _ = cmd.Flags().GetString("out-dir")
				if err := util.EnsureDir(opts.OutDir); err != nil {
					return &ExitError{Code: ExitCLIError, Err: err}
				}
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
			opts.Resolver = r
			if opts.FileType != "" {
				opts.Deliverer = a.pipeline()
			}
			opts.Workers = a.cfg.DownloadWorkers

			if err := ui.Run(cmd.Context(), args, opts); err != nil {
				return &ExitError{Code: ExitResolveError, Err: err}
			}
			return nil
		},
	}
	cmd.Flags().StringP("quality", "q", "", "Also download this tier (144..1080) or audio")
	cmd.Flags().StringP("out-dir", "o", ".", "Where downloaded files are saved")
	return cmd
}
