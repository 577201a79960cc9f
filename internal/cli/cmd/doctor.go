package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"tgvidbot/internal/config"
	"tgvidbot/internal/util"
	"tgvidbot/internal/util/deps"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose external dependencies (yt-dlp, ffmpeg) and configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			if err := doctor(cmd.Context(), cmd.OutOrStdout(), util.NewDefaultRunner(), cfg); err != nil {
				return &ExitError{Code: ExitMissingDep, Err: err}
			}
			return nil
		},
	}
}

// doctor prints what it finds and returns every missing piece at once.
func doctor(ctx context.Context, w io.Writer, r util.CmdRunner, cfg config.Config) error {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	var merr *multierror.Error
	check := func(name string, find func() (string, error)) {
		path, err := find()
		if err != nil {
			merr = multierror.Append(merr, err)
			fmt.Fprintf(w, "%-10s missing (%v)\n", name+":", err)
			return
		}
		version, err := deps.Version(ctx, r, path)
		if err != nil {
			version = "version unknown"
		}
		fmt.Fprintf(w, "%-10s %s (%s)\n", name+":", path, version)
	}
	check("yt-dlp", func() (string, error) { return deps.FindDownloader(cfg.DLBinary) })
	check("ffmpeg", deps.FindFFmpeg)

	fmt.Fprintf(w, "%-10s %s\n", "database:", cfg.DBPath)
	fmt.Fprintf(w, "%-10s %s\n", "temp dir:", cfg.TempDir)
	api := "api.telegram.org"
	if cfg.Telegram.APIURL != "" {
		api = cfg.Telegram.APIURL
	}
	fmt.Fprintf(w, "%-10s %s\n", "bot api:", api)
	if err := cfg.Validate(true); err != nil {
		fmt.Fprintf(w, "%-10s %v\n", "token:", err)
	} else {
		fmt.Fprintf(w, "%-10s set\n", "token:")
	}
	return merr.ErrorOrNil()
}
