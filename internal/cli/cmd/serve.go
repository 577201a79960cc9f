package cmd

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tgvidbot/internal/bot"
	"tgvidbot/internal/config"
	"tgvidbot/internal/netx"
	"tgvidbot/internal/store"
)

const (
	// pollTimeout is the long-polling wait passed to getUpdates, in seconds.
	pollTimeout = 60
	// replyWait bounds the wait for Bot API response headers. A local server
	// answers an upload only after pushing the file on to Telegram.
	replyWait = 10 * time.Minute
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "serve",
		Short:         "Run the Telegram bot until interrupted",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := serve(cmd.Context(), a); err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			return nil
		},
	}
}

func serve(ctx context.Context, a *app) (err error) {
	log := a.log
	if err := tgbotapi.SetLogger(zap.NewStdLog(log.Named("telegram"))); err != nil {
		return fmt.Errorf("telegram logger: %w", err)
	}

	st, err := store.Open(a.cfg.DBPath, store.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			err = multierror.Append(err, fmt.Errorf("close store: %w", cerr)).ErrorOrNil()
		}
	}()
	var merr *multierror.Error
	for _, id := range a.cfg.Admins {
		merr = multierror.Append(merr, st.SetAdmin(ctx, id, true))
	}
	if err := merr.ErrorOrNil(); err != nil {
		return err
	}

	res, err := a.resolver()
	if err != nil {
		return err
	}
	api, err := newBotAPI(a.cfg)
	if err != nil {
		return err
	}
	log.Info("authorized",
		zap.String("bot", api.Self.UserName),
		zap.String("db", a.cfg.DBPath),
		zap.Bool("local_api", a.cfg.Telegram.APIURL != ""))

	b := bot.New(api, res, a.pipeline(), st,
		bot.WithLogger(log.Named("bot")),
		bot.WithMaxUploadBytes(a.cfg.MaxUploadBytes()))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	err = b.Run(ctx, updates)
	log.Info("stopped")
	return err
}

// newBotAPI connects to the public Bot API or a local server. Uploads of
// large files run for minutes, so only the header wait is bounded.
func newBotAPI(cfg config.Config) (*tgbotapi.BotAPI, error) {
	client, err := netx.NewHTTPClient(netx.Config{
		ProxyURL:      cfg.Proxy.URL,
		NoProxy:       cfg.Proxy.NoProxy,
		Timeout:       -1,
		HeaderTimeout: replyWait,
	})
	if err != nil {
		return nil, err
	}
	endpoint := tgbotapi.APIEndpoint
	if cfg.Telegram.APIURL != "" {
		endpoint = cfg.Telegram.APIURL + "/bot%s/%s"
	}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram.Token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = cfg.Telegram.Debug
	return api, nil
}
