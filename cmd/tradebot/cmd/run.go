package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebot/config"
	"github.com/rustyeddy/tradebot/logbuf"
	"github.com/rustyeddy/tradebot/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live strategy loop",
	Long: `Run the trading loop against the configured venue account.

Each cycle reconciles the open position, fetches recent candles, evaluates
the strategy and, on an actionable signal, places one bracketed market
order. The loop keeps running through transient venue errors.

Example:
  tradebot run --config bot.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := requireCredentials(cfg); err != nil {
		return err
	}

	logs := logbuf.New(logbuf.DefaultCapacity)
	log := newLogger(cfg.LogLevel, logs)

	bot, st, err := buildBot(cfg, log)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Addr != "" {
		srv := web.NewServer(bot, logs, log)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
				log.Error().Err(err).Msg("http server failed")
			}
		}()
	}

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
