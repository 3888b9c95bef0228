package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebot/config"
	"github.com/rustyeddy/tradebot/feed"
	"github.com/rustyeddy/tradebot/indicators"
	"github.com/rustyeddy/tradebot/logbuf"
	"github.com/rustyeddy/tradebot/signal"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one diagnostic pass against the venue (no orders)",
	Long: `Connect to the venue, fetch quotes and candles, evaluate the strategy
and report what the bot would do. No orders are placed.

Example:
  tradebot check --config bot.yaml`,
	RunE: runCheck,
}

var checkConfigPath string

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	checkCmd.MarkFlagRequired("config")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(checkConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := requireCredentials(cfg); err != nil {
		return err
	}

	log := newLogger("warn", logbuf.New(0))
	session, err := newSession(cfg, log)
	if err != nil {
		return err
	}
	defer session.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Printf("Connecting to %s ...\n", cfg.Venue.URL)
	if err := session.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	fmt.Println("✓ Connected and logged in")

	ml, err := session.GetMarginLevel(ctx)
	if err != nil {
		return fmt.Errorf("account summary: %w", err)
	}
	fmt.Printf("✓ Account: balance %.2f, equity %.2f, free margin %.2f\n",
		ml.Balance, ml.Equity, ml.MarginFree)

	symbol := cfg.Strategy.Symbol
	info, err := session.GetSymbol(ctx, symbol)
	if err != nil {
		return fmt.Errorf("quote %s: %w", symbol, err)
	}
	fmt.Printf("✓ %s quote: ask %v, bid %v (lot min %v, step %v)\n",
		symbol, info.Ask, info.Bid, info.LotMin, info.LotStep)

	fd := feed.New(session, cfg.Venue.PriceScales, log)
	series, err := fd.FetchRecent(ctx, symbol, cfg.Period(), cfg.Strategy.Lookback)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	fmt.Printf("✓ Candles: %d bars of %s", series.Len(), cfg.Strategy.Timeframe)
	if series.Len() > 0 {
		last := series.Last()
		fmt.Printf(", last close %v at %s", last.Close, last.Time.Format(time.RFC3339))
	}
	fmt.Println()

	frames := indicators.ComputeFrames(series, indicators.FrameConfig{})
	if len(frames) > 0 {
		f := frames[len(frames)-1]
		fmt.Printf("✓ Indicators: sma20 %.5f, sma50 %.5f, rsi14 %.2f\n",
			f.SMAFast, f.SMASlow, f.RSI)
	}

	eval, err := signal.NewEvaluator(signal.Ruleset(cfg.Strategy.Ruleset))
	if err != nil {
		return err
	}
	fmt.Printf("✓ Signal: %s\n", eval.Evaluate(series, frames))

	trades, err := session.GetTrades(ctx, true)
	if err != nil {
		return fmt.Errorf("open trades: %w", err)
	}
	if len(trades) == 0 {
		fmt.Println("✓ No open trades")
	} else {
		for _, tr := range trades {
			fmt.Printf("✓ Open trade: %s order %d cmd %d volume %v @ %v (sl %v, tp %v)\n",
				tr.Symbol, tr.Order2, tr.Cmd, tr.Volume, tr.OpenPrice, tr.SL, tr.TP)
		}
	}

	fmt.Println("\nAll checks passed. No orders were placed.")
	return nil
}
