package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/tradebot/config"
	"github.com/rustyeddy/tradebot/engine"
	"github.com/rustyeddy/tradebot/execute"
	"github.com/rustyeddy/tradebot/feed"
	"github.com/rustyeddy/tradebot/logbuf"
	"github.com/rustyeddy/tradebot/position"
	"github.com/rustyeddy/tradebot/signal"
	"github.com/rustyeddy/tradebot/store"
	"github.com/rustyeddy/tradebot/xapi"
)

// newLogger tees structured logs to stdout and the in-memory ring the HTTP
// surface serves under /logs.
func newLogger(level string, buf *logbuf.Buffer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.MultiLevelWriter(os.Stdout, buf)).
		With().Timestamp().Logger().Level(lvl)
}

func requireCredentials(cfg *config.Config) error {
	if cfg.Venue.UserID == "" || cfg.Venue.Password == "" {
		return fmt.Errorf("venue credentials missing: set XTB_USER_ID and XTB_PASSWORD")
	}
	return nil
}

func newSession(cfg *config.Config, log zerolog.Logger) (*xapi.Session, error) {
	reconnect, err := cfg.ReconnectInterval()
	if err != nil {
		return nil, err
	}
	return xapi.NewSession(xapi.SessionConfig{
		URL:               cfg.Venue.URL,
		UserID:            cfg.Venue.UserID,
		Password:          cfg.Venue.Password,
		ReconnectInterval: reconnect,
	}, log), nil
}

// buildBot wires the full engine from configuration. The returned store is
// nil when persistence is disabled; the caller owns closing it.
func buildBot(cfg *config.Config, log zerolog.Logger) (*engine.Bot, *store.Store, error) {
	session, err := newSession(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	symbol := cfg.Strategy.Symbol
	fd := feed.New(session, cfg.Venue.PriceScales, log)
	tracker := position.NewTracker(session, symbol, log)
	executor := execute.New(session, tracker, cfg.Policy(), symbol, log)

	eval, err := signal.NewEvaluator(signal.Ruleset(cfg.Strategy.Ruleset))
	if err != nil {
		return nil, nil, err
	}

	interval, err := cfg.CycleInterval()
	if err != nil {
		return nil, nil, err
	}

	var st *store.Store
	var states engine.StateStore
	if cfg.Store.Path != "" {
		st, err = store.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open state store: %w", err)
		}
		states = st
	}

	bot := engine.New(session, fd, tracker, executor, eval, states, engine.Settings{
		Symbol:   symbol,
		Period:   cfg.Period(),
		Lookback: cfg.Strategy.Lookback,
		Interval: interval,
	}, log)
	bot.RestoreState()

	return bot, st, nil
}
