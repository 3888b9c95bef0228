package xapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/tradebot/metrics"
)

// ErrNotConnected is returned when a venue command is attempted without an
// authenticated session. Callers go through EnsureConnected first.
var ErrNotConnected = errors.New("xapi: not connected")

// SessionConfig carries the connection policy. Credentials are loaded once at
// startup and never mutated.
type SessionConfig struct {
	URL      string
	UserID   string
	Password string

	// ReconnectInterval is the liveness-check cadence. A session older than
	// this gets a ping before the next command batch; ping failure tears the
	// connection down and reconnects. Default 60s.
	ReconnectInterval time.Duration

	// CallTimeout bounds each command round-trip. Default 30s.
	CallTimeout time.Duration
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.URL == "" {
		c.URL = DemoURL
	}
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = 60 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	return c
}

// Session owns the transport exclusively and is the single gate every other
// component calls before using it. It is not internally synchronized: the
// engine serializes all access behind the bot lock.
type Session struct {
	cfg SessionConfig
	log zerolog.Logger

	client          *Client
	authenticated   bool
	streamSessionID string
	lastLiveness    time.Time

	now  func() time.Time
	dial func(ctx context.Context, url string, timeout time.Duration, log zerolog.Logger) (*Client, error)
}

// NewSession builds a session; no connection is made until Connect or
// EnsureConnected.
func NewSession(cfg SessionConfig, log zerolog.Logger) *Session {
	return &Session{
		cfg:  cfg.withDefaults(),
		log:  log,
		now:  time.Now,
		dial: Dial,
	}
}

// Connected reports whether an authenticated session exists. It does not
// probe the transport; use EnsureConnected for that.
func (s *Session) Connected() bool { return s.client != nil && s.authenticated }

// StreamSessionID returns the id the venue issued at login for the streaming
// socket, or "" when disconnected.
func (s *Session) StreamSessionID() string { return s.streamSessionID }

// Connect replaces any prior transport (closing it first), dials, and logs
// in. On success the session is authenticated and the liveness clock resets.
func (s *Session) Connect(ctx context.Context) error {
	s.Disconnect()

	client, err := s.dial(ctx, s.cfg.URL, s.cfg.CallTimeout, s.log)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	sid, err := client.Login(ctx, s.cfg.UserID, s.cfg.Password)
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("login: %w", err)
	}

	s.client = client
	s.authenticated = true
	s.streamSessionID = sid
	s.lastLiveness = s.now()
	s.log.Info().Str("url", s.cfg.URL).Msg("venue session established")
	return nil
}

// EnsureConnected makes sure an authenticated, live session exists: connect
// if there is none, ping if the last liveness check is stale, reconnect if
// the ping fails.
func (s *Session) EnsureConnected(ctx context.Context) error {
	if !s.Connected() {
		return s.Connect(ctx)
	}

	if s.now().Sub(s.lastLiveness) < s.cfg.ReconnectInterval {
		return nil
	}

	if err := s.client.Ping(ctx); err != nil {
		s.log.Warn().Err(err).Msg("liveness ping failed, reconnecting")
		metrics.ReconnectsTotal.Inc()
		return s.Connect(ctx)
	}
	s.lastLiveness = s.now()
	return nil
}

// Disconnect closes the transport. Idempotent; teardown errors are logged
// and swallowed, teardown must not fail.
func (s *Session) Disconnect() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.log.Debug().Err(err).Msg("error closing venue socket")
		}
	}
	s.client = nil
	s.authenticated = false
	s.streamSessionID = ""
}

// do runs one venue command. Venue-level rejections (APIError) pass through
// untouched. A transport failure triggers exactly one reconnect attempt and
// one retry before the operation is surfaced as failed.
func (s *Session) do(ctx context.Context, op string, fn func(*Client) error) error {
	if !s.Connected() {
		return ErrNotConnected
	}

	err := fn(s.client)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}

	s.log.Warn().Err(err).Str("op", op).Msg("transport error, reconnecting once")
	metrics.ReconnectsTotal.Inc()
	if cerr := s.Connect(ctx); cerr != nil {
		return fmt.Errorf("%s: %w (reconnect failed: %v)", op, err, cerr)
	}
	return fn(s.client)
}

// GetChartLast requests a candle window through the session gate.
func (s *Session) GetChartLast(ctx context.Context, symbol string, period int, start time.Time) (ChartData, error) {
	var data ChartData
	err := s.do(ctx, "getChartLastRequest", func(c *Client) error {
		var err error
		data, err = c.GetChartLast(ctx, symbol, period, start)
		return err
	})
	return data, err
}

// GetSymbol fetches the current quote and constraints for symbol.
func (s *Session) GetSymbol(ctx context.Context, symbol string) (SymbolInfo, error) {
	var info SymbolInfo
	err := s.do(ctx, "getSymbol", func(c *Client) error {
		var err error
		info, err = c.GetSymbol(ctx, symbol)
		return err
	})
	return info, err
}

// GetTrades lists the venue's trades; openedOnly restricts to working ones.
func (s *Session) GetTrades(ctx context.Context, openedOnly bool) ([]Trade, error) {
	var trades []Trade
	err := s.do(ctx, "getTrades", func(c *Client) error {
		var err error
		trades, err = c.GetTrades(ctx, openedOnly)
		return err
	})
	return trades, err
}

// TradeTransaction submits an order through the session gate.
func (s *Session) TradeTransaction(ctx context.Context, info TradeTransInfo) (int64, error) {
	var order int64
	err := s.do(ctx, "tradeTransaction", func(c *Client) error {
		var err error
		order, err = c.TradeTransaction(ctx, info)
		return err
	})
	return order, err
}

// GetMarginLevel fetches the account snapshot.
func (s *Session) GetMarginLevel(ctx context.Context) (MarginLevel, error) {
	var ml MarginLevel
	err := s.do(ctx, "getMarginLevel", func(c *Client) error {
		var err error
		ml, err = c.GetMarginLevel(ctx)
		return err
	})
	return ml, err
}
