// Package xapi implements the venue's WebSocket command API: a persistent
// connection carrying JSON request/response pairs, plus the session lifecycle
// (login, liveness checks, reconnect-with-backoff) on top of it.
package xapi

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// DemoURL is the venue's demo endpoint. Real accounts use a different port on
// the same host.
const DemoURL = "wss://ws.xtb.com/demo"

const (
	handshakeTimeout = 10 * time.Second
	// DefaultCallTimeout bounds every command round-trip. A timeout is a
	// transport failure: the caller tears the connection down and rebuilds
	// it rather than waiting on a dead socket.
	DefaultCallTimeout = 30 * time.Second
)

// APIError is a venue-level rejection: the transport worked but the command
// came back with status=false. These are final for the request that caused
// them and must not trigger a reconnect.
type APIError struct {
	Code  string
	Descr string
}

func (e *APIError) Error() string {
	if e.Descr == "" {
		return fmt.Sprintf("xapi: command rejected (code %s)", e.Code)
	}
	return fmt.Sprintf("xapi: %s (code %s)", e.Descr, e.Code)
}

// Client is a low-level command client over one WebSocket connection. One
// command is in flight at a time; the venue answers requests in order.
type Client struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	timeout time.Duration
	log     zerolog.Logger
}

// Dial opens the WebSocket connection. The caller owns the returned client
// and must Close it.
func Dial(ctx context.Context, url string, timeout time.Duration, log zerolog.Logger) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(1 << 20)

	log.Debug().Str("url", url).Msg("venue socket connected")
	return &Client{conn: conn, timeout: timeout, log: log}, nil
}

// Close shuts the connection down. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Execute sends one command and decodes its returnData into out (out may be
// nil for commands whose payload the caller ignores). A status=false reply
// returns an *APIError; anything else is a transport failure.
func (c *Client) Execute(ctx context.Context, command string, args, out any) (*response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, fmt.Errorf("execute %s: connection closed", command)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	req := request{Command: command, Arguments: args}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return nil, fmt.Errorf("execute %s: %w", command, err)
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("execute %s: write: %w", command, err)
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("execute %s: %w", command, err)
	}
	var resp response
	if err := c.conn.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("execute %s: read: %w", command, err)
	}

	if !resp.Status {
		return &resp, &APIError{Code: resp.ErrorCode, Descr: resp.ErrorDescr}
	}

	if out != nil && len(resp.ReturnData) > 0 {
		if err := json.Unmarshal(resp.ReturnData, out); err != nil {
			return nil, fmt.Errorf("execute %s: decode returnData: %w", command, err)
		}
	}
	return &resp, nil
}

// Login authenticates and returns the stream session id the venue hands out
// for the streaming socket.
func (c *Client) Login(ctx context.Context, userID, password string) (string, error) {
	resp, err := c.Execute(ctx, "login", loginArguments{
		UserID:   userID,
		Password: password,
		AppName:  "tradebot",
	}, nil)
	if err != nil {
		return "", err
	}
	return resp.StreamSessionID, nil
}

// Ping is the liveness probe.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Execute(ctx, "ping", nil, nil)
	return err
}

// GetChartLast requests candles for symbol at the given period (minutes)
// starting from start.
func (c *Client) GetChartLast(ctx context.Context, symbol string, period int, start time.Time) (ChartData, error) {
	var data ChartData
	_, err := c.Execute(ctx, "getChartLastRequest", chartLastArguments{
		Info: chartLastInfo{
			Symbol: symbol,
			Period: period,
			Start:  start.UnixMilli(),
		},
	}, &data)
	return data, err
}

// GetSymbol fetches the current quote and instrument constraints.
func (c *Client) GetSymbol(ctx context.Context, symbol string) (SymbolInfo, error) {
	var info SymbolInfo
	_, err := c.Execute(ctx, "getSymbol", symbolArguments{Symbol: symbol}, &info)
	return info, err
}

// GetTrades lists trades; openedOnly restricts to working positions.
func (c *Client) GetTrades(ctx context.Context, openedOnly bool) ([]Trade, error) {
	var trades []Trade
	_, err := c.Execute(ctx, "getTrades", tradesArguments{OpenedOnly: openedOnly}, &trades)
	return trades, err
}

// TradeTransaction submits an order and returns the venue's order id.
func (c *Client) TradeTransaction(ctx context.Context, info TradeTransInfo) (int64, error) {
	var ret tradeTransactionReturn
	_, err := c.Execute(ctx, "tradeTransaction", tradeTransactionArguments{TradeTransInfo: info}, &ret)
	if err != nil {
		return 0, err
	}
	return ret.Order, nil
}

// GetMarginLevel fetches the account balance/equity snapshot.
func (c *Client) GetMarginLevel(ctx context.Context) (MarginLevel, error) {
	var ml MarginLevel
	_, err := c.Execute(ctx, "getMarginLevel", nil, &ml)
	return ml, err
}
