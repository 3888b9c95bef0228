package xapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawRequest struct {
	Command   string          `json:"command"`
	Arguments json.RawMessage `json:"arguments"`
}

// venueHandler scripts one command exchange. Returning ok=false closes the
// connection without replying, simulating a transport drop.
type venueHandler func(conn int, req rawRequest) (resp response, ok bool)

// fakeVenue runs a scripted xAPI server over a real WebSocket.
type fakeVenue struct {
	srv      *httptest.Server
	conns    atomic.Int32
	commands atomic.Int32
}

func newFakeVenue(t *testing.T, handle venueHandler) *fakeVenue {
	t.Helper()
	fv := &fakeVenue{}
	upgrader := websocket.Upgrader{}

	fv.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		n := int(fv.conns.Add(1))
		for {
			var req rawRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			fv.commands.Add(1)
			resp, ok := handle(n, req)
			if !ok {
				return
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(fv.srv.Close)
	return fv
}

func (fv *fakeVenue) url() string {
	return "ws" + strings.TrimPrefix(fv.srv.URL, "http")
}

func okVenue(handle func(req rawRequest) response) venueHandler {
	return func(_ int, req rawRequest) (response, bool) {
		return handle(req), true
	}
}

func loginOK(req rawRequest) response {
	if req.Command == "login" {
		return response{Status: true, StreamSessionID: "stream-1"}
	}
	return response{Status: true}
}

func TestClientLoginAndPing(t *testing.T) {
	fv := newFakeVenue(t, okVenue(loginOK))

	c, err := Dial(context.Background(), fv.url(), time.Second, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	sid, err := c.Login(context.Background(), "user", "pass")
	require.NoError(t, err)
	assert.Equal(t, "stream-1", sid)

	assert.NoError(t, c.Ping(context.Background()))
}

func TestClientRejectionIsAPIError(t *testing.T) {
	fv := newFakeVenue(t, okVenue(func(req rawRequest) response {
		return response{Status: false, ErrorCode: "BE005", ErrorDescr: "userPasswordCheck: invalid login"}
	}))

	c, err := Dial(context.Background(), fv.url(), time.Second, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Login(context.Background(), "user", "bad")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BE005", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "invalid login")
}

func TestClientGetChartLastDecodesRateInfos(t *testing.T) {
	fv := newFakeVenue(t, okVenue(func(req rawRequest) response {
		if req.Command != "getChartLastRequest" {
			return response{Status: true}
		}
		var args chartLastArguments
		require.NoError(t, json.Unmarshal(req.Arguments, &args))
		assert.Equal(t, "EURUSD", args.Info.Symbol)
		assert.Equal(t, PeriodH1, args.Info.Period)

		data, _ := json.Marshal(ChartData{
			Digits: 5,
			RateInfos: []RateInfo{
				{Ctm: 1700000000000, Open: 1.05, Close: 1.06, High: 1.07, Low: 1.04, Vol: 12},
			},
		})
		return response{Status: true, ReturnData: data}
	}))

	c, err := Dial(context.Background(), fv.url(), time.Second, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	data, err := c.GetChartLast(context.Background(), "EURUSD", PeriodH1, time.Unix(1700000000, 0))
	require.NoError(t, err)
	require.Len(t, data.RateInfos, 1)
	assert.Equal(t, 5, data.Digits)
	assert.Equal(t, 1.06, data.RateInfos[0].Close)
}

func TestSessionEnsureConnectedConnectsOnce(t *testing.T) {
	fv := newFakeVenue(t, okVenue(loginOK))

	s := NewSession(SessionConfig{
		URL: fv.url(), UserID: "u", Password: "p",
		ReconnectInterval: time.Minute, CallTimeout: time.Second,
	}, zerolog.Nop())
	defer s.Disconnect()

	require.NoError(t, s.EnsureConnected(context.Background()))
	assert.True(t, s.Connected())
	assert.Equal(t, "stream-1", s.StreamSessionID())

	// Within the liveness interval a second call is a no-op: no new
	// connection, no ping on the wire.
	sent := fv.commands.Load()
	require.NoError(t, s.EnsureConnected(context.Background()))
	assert.Equal(t, sent, fv.commands.Load())
	assert.Equal(t, int32(1), fv.conns.Load())
}

func TestSessionLivenessPingAfterInterval(t *testing.T) {
	fv := newFakeVenue(t, okVenue(loginOK))

	s := NewSession(SessionConfig{
		URL: fv.url(), UserID: "u", Password: "p",
		ReconnectInterval: time.Minute, CallTimeout: time.Second,
	}, zerolog.Nop())
	defer s.Disconnect()

	require.NoError(t, s.Connect(context.Background()))

	// Age the session past the liveness interval.
	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	sent := fv.commands.Load()
	require.NoError(t, s.EnsureConnected(context.Background()))
	assert.Equal(t, sent+1, fv.commands.Load(), "expected a ping")
	assert.Equal(t, int32(1), fv.conns.Load(), "healthy ping must not reconnect")
}

func TestSessionReconnectsOnceOnTransportError(t *testing.T) {
	fv := newFakeVenue(t, func(conn int, req rawRequest) (response, bool) {
		if req.Command == "login" {
			return response{Status: true, StreamSessionID: "stream-1"}, true
		}
		if conn == 1 {
			// First connection drops mid-command.
			return response{}, false
		}
		data, _ := json.Marshal([]Trade{{Order2: 42, Symbol: "EURUSD"}})
		return response{Status: true, ReturnData: data}, true
	})

	s := NewSession(SessionConfig{
		URL: fv.url(), UserID: "u", Password: "p", CallTimeout: time.Second,
	}, zerolog.Nop())
	defer s.Disconnect()

	require.NoError(t, s.Connect(context.Background()))

	trades, err := s.GetTrades(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, int64(42), trades[0].Order2)
	assert.Equal(t, int32(2), fv.conns.Load(), "exactly one reconnect")
}

func TestSessionRejectionDoesNotReconnect(t *testing.T) {
	fv := newFakeVenue(t, okVenue(func(req rawRequest) response {
		if req.Command == "tradeTransaction" {
			return response{Status: false, ErrorCode: "BE4", ErrorDescr: "invalid sl/tp"}
		}
		return loginOK(req)
	}))

	s := NewSession(SessionConfig{
		URL: fv.url(), UserID: "u", Password: "p", CallTimeout: time.Second,
	}, zerolog.Nop())
	defer s.Disconnect()

	require.NoError(t, s.Connect(context.Background()))

	_, err := s.TradeTransaction(context.Background(), TradeTransInfo{Symbol: "EURUSD"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, int32(1), fv.conns.Load(), "rejections are final, no reconnect")
}

func TestSessionCommandsRequireConnection(t *testing.T) {
	s := NewSession(SessionConfig{URL: "ws://127.0.0.1:1"}, zerolog.Nop())
	_, err := s.GetTrades(context.Background(), true)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSessionDisconnectIdempotent(t *testing.T) {
	s := NewSession(SessionConfig{}, zerolog.Nop())
	s.Disconnect()
	s.Disconnect()
	assert.False(t, s.Connected())
}
