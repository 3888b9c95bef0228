package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebot/engine"
	"github.com/rustyeddy/tradebot/logbuf"
	"github.com/rustyeddy/tradebot/signal"
	"github.com/rustyeddy/tradebot/xapi"
)

type fakeBot struct {
	snap      engine.Snapshot
	margin    xapi.MarginLevel
	marginErr error
	cycleErr  error
	cycles    int
}

func (b *fakeBot) Snapshot() engine.Snapshot { return b.snap }
func (b *fakeBot) MarginLevel(context.Context) (xapi.MarginLevel, error) {
	return b.margin, b.marginErr
}
func (b *fakeBot) RunCycle(context.Context) error { b.cycles++; return b.cycleErr }

func newTestServer(bot *fakeBot, logs *logbuf.Buffer) *httptest.Server {
	if logs == nil {
		logs = logbuf.New(10)
	}
	return httptest.NewServer(NewServer(bot, logs, zerolog.Nop()).Router())
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp
}

func TestStatus(t *testing.T) {
	bot := &fakeBot{
		snap: engine.Snapshot{
			Symbol:     "EURUSD",
			Connected:  true,
			Cycles:     12,
			LastSignal: signal.None,
		},
		margin: xapi.MarginLevel{Balance: 10000, Equity: 10050},
	}
	srv := newTestServer(bot, nil)
	defer srv.Close()

	var got statusResponse
	resp := getJSON(t, srv.URL+"/status", &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "EURUSD", got.Symbol)
	assert.True(t, got.Connected)
	assert.Equal(t, uint64(12), got.Cycles)
	require.NotNil(t, got.Account)
	assert.Equal(t, 10050.0, got.Account.Equity)
}

func TestStatusWithoutAccount(t *testing.T) {
	bot := &fakeBot{marginErr: errors.New("not connected")}
	srv := newTestServer(bot, nil)
	defer srv.Close()

	var got statusResponse
	resp := getJSON(t, srv.URL+"/status", &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, got.Account)
}

func TestDebug(t *testing.T) {
	bot := &fakeBot{snap: engine.Snapshot{
		Symbol:          "EURUSD",
		StreamSessionID: "sess-9",
		LastSignal:      signal.Buy,
		LastClose:       1.085,
		Bars:            100,
	}}
	srv := newTestServer(bot, nil)
	defer srv.Close()

	var got engine.Snapshot
	resp := getJSON(t, srv.URL+"/debug", &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sess-9", got.StreamSessionID)
	assert.Equal(t, signal.Buy, got.LastSignal)
	assert.Equal(t, 100, got.Bars)
}

func TestLogs(t *testing.T) {
	logs := logbuf.New(10)
	_, _ = logs.Write([]byte("one\ntwo\n"))
	srv := newTestServer(&fakeBot{}, logs)
	defer srv.Close()

	var got map[string][]string
	resp := getJSON(t, srv.URL+"/logs", &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"one", "two"}, got["lines"])
}

func TestTradeTriggersCycle(t *testing.T) {
	bot := &fakeBot{snap: engine.Snapshot{Symbol: "EURUSD"}}
	srv := newTestServer(bot, nil)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/trade", "application/json", strings.NewReader(""))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, bot.cycles)
}

func TestTradeReportsFailure(t *testing.T) {
	bot := &fakeBot{cycleErr: errors.New("venue unreachable")}
	srv := newTestServer(bot, nil)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/trade", "application/json", strings.NewReader(""))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Contains(t, got["error"], "unreachable")
}

func TestTradeRejectsGet(t *testing.T) {
	srv := newTestServer(&fakeBot{}, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/trade")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMetricsExposed(t *testing.T) {
	srv := newTestServer(&fakeBot{}, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
