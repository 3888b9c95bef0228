package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebot/position"
	"github.com/rustyeddy/tradebot/xapi"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPositionRoundTrip(t *testing.T) {
	s := newTestStore(t)

	opened := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := position.Position{
		OrderID: 4242, Symbol: "EURUSD", Side: position.Long,
		EntryPrice: 1.0852, StopPrice: 1.0752, TargetPrice: 1.1052,
		Volume: 0.5, OpenedAt: opened,
	}
	require.NoError(t, s.SavePosition(p))

	got, ok, err := s.LoadPosition("EURUSD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p.OrderID, got.OrderID)
	assert.Equal(t, position.Long, got.Side)
	assert.Equal(t, p.StopPrice, got.StopPrice)
	assert.True(t, opened.Equal(got.OpenedAt))
}

func TestSavePositionUpserts(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SavePosition(position.Position{OrderID: 1, Symbol: "EURUSD", Side: position.Long, OpenedAt: time.Now()}))
	require.NoError(t, s.SavePosition(position.Position{OrderID: 2, Symbol: "EURUSD", Side: position.Short, OpenedAt: time.Now()}))

	got, ok, err := s.LoadPosition("EURUSD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.OrderID)
	assert.Equal(t, position.Short, got.Side)
}

func TestLoadPositionMissing(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.LoadPosition("EURUSD")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearPosition(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SavePosition(position.Position{OrderID: 1, Symbol: "EURUSD", Side: position.Long, OpenedAt: time.Now()}))
	require.NoError(t, s.ClearPosition("EURUSD"))

	_, ok, err := s.LoadPosition("EURUSD")
	require.NoError(t, err)
	assert.False(t, ok)

	// Clearing twice is fine.
	assert.NoError(t, s.ClearPosition("EURUSD"))
}

func TestRecordEquity(t *testing.T) {
	s := newTestStore(t)

	err := s.RecordEquity(time.Now().UTC(), xapi.MarginLevel{
		Balance: 10000, Equity: 10050, Margin: 120, MarginFree: 9930,
	})
	assert.NoError(t, err)
}
