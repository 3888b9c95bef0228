// Package web exposes the bot's status surface over HTTP.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/tradebot/engine"
	"github.com/rustyeddy/tradebot/logbuf"
	"github.com/rustyeddy/tradebot/xapi"
)

const requestTimeout = 35 * time.Second

// Bot is the slice of the engine the HTTP surface needs.
type Bot interface {
	Snapshot() engine.Snapshot
	MarginLevel(ctx context.Context) (xapi.MarginLevel, error)
	RunCycle(ctx context.Context) error
}

// Server serves status, debug, logs and the manual trade trigger.
type Server struct {
	bot  Bot
	logs *logbuf.Buffer
	log  zerolog.Logger
}

func NewServer(bot Bot, logs *logbuf.Buffer, log zerolog.Logger) *Server {
	return &Server{bot: bot, logs: logs, log: log}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/debug", s.handleDebug).Methods("GET")
	r.HandleFunc("/logs", s.handleLogs).Methods("GET")
	r.HandleFunc("/trade", s.handleTrade).Methods("POST")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
	return r
}

// ListenAndServe blocks until the context is cancelled, then shuts the
// server down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	s.log.Info().Str("addr", addr).Msg("http server listening")
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		return err
	}
}

type statusResponse struct {
	Symbol    string            `json:"symbol"`
	Connected bool              `json:"connected"`
	Cycles    uint64            `json:"cycles"`
	LastCycle time.Time         `json:"last_cycle"`
	LastError string            `json:"last_error,omitempty"`
	Signal    string            `json:"signal,omitempty"`
	Account   *xapi.MarginLevel `json:"account,omitempty"`
}

// handleStatus reports connectivity, the last cycle outcome and, when the
// venue is reachable, the account summary.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	snap := s.bot.Snapshot()
	resp := statusResponse{
		Symbol:    snap.Symbol,
		Connected: snap.Connected,
		Cycles:    snap.Cycles,
		LastCycle: snap.LastCycle,
		LastError: snap.LastError,
		Signal:    string(snap.LastSignal),
	}

	if ml, err := s.bot.MarginLevel(ctx); err == nil {
		resp.Account = &ml
	} else {
		s.log.Debug().Err(err).Msg("account summary unavailable")
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleDebug dumps the full engine snapshot, indicators included.
func (s *Server) handleDebug(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.bot.Snapshot())
}

func (s *Server) handleLogs(w http.ResponseWriter, _ *http.Request) {
	lines := s.logs.Lines()
	if lines == nil {
		lines = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"lines": lines})
}

// handleTrade runs one strategy cycle immediately. It shares the engine's
// cycle lock, so it can never race the scheduler.
func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	s.log.Info().Str("remote", r.RemoteAddr).Msg("manual cycle requested")
	if err := s.bot.RunCycle(ctx); err != nil {
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, s.bot.Snapshot())
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug().Err(err).Msg("encode response")
	}
}
