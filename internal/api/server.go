package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"throne/internal/economy"
	"throne/internal/store"
	"throne/internal/view"
)

type Game interface {
	Stats() store.Stats
	ChatStats(chatID string) view.ChatStats
}

type Economy interface {
	Info() economy.Info
}

// Server exposes read-only process health and game statistics.
type Server struct {
	log     *slog.Logger
	game    Game
	economy Economy
	started time.Time
	mux     *chi.Mux
}

func New(logger *slog.Logger, game Game, econ Economy) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		log:     logger,
		game:    game,
		economy: econ,
		started: time.Now(),
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Health{OK: true, UptimeSeconds: int64(time.Since(s.started).Seconds())})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/economy", s.handleEconomy)
		r.Get("/chats/{chatID}", s.handleChat)
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Stats())
}

func (s *Server) handleEconomy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.economy.Info())
}

type Health struct {
	OK            bool  `json:"ok"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

type ChatResponse struct {
	ChatID    string       `json:"chat_id"`
	UserCount int          `json:"user_count"`
	King      *store.King  `json:"king,omitempty"`
	Top       []store.User `json:"top"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	chatID := strings.TrimSpace(chi.URLParam(r, "chatID"))
	if chatID == "" {
		writeError(w, http.StatusBadRequest, "chat id is required")
		return
	}
	st := s.game.ChatStats(chatID)
	if st.UserCount == 0 && st.King == nil {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	top := st.Top
	if top == nil {
		top = []store.User{}
	}
	writeJSON(w, http.StatusOK, ChatResponse{ChatID: chatID, UserCount: st.UserCount, King: st.King, Top: top})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
