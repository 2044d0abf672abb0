package history

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"openlink/internal/protocol"
)

// Server exposes a read-only REST API over the session snapshot archive.
type Server struct {
	store *Store
	port  int
}

// NewServer binds a read API to store, listening on port.
func NewServer(store *Store, port int) *Server {
	return &Server{store: store, port: port}
}

// Router builds the chi router for the history read API.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/networks/{network}/aircraft/{callsign}/history", s.handleHistory)
	})
	return r
}

// Run starts the HTTP server, blocking until it exits.
func (s *Server) Run() error {
	return http.ListenAndServe(":"+strconv.Itoa(s.port), s.Router())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	network := protocol.NetworkId(chi.URLParam(r, "network"))
	aircraft := protocol.Callsign(chi.URLParam(r, "callsign"))

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	snapshots, err := s.store.History(r.Context(), network, aircraft, limit)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snapshots)
}
