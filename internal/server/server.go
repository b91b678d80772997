package server

import (
	"encoding/json"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"battleship/internal/game"
	"battleship/internal/session"
	"battleship/internal/storage"
)

// Server is the HTTP server.
type Server struct {
	mux      *http.ServeMux
	variants *game.Registry
	manager  *session.Manager
	store    *storage.Store
	webFS    fs.FS
}

// New creates a server with all routes. webFS may be nil, in which case no
// static files are served.
func New(variants *game.Registry, manager *session.Manager, store *storage.Store, webFS fs.FS) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		variants: variants,
		manager:  manager,
		store:    store,
		webFS:    webFS,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	// API routes
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
	s.mux.HandleFunc("GET /api/rules", s.handleRules)
	s.mux.HandleFunc("GET /api/variants", s.handleVariants)
	s.mux.HandleFunc("GET /api/matches", s.handleListMatches)
	s.mux.HandleFunc("GET /api/matches/{id}", s.handleGetMatch)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// Static files
	if s.webFS != nil {
		s.mux.Handle("/", http.FileServer(http.FS(s.webFS)))
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Rules())
}

func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.variants.List())
}

type matchRow struct {
	ID        string    `json:"id"`
	Rules     string    `json:"rules"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Age       string    `json:"age"`
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListMatches(r.URL.Query().Get("status"))
	if err != nil {
		log.Printf("list matches: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not list matches"})
		return
	}
	out := make([]matchRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, matchRow{
			ID:        row.ID,
			Rules:     row.Rules,
			Status:    row.Status,
			CreatedAt: row.CreatedAt,
			Age:       humanize.Time(row.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	match, ok := s.manager.Lookup(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "match not found"})
		return
	}
	writeJSON(w, http.StatusOK, match.Info())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		session.Stats
	}{Status: "ok", Stats: s.manager.Stats()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
