package api

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rubiojr/fingertips/pkg/catalog"
	"github.com/rubiojr/fingertips/pkg/log"
	"github.com/rubiojr/fingertips/pkg/realtime"
	"github.com/rubiojr/fingertips/pkg/storage"
)

type Server struct {
	catalog atomic.Pointer[catalog.Catalog]
	runner  *Runner
	hub     *realtime.Hub
	history *storage.History
}

// NewServer creates the API server. hub and history may be nil.
func NewServer(cat *catalog.Catalog, runner *Runner, hub *realtime.Hub, history *storage.History) *Server {
	s := &Server{
		runner:  runner,
		hub:     hub,
		history: history,
	}
	s.SetCatalog(cat)
	return s
}

// SetCatalog swaps the catalog served by the API. A batch already running
// keeps the catalog it started with.
func (s *Server) SetCatalog(c *catalog.Catalog) {
	if c == nil {
		c = catalog.New(nil, nil)
	}
	s.catalog.Store(c)
}

// Catalog returns the catalog currently served.
func (s *Server) Catalog() *catalog.Catalog {
	return s.catalog.Load()
}

// RegisterRoutes mounts the API endpoints on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/health", s.HandleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/area-types", s.HandleListAreaTypes)
		r.Get("/area-types/{id}/indicators", s.HandleListIndicators)
		r.Post("/downloads", s.HandleStartDownload)
		r.Get("/downloads", s.HandleHistory)
		r.Get("/downloads/current", s.HandleCurrentDownload)
		r.Get("/events", s.HandleEvents)
	})
}

// Router returns a chi router with the API routes and the standard
// middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(CorsMiddleware)
	s.RegisterRoutes(r)
	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.ForService("api").Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
