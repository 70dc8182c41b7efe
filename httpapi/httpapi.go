// Package httpapi exposes a treescope session over a debug HTTP surface.
// Commands POST to /commands/{name} with the same JSON payloads as the MCP
// tools; the latest capture is readable at /tree.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/treescope/rendertree"
)

// Server serves the debug HTTP surface for one session.
type Server struct {
	session *rendertree.Session
	logger  *slog.Logger
	srv     *http.Server
}

// New creates a Server bound to addr.
func New(addr string, session *rendertree.Session, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{session: session, logger: logger}
	s.srv = &http.Server{Addr: addr, Handler: s.Handler()}
	return s
}

// Handler builds the route tree. Exposed for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/tree", s.handleTree)
	r.Get("/commands", s.handleCommandList)
	r.Post("/commands/{name}", s.handleCommand)
	return r
}

// Start serves until Shutdown. Blocks.
func (s *Server) Start() error {
	s.logger.Info("httpapi: listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTree returns the most recent capture, building one first if none
// exists yet.
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	tree := s.session.Tree()
	if tree == nil {
		var err error
		tree, err = s.session.Rebuild(r.Context())
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) handleCommandList(w http.ResponseWriter, _ *http.Request) {
	var names []string
	for name := range s.session.Commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string]any{"commands": names})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	out, err := s.session.Handle(r.Context(), name, payload)
	if err != nil {
		s.logger.Warn("httpapi: command failed", "command", name, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
