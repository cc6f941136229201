package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/menta2k/snapcrop/pkg/history"
)

// Server exposes projection and the capture history over HTTP
type Server struct {
	history *history.Store
	logger  *slog.Logger
}

// NewServer creates a server. store may be nil, which disables the
// history routes.
func NewServer(store *history.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{history: store, logger: logger}
}

// NewRouter builds the route table
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods(http.MethodGet)
	r.HandleFunc("/geometry", s.GeometryHandler).Methods(http.MethodPost)
	r.HandleFunc("/project", s.ProjectHandler).Methods(http.MethodPost)
	r.HandleFunc("/history", s.ListHistoryHandler).Methods(http.MethodGet)
	r.HandleFunc("/history", s.ClearHistoryHandler).Methods(http.MethodDelete)
	r.HandleFunc("/history/{id}", s.GetHistoryHandler).Methods(http.MethodGet)
	r.Use(s.logRequests)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
