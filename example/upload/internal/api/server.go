package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"

	"github.com/kroma-labs/formwire-go/example/upload/internal/config"
	"github.com/kroma-labs/formwire-go/telemetry"
)

// Server is a mock form-accepting API. It assigns a request id to every
// response so the client-side sampler has something to collect.
type Server struct {
	httpServer *http.Server
	nextID     atomic.Int64
}

// New creates the mock API server
func New() *Server {
	s := &Server{}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/charges", s.handleCharges)
	mux.HandleFunc("/v1/files", s.handleFiles)

	s.httpServer = &http.Server{
		Addr:    config.APIAddr,
		Handler: mux,
	}
	return s
}

// Start runs the server until Shutdown is called
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// assignRequestID stamps a fresh request id onto the response.
func (s *Server) assignRequestID(w http.ResponseWriter) string {
	id := fmt.Sprintf("req_%d", s.nextID.Add(1))
	w.Header().Set(config.RequestIDHeader, id)
	return id
}

func (s *Server) handleCharges(w http.ResponseWriter, r *http.Request) {
	id := s.assignRequestID(w)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form body", http.StatusBadRequest)
		return
	}

	if sample := r.Header.Get(telemetry.HeaderName); sample != "" {
		log.Printf("[api] %s received client telemetry: %s", id, sample)
	}
	log.Printf("[api] %s charge accepted: %d fields, content type %q",
		id, len(r.PostForm), r.Header.Get("Content-Type"))

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"id":%q,"status":"succeeded"}`, id)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	id := s.assignRequestID(w)

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		http.Error(w, "bad multipart body", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	for field, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			log.Printf("[api] %s file accepted: field %q, name %q, %d bytes",
				id, field, fh.Filename, fh.Size)
		}
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"id":%q,"status":"uploaded"}`, id)
}
