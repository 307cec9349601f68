// Package web exposes the ingestion pipeline over HTTP: clients upload a
// batch of media files, the server runs the pipeline in the background and
// streams job progress over a websocket.
package web

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"mediasync/internal/pipeline"
)

// Runner is the pipeline surface the server drives.
type Runner interface {
	Run(ctx context.Context, batchDir string, hooks pipeline.Hooks) error
}

type Server struct {
	ctx    context.Context
	jobMgr *JobManager
	pipe   Runner
	logger *zap.Logger
}

func NewServer(ctx context.Context, jobMgr *JobManager, pipe Runner, log *zap.Logger) *Server {
	return &Server{
		ctx:    ctx,
		jobMgr: jobMgr,
		pipe:   pipe,
		logger: log,
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/", http.FileServer(http.Dir("web/static")))

	// API endpoints
	mux.HandleFunc("/api/ingest", s.handleIngest)
	mux.HandleFunc("/api/jobs", s.handleListJobs)
	mux.HandleFunc("/api/jobs/", s.handleJobAction)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return s.loggingMiddleware(mux)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}
