// Package server exposes graph directories over HTTP
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"git.canoozie.net/riddling/graphdir/pkg/common"
	"git.canoozie.net/riddling/graphdir/pkg/directory"
	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// SequenceHeader carries the sequence number of the last committed batch
const SequenceHeader = "X-Graph-Sequence"

// Graphs is the set of graph operations the server exposes
type Graphs interface {
	Execute(ctx context.Context, id, command string) (*directory.Outcome, error)
	Clear(ctx context.Context, id string) error
	Drop(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}

// Options configures the HTTP surface
type Options struct {
	CORSOrigins  []string
	MaxBodyBytes int64
	MetricsPath  string // Empty disables /metrics
}

// CommandRequest is the body of a command request
type CommandRequest struct {
	Command string `json:"command" validate:"required"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// GraphServer serves GraphLang batches against named graphs
type GraphServer struct {
	graphs Graphs
	logger *zap.Logger
	opts   Options
}

// NewGraphServer creates a server for graphs
func NewGraphServer(graphs Graphs, logger *zap.Logger, opts Options) *GraphServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	return &GraphServer{
		graphs: graphs,
		logger: logger,
		opts:   opts,
	}
}

// Handler builds the router with all middleware and routes
func (s *GraphServer) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(RequestLogger(s.logger))

	if len(s.opts.CORSOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", SequenceHeader},
			MaxAge:         300,
		}))
	}

	router.Get("/health", s.health)
	if s.opts.MetricsPath != "" {
		router.Handle(s.opts.MetricsPath, promhttp.Handler())
	}

	router.Route("/directory", func(r chi.Router) {
		r.Get("/", s.listGraphs)
		r.Post("/command", s.executeCommand)
		r.Post("/{graphID}/command", s.executeCommand)
		r.Delete("/{graphID}/clear", s.clearGraph)
		r.Delete("/{graphID}", s.dropGraph)
	})

	return router
}

func (s *GraphServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// executeCommand runs the batch in the request body against the graph named
// in the path, or the default graph
func (s *GraphServer) executeCommand(w http.ResponseWriter, r *http.Request) {
	id := graphID(r)

	var req CommandRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	outcome, err := s.graphs.Execute(r.Context(), id, req.Command)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set(SequenceHeader, common.FormatUint64(outcome.Seq))
	writeJSON(w, http.StatusOK, outcome)
}

func (s *GraphServer) clearGraph(w http.ResponseWriter, r *http.Request) {
	if err := s.graphs.Clear(r.Context(), graphID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *GraphServer) dropGraph(w http.ResponseWriter, r *http.Request) {
	if err := s.graphs.Drop(r.Context(), graphID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *GraphServer) listGraphs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.graphs.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"graphs": ids})
}

func graphID(r *http.Request) string {
	if id := chi.URLParam(r, "graphID"); id != "" {
		return id
	}
	return common.DefaultGraphID
}

// decode reads a size limited JSON body into v and validates it
func (s *GraphServer) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return model.Errorf(model.StatusBadRequest, "request body exceeds %d bytes", tooLarge.Limit)
		}
		if errors.Is(err, io.EOF) {
			return model.Errorf(model.StatusBadRequest, "request body is empty")
		}
		return model.Errorf(model.StatusBadRequest, "invalid request body: %v", err)
	}
	return model.Validate(v)
}

// writeError maps err onto an HTTP status. Messages of internal failures are
// logged, not returned.
func (s *GraphServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := model.StatusOf(err)
	code := status.HTTPStatus()
	message := err.Error()

	var modelErr *model.Error
	switch {
	case errors.Is(err, directory.ErrClosed):
		code = http.StatusServiceUnavailable
		message = "service is shutting down"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
		message = "request canceled"
	case status == model.StatusInternalServerError:
		message = "internal server error"
		if errors.As(err, &modelErr) {
			message = modelErr.Message
		}
	case errors.As(err, &modelErr):
		message = modelErr.Message
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("requestID", chimiddleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}

	writeJSON(w, code, ErrorResponse{Status: status.String(), Error: message})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// RequestLogger logs one line per request
func RequestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			if strings.HasPrefix(r.URL.Path, "/health") {
				return
			}
			logger.Info("HTTP Request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", chimiddleware.GetReqID(r.Context())),
				zap.String("remoteAddr", r.RemoteAddr),
			)
		})
	}
}
