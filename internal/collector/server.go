package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"sync"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	collectortracev1 "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/protobuf/proto"

	"tracecheck/internal/trace"
)

const protobufContentType = "application/x-protobuf"

var errBodyTooLarge = errors.New("request body too large")

// Server receives OTLP/HTTP exports and serves the query API
type Server struct {
	store *Store
	opts  options

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewServer creates a collector HTTP server listening on addr once started
func NewServer(addr string, store *Store, opts ...Option) *Server {
	s := &Server{
		store: store,
		opts:  buildOptions(store, opts),
	}
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	return s
}

// Handler returns the routes of the collector
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/traces", s.handleExport)
	mux.HandleFunc("/get-traces", s.handleGetTraces)
	mux.HandleFunc("/clear", s.handleClear)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.opts.metrics.Handler())
	return mux
}

// Metrics returns the metrics the server records into
func (s *Server) Metrics() *Metrics {
	return s.opts.metrics
}

// Start binds the listen address and serves in a background goroutine.
// Bind errors are returned; serve errors are logged.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}
	s.mu.Lock()
	s.listener = lis
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.opts.logger.Error("collector http server failed", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr returns the bound address, or the configured one before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// handleExport handles POST /v1/traces
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != protobufContentType {
		s.reject(w, http.StatusUnsupportedMediaType, fmt.Sprintf("unsupported content type %q", r.Header.Get("Content-Type")))
		return
	}

	body, err := s.readBody(w, r)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			s.reject(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		s.reject(w, http.StatusBadRequest, err.Error())
		return
	}

	var req collectortracev1.ExportTraceServiceRequest
	if err := proto.Unmarshal(body, &req); err != nil {
		s.reject(w, http.StatusBadRequest, fmt.Sprintf("decode export request: %v", err))
		return
	}

	spans := trace.FromExportRequest(&req)
	s.store.Add(spans)
	s.opts.metrics.RecordExport(TransportHTTP, OutcomeAccepted, len(spans))
	s.opts.logger.Debug("received export request",
		zap.String("transport", TransportHTTP),
		zap.Int("spans", len(spans)))

	resp, err := proto.Marshal(&collectortracev1.ExportTraceServiceResponse{})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", protobufContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(resp)
}

// readBody reads the request body, inflating gzip content. Both the wire
// size and the inflated size are bounded by the configured limit.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := s.opts.maxBodyBytes
	var body io.Reader = http.MaxBytesReader(w, r.Body, limit)

	switch r.Header.Get("Content-Encoding") {
	case "", "identity":
	case "gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, bodyError(err)
		}
		defer zr.Close()
		body = zr
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", r.Header.Get("Content-Encoding"))
	}

	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, bodyError(err)
	}
	if n > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, limit)
	}
	return buf.Bytes(), nil
}

func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, maxErr.Limit)
	}
	return fmt.Errorf("read body: %w", err)
}

func (s *Server) reject(w http.ResponseWriter, code int, msg string) {
	s.opts.metrics.RecordExport(TransportHTTP, OutcomeRejected, 0)
	s.opts.logger.Debug("rejected export request", zap.Int("status", code), zap.String("reason", msg))
	http.Error(w, msg, code)
}

// handleGetTraces handles GET /get-traces
func (s *Server) handleGetTraces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := trace.EncodeSpans(s.store.Spans())
	if err != nil {
		s.opts.logger.Error("encode spans", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleClear handles POST /clear
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.store.Reset()
	s.opts.logger.Debug("cleared collector")
	w.WriteHeader(http.StatusOK)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, "ok")
}
