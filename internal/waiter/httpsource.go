package waiter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"tracecheck/internal/trace"
)

const defaultRequestTimeout = 10 * time.Second

// StatusError is returned when the collector answers with a non-2xx status
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, strings.TrimSpace(e.Body))
}

// HTTPSourceOption configures an HTTPSource
type HTTPSourceOption func(*HTTPSource)

// WithHTTPClient sends requests through c instead of a default client
func WithHTTPClient(c *http.Client) HTTPSourceOption {
	return func(s *HTTPSource) {
		s.client = resty.NewWithClient(c)
	}
}

// WithRequestTimeout bounds each individual request
func WithRequestTimeout(d time.Duration) HTTPSourceOption {
	return func(s *HTTPSource) { s.requestTimeout = d }
}

// HTTPSource reads spans from the collector query API
type HTTPSource struct {
	endpoint       string
	client         *resty.Client
	requestTimeout time.Duration
}

// NewHTTPSource creates a Source for the collector at endpoint, e.g.
// "http://localhost:4318".
func NewHTTPSource(endpoint string, opts ...HTTPSourceOption) *HTTPSource {
	s := &HTTPSource{
		endpoint:       strings.TrimRight(endpoint, "/"),
		client:         resty.New(),
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.client.
		SetBaseURL(s.endpoint).
		SetTimeout(s.requestTimeout).
		SetHeader("User-Agent", "tracecheck")
	return s
}

// Endpoint returns the collector base URL
func (s *HTTPSource) Endpoint() string {
	return s.endpoint
}

// FetchSpans returns every span the collector currently holds
func (s *HTTPSource) FetchSpans(ctx context.Context) ([]trace.RawSpan, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get("/get-traces")
	if err != nil {
		return nil, fmt.Errorf("fetch spans from %s: %w", s.endpoint, err)
	}
	if !resp.IsSuccess() {
		return nil, statusError(resp)
	}
	spans, err := trace.DecodeSpans(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("fetch spans from %s: %w", s.endpoint, err)
	}
	return spans, nil
}

// Clear empties the collector. The waiter itself never calls it.
func (s *HTTPSource) Clear(ctx context.Context) error {
	resp, err := s.client.R().
		SetContext(ctx).
		Post("/clear")
	if err != nil {
		return fmt.Errorf("clear collector at %s: %w", s.endpoint, err)
	}
	if !resp.IsSuccess() {
		return statusError(resp)
	}
	return nil
}

func statusError(resp *resty.Response) *StatusError {
	return &StatusError{
		Method:     resp.Request.Method,
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode(),
		Body:       resp.String(),
	}
}
