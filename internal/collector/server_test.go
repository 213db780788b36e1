package collector

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	collectortracev1 "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonv1 "go.opentelemetry.io/proto/otlp/common/v1"
	resourcev1 "go.opentelemetry.io/proto/otlp/resource/v1"
	tracev1 "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/protobuf/proto"

	"tracecheck/internal/trace"
)

// exportRequest builds a request with one SERVER span per trace byte
func exportRequest(traceBytes ...byte) *collectortracev1.ExportTraceServiceRequest {
	var spans []*tracev1.Span
	for i, b := range traceBytes {
		tid := bytes.Repeat([]byte{b}, 16)
		sid := bytes.Repeat([]byte{byte(i + 1)}, 8)
		spans = append(spans, &tracev1.Span{
			TraceId: tid,
			SpanId:  sid,
			Kind:    tracev1.Span_SPAN_KIND_SERVER,
			Name:    "GET /app/greeting",
		})
	}
	return &collectortracev1.ExportTraceServiceRequest{
		ResourceSpans: []*tracev1.ResourceSpans{{
			Resource: &resourcev1.Resource{Attributes: []*commonv1.KeyValue{{
				Key:   "service.name",
				Value: &commonv1.AnyValue{Value: &commonv1.AnyValue_StringValue{StringValue: "smoke-test"}},
			}}},
			ScopeSpans: []*tracev1.ScopeSpans{{Spans: spans}},
		}},
	}
}

func marshal(t *testing.T, req *collectortracev1.ExportTraceServiceRequest) []byte {
	t.Helper()
	data, err := proto.Marshal(req)
	require.NoError(t, err)
	return data
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *Store, *httptest.Server) {
	t.Helper()
	store := NewStore()
	srv := NewServer("127.0.0.1:0", store, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, store, ts
}

func post(t *testing.T, url, contentType string, body []byte, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_Export(t *testing.T) {
	_, store, ts := newTestServer(t)

	resp := post(t, ts.URL+"/v1/traces", "application/x-protobuf", marshal(t, exportRequest(1, 1, 2)), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-protobuf", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out collectortracev1.ExportTraceServiceResponse
	require.NoError(t, proto.Unmarshal(body, &out))

	assert.Equal(t, 3, store.Len())
	assert.Equal(t, 2, store.TraceCount())
	for _, s := range store.Spans() {
		assert.True(t, s.Resource.Matches("service.name", trace.StringValue("smoke-test")))
	}
}

func TestServer_ExportGzip(t *testing.T) {
	_, store, ts := newTestServer(t)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(marshal(t, exportRequest(1)))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	resp := post(t, ts.URL+"/v1/traces", "application/x-protobuf", buf.Bytes(), map[string]string{"Content-Encoding": "gzip"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, store.Len())
}

func TestServer_ExportRejects(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		encoding    string
		body        []byte
		want        int
	}{
		{"get", http.MethodGet, "application/x-protobuf", "", nil, http.StatusMethodNotAllowed},
		{"json body", http.MethodPost, "application/json", "", []byte(`{}`), http.StatusUnsupportedMediaType},
		{"no content type", http.MethodPost, "", "", nil, http.StatusUnsupportedMediaType},
		{"garbage protobuf", http.MethodPost, "application/x-protobuf", "", []byte{0xff, 0xff, 0xff}, http.StatusBadRequest},
		{"bad gzip", http.MethodPost, "application/x-protobuf", "gzip", []byte("not gzip"), http.StatusBadRequest},
		{"unknown encoding", http.MethodPost, "application/x-protobuf", "br", []byte{}, http.StatusBadRequest},
		{"too large", http.MethodPost, "application/x-protobuf", "", bytes.Repeat([]byte{0}, 2048), http.StatusRequestEntityTooLarge},
	}

	_, store, ts := newTestServer(t, WithMaxBodyBytes(1024))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+"/v1/traces", bytes.NewReader(tt.body))
			require.NoError(t, err)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if tt.encoding != "" {
				req.Header.Set("Content-Encoding", tt.encoding)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
	assert.Zero(t, store.Len())
}

func TestServer_GzipBombRejected(t *testing.T) {
	_, store, ts := newTestServer(t, WithMaxBodyBytes(1024))

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(bytes.Repeat([]byte{0}, 64*1024))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.Less(t, buf.Len(), 1024)

	resp := post(t, ts.URL+"/v1/traces", "application/x-protobuf", buf.Bytes(), map[string]string{"Content-Encoding": "gzip"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Zero(t, store.Len())
}

func TestServer_QueryAndClear(t *testing.T) {
	_, store, ts := newTestServer(t)
	store.Add(trace.FromExportRequest(exportRequest(1, 2)))

	resp, err := http.Get(ts.URL + "/get-traces")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	in, err := trace.Inspect(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 2, in.CountTraces())
	assert.Equal(t, 2, in.CountSpansByKind(trace.KindServer))

	resp = post(t, ts.URL+"/clear", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, store.Len())

	resp, err = http.Get(ts.URL + "/clear")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_EmptyQuery(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/get-traces")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))
}

func TestServer_HealthAndMetrics(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	post(t, ts.URL+"/v1/traces", "application/x-protobuf", marshal(t, exportRequest(1, 2)), nil)
	post(t, ts.URL+"/v1/traces", "application/json", []byte(`{}`), nil)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()

	metrics := string(body)
	assert.Contains(t, metrics, `tracecheck_collector_export_requests_total{outcome="accepted",transport="http"} 1`)
	assert.Contains(t, metrics, `tracecheck_collector_export_requests_total{outcome="rejected",transport="http"} 1`)
	assert.Contains(t, metrics, `tracecheck_collector_spans_received_total{transport="http"} 2`)
	assert.Contains(t, metrics, `tracecheck_collector_spans_stored 2`)
}

func TestServer_StartStop(t *testing.T) {
	store := NewStore()
	srv := NewServer("127.0.0.1:0", store)

	require.NoError(t, srv.Start())
	addr := srv.Addr()
	assert.False(t, strings.HasSuffix(addr, ":0"), "Addr reports the bound port")

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	_, err = http.Get("http://" + addr + "/health")
	assert.Error(t, err)
}

func TestServer_StartBindError(t *testing.T) {
	first := NewServer("127.0.0.1:0", NewStore())
	require.NoError(t, first.Start())
	defer first.Stop(context.Background())

	second := NewServer(first.Addr(), NewStore())
	assert.Error(t, second.Start())
}
