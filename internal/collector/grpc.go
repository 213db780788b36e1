package collector

import (
	"context"
	"errors"
	"net"

	"go.uber.org/zap"
	collectortracev1 "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/grpc"

	"tracecheck/internal/trace"
)

// GRPCServer receives OTLP/gRPC exports into a Store
type GRPCServer struct {
	collectortracev1.UnimplementedTraceServiceServer

	store  *Store
	opts   options
	server *grpc.Server
}

// NewGRPCServer creates an OTLP/gRPC trace receiver
func NewGRPCServer(store *Store, opts ...Option) *GRPCServer {
	g := &GRPCServer{
		store: store,
		opts:  buildOptions(store, opts),
	}
	g.server = grpc.NewServer(grpc.MaxRecvMsgSize(int(g.opts.maxBodyBytes)))
	collectortracev1.RegisterTraceServiceServer(g.server, g)
	return g
}

// Export implements the OTLP TraceService
func (g *GRPCServer) Export(ctx context.Context, req *collectortracev1.ExportTraceServiceRequest) (*collectortracev1.ExportTraceServiceResponse, error) {
	spans := trace.FromExportRequest(req)
	g.store.Add(spans)
	g.opts.metrics.RecordExport(TransportGRPC, OutcomeAccepted, len(spans))
	g.opts.logger.Debug("received export request",
		zap.String("transport", TransportGRPC),
		zap.Int("spans", len(spans)))
	return &collectortracev1.ExportTraceServiceResponse{}, nil
}

// Start serves on lis in a background goroutine
func (g *GRPCServer) Start(lis net.Listener) {
	go func() {
		if err := g.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			g.opts.logger.Error("collector grpc server failed", zap.Error(err))
		}
	}()
}

// Stop waits for in-flight exports and stops the server
func (g *GRPCServer) Stop() {
	g.server.GracefulStop()
}
