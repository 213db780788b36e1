package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tracecheck/internal/collector"
)

func newCollectorCmd(a *app) *cobra.Command {
	var httpAddr, grpcAddr string

	cmd := &cobra.Command{
		Use:   "collector",
		Short: "Run the in-memory OTLP collector until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Collector
			if cmd.Flags().Changed("http-addr") {
				cfg.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("grpc-addr") {
				cfg.GRPCAddr = grpcAddr
			}
			log := a.logger.Named("collector")

			store := collector.NewStore()
			metrics := collector.NewMetrics(store)
			opts := []collector.Option{
				collector.WithLogger(log),
				collector.WithMetrics(metrics),
				collector.WithMaxBodyBytes(cfg.MaxBodyBytes),
			}

			httpSrv := collector.NewServer(cfg.HTTPAddr, store, opts...)
			if err := httpSrv.Start(); err != nil {
				return err
			}

			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				_ = httpSrv.Stop(context.Background())
				return fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
			}
			grpcSrv := collector.NewGRPCServer(store, opts...)
			grpcSrv.Start(lis)

			log.Info("collector started",
				zap.String("http", httpSrv.Addr()),
				zap.String("grpc", lis.Addr().String()))
			fmt.Fprintf(cmd.OutOrStdout(), "collector listening: http=%s grpc=%s\n", httpSrv.Addr(), lis.Addr())

			<-cmd.Context().Done()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			grpcSrv.Stop()
			if err := httpSrv.Stop(ctx); err != nil {
				return fmt.Errorf("stop collector: %w", err)
			}
			log.Info("collector stopped", zap.Int("spans", store.Len()))
			return nil
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":4318", "OTLP/HTTP and query API listen address")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", ":4317", "OTLP/gRPC listen address")
	return cmd
}
