package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tracecheck/internal/emit"
)

func newEmitCmd(a *app) *cobra.Command {
	var (
		count     int
		exception string
		service   string
	)

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Send demo traces to the collector over OTLP/HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive, got %d", count)
			}
			e, err := emit.New(cmd.Context(), a.cfg.Wait.CollectorEndpoint, emit.WithServiceName(service))
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := e.Shutdown(ctx); err != nil {
					a.logger.Warn("emitter shutdown", zap.Error(err))
				}
			}()

			sc := emit.DemoScenario()
			sc.Exception = exception
			for range count {
				id, err := e.EmitScenario(cmd.Context(), sc)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 1, "Number of traces to send")
	cmd.Flags().StringVar(&exception, "exception", "", "Record an exception with this message on each root span")
	cmd.Flags().StringVar(&service, "service", emit.DefaultServiceName, "service.name of the emitted spans")
	return cmd
}
