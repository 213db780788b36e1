package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tracecheck/internal/report"
	"tracecheck/internal/trace"
	"tracecheck/internal/waiter"
)

func newWaitCmd(a *app) *cobra.Command {
	var (
		traces int
		save   string
	)

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until the collector holds the expected number of traces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spans, err := a.newWaiter(a.source()).WaitForTraces(cmd.Context(), traces)
			var timeoutErr *waiter.WaitTimeoutError
			switch {
			case errors.As(err, &timeoutErr):
				spans = timeoutErr.Batch
			case err != nil:
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Render(trace.NewInspector(spans)))
			if save != "" {
				if serr := a.saveSnapshot(cmd, save, spans); serr != nil {
					return serr
				}
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&traces, "traces", "n", 1, "Number of distinct traces to wait for")
	cmd.Flags().StringVar(&save, "save", "", "Save the collected batch as a named snapshot")
	return cmd
}
