package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tracecheck/internal/report"
	"tracecheck/internal/trace"
	"tracecheck/internal/verify"
	"tracecheck/internal/waiter"
)

func newVerifyCmd(a *app) *cobra.Command {
	var (
		file     string
		traces   int
		snapshot string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Wait for traces and evaluate an expectation file against them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := verify.Load(file)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("traces") {
				exp.Traces = traces
			}

			src := a.source()
			var spans []trace.RawSpan
			switch {
			case snapshot != "":
				spans, err = a.loadSnapshot(snapshot)
			case exp.Traces > 0:
				spans, err = a.newWaiter(src).WaitForTraces(cmd.Context(), exp.Traces)
				var timeoutErr *waiter.WaitTimeoutError
				if errors.As(err, &timeoutErr) {
					// Checks still run so the report shows every failing count
					a.logger.Warn(err.Error())
					spans, err = timeoutErr.Batch, nil
				}
			default:
				spans, err = src.FetchSpans(cmd.Context())
			}
			if err != nil {
				return err
			}

			in := trace.NewInspector(spans)
			if err := verify.Evaluate(in, exp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d expectations met, %s\n", len(exp.Checks), report.Summary(in))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Expectation file (YAML)")
	cmd.Flags().IntVarP(&traces, "traces", "n", 0, "Override the number of traces to wait for")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "Evaluate a saved snapshot instead of the collector")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
