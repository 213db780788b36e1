package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tracecheck/internal/artifact"
	"tracecheck/internal/report"
	"tracecheck/internal/trace"
)

func newSnapshotsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots [name]",
		Short: "List saved span batches, or render one by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := artifact.NewStore()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				spans, err := store.Load(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.Render(trace.NewInspector(spans)))
				return nil
			}
			names, err := store.List()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	return cmd
}

func (a *app) saveSnapshot(cmd *cobra.Command, name string, spans []trace.RawSpan) error {
	store, err := artifact.NewStore()
	if err != nil {
		return err
	}
	path, err := store.Save(name, spans)
	if err != nil {
		return err
	}
	a.logger.Info("snapshot saved", zap.String("path", path), zap.Int("spans", len(spans)))
	fmt.Fprintf(cmd.ErrOrStderr(), "snapshot saved: %s\n", path)
	return nil
}

func (a *app) loadSnapshot(name string) ([]trace.RawSpan, error) {
	store, err := artifact.NewStore()
	if err != nil {
		return nil, err
	}
	return store.Load(name)
}
