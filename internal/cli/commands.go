package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/zoobzio/chrometrace"
	"github.com/zoobzio/chrometrace/otelexport"
	"github.com/zoobzio/chrometrace/query"
)

func newSummaryCommand(_ *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "summary FILE",
		Short: "Print event, process, thread and span counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := query.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "events:    %d\n", events.Len())
			fmt.Fprintf(out, "processes: %v\n", events.ProcessIDs())
			fmt.Fprintf(out, "threads:   %v\n", events.ThreadIDs())

			counts := events.SpanCounts()
			names := make([]string, 0, len(counts))
			for name := range counts {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "  %-40s %d\n", name, counts[name])
			}
			return nil
		},
	}
}

// eventFilterFlags selects a subset of events.
func eventFilterFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("filters", pflag.ContinueOnError)
	fs.Int("pid", 0, "Only events from this process id")
	fs.Int64("tid", 0, "Only events from this thread id")
	fs.String("phase", "", "Only events with this phase (B, E, M)")
	fs.String("name", "", "Only events with this name")
	return fs
}

func newEventsCommand(vp *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events FILE",
		Short: "Print matching events as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := query.Load(args[0])
			if err != nil {
				return err
			}
			events = applyFilters(vp, events)
			logrus.WithField("matched", events.Len()).Debug("filtered events")

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, ev := range events.All() {
				if err := enc.Encode(ev); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().AddFlagSet(eventFilterFlags())
	return cmd
}

func applyFilters(vp *viper.Viper, events *query.Events) *query.Events {
	if pid := vp.GetInt("pid"); pid != 0 {
		events = events.OnProcess(pid)
	}
	if tid := vp.GetInt64("tid"); tid != 0 {
		events = events.OnThread(tid)
	}
	if phase := vp.GetString("phase"); phase != "" {
		events = events.ByPhase(chrometrace.Phase(phase))
	}
	if name := vp.GetString("name"); name != "" {
		events = events.ByName(name)
	}
	return events
}

func newRepairCommand(vp *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair FILE",
		Short: "Close a trace file whose owner never wrote the footer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			repaired := query.Repair(data)
			if _, err := query.Parse(repaired); err != nil {
				return err
			}
			if !vp.GetBool("in-place") {
				_, err := cmd.OutOrStdout().Write(repaired)
				return err
			}
			if query.Complete(data) {
				logrus.WithField("file", args[0]).Info("trace already complete")
				return nil
			}
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], repaired, info.Mode().Perm()); err != nil {
				return err
			}
			logrus.WithField("file", args[0]).Info("trace repaired")
			return nil
		},
	}
	cmd.Flags().Bool("in-place", false, "Rewrite FILE instead of printing the result")
	return cmd
}

func newExportCommand(vp *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-otel FILE",
		Short: "Print spans as OpenTelemetry spans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := query.Load(args[0])
			if err != nil {
				return err
			}
			events = applyFilters(vp, events)

			tp, err := otelexport.NewStdoutProvider(cmd.OutOrStdout(), vp.GetBool("pretty"))
			if err != nil {
				return err
			}
			ctx := context.Background()
			n, err := otelexport.Export(ctx, events.Spans(), tp)
			if shutdownErr := tp.Shutdown(ctx); err == nil {
				err = shutdownErr
			}
			if err != nil {
				return err
			}
			logrus.WithField("spans", n).Debug("exported spans")
			return nil
		},
	}
	cmd.Flags().AddFlagSet(eventFilterFlags())
	cmd.Flags().Bool("pretty", true, "Pretty print exported spans")
	return cmd
}
