package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/journal"
)

var journalOpts struct {
	typ, vehicle, state string
	since               time.Duration
	limit               int
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query recorded transitions, requests and runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, err := journal.Open(cfg.Journal)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		q := journal.Query{
			Type:      journal.RecordType(journalOpts.typ),
			VehicleID: journalOpts.vehicle,
			State:     journalOpts.state,
			Limit:     journalOpts.limit,
		}
		if journalOpts.since > 0 {
			q.Start = time.Now().Add(-journalOpts.since)
		}
		recs, err := st.Query(context.Background(), q)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tTYPE\tVEHICLE\tDETAIL")
		for _, r := range recs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Timestamp.Format(time.RFC3339), r.Type, r.VehicleID, detail(r))
		}
		return tw.Flush()
	},
}

func detail(r journal.Record) string {
	switch r.Type {
	case journal.TypeTransition:
		return fmt.Sprintf("#%d %s -> %s (%s by %s)", r.Seq, r.From, r.To, r.Cause, r.Requester)
	case journal.TypeRequest:
		if r.Granted {
			return fmt.Sprintf("%s granted to %s after %.0fms", r.Cause, r.Requester, r.WaitMS)
		}
		return fmt.Sprintf("%s by %s failed: %s", r.Cause, r.Requester, r.Error)
	case journal.TypeRun:
		return fmt.Sprintf("run %s %s forced=%v", r.RunID, r.Phase, r.Forced)
	}
	return ""
}

func init() {
	f := journalCmd.Flags()
	f.StringVar(&journalOpts.typ, "type", "", "transition, request or run")
	f.StringVar(&journalOpts.vehicle, "vehicle", "", "vehicle id")
	f.StringVar(&journalOpts.state, "state", "", "state entered by transitions")
	f.DurationVar(&journalOpts.since, "since", 0, "only records newer than this")
	f.IntVar(&journalOpts.limit, "limit", 50, "most recent records to show")
	rootCmd.AddCommand(journalCmd)
}
