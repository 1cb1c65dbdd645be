package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcoioli/proyecto-programacion3-grupo12/app"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/simulation"
)

var simulateOpts struct {
	clients  int
	requests int
	maxTime  time.Duration
	scenario string
	jsonOut  bool
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one simulation and print its report",
	Long: `Starts the client and maintenance workers against a fresh ambulance,
waits until every client has issued its requests (or --max-time elapses, or
the process is interrupted), then stops the run and prints the report.`,
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.IntVar(&simulateOpts.clients, "clients", 0, "number of clients (default from config or associates)")
	f.IntVar(&simulateOpts.requests, "requests", 0, "requests per client (default from config)")
	f.DurationVar(&simulateOpts.maxTime, "max-time", 5*time.Minute, "stop the run after this long")
	f.StringVar(&simulateOpts.scenario, "scenario", "", "YAML scenario file")
	f.BoolVar(&simulateOpts.jsonOut, "json", false, "print the report as JSON")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	var ids []string
	requests := simulateOpts.requests
	if simulateOpts.scenario != "" {
		sc, err := simulation.LoadScenario(simulateOpts.scenario)
		if err != nil {
			return err
		}
		cfg.Simulation = sc.Simulation
		ids = sc.Clients
		if requests == 0 {
			requests = sc.RequestsPerClient
		}
	}
	cfg.API.Listen = "-"

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if len(ids) == 0 {
		n := simulateOpts.clients
		if n == 0 && svc.Associates.Len() == 0 {
			n = cfg.Simulation.Clients
		}
		ids = svc.ClientIDs(n)
	}
	if requests == 0 {
		requests = cfg.Simulation.RequestsPerClient
	}

	obsCtx, cancelObs := context.WithCancel(context.Background())
	observed := svc.Observe(obsCtx)
	defer func() {
		cancelObs()
		<-observed
	}()

	if err := svc.Orchestrator.StartWith(ids, requests); err != nil {
		return err
	}
	select {
	case <-svc.Orchestrator.ClientsDone():
	case <-time.After(simulateOpts.maxTime):
		fmt.Fprintln(cmd.ErrOrStderr(), "max time reached, stopping")
	case <-ctx.Done():
		fmt.Fprintln(cmd.ErrOrStderr(), "interrupted, stopping")
	}
	rep, stopErr := svc.Orchestrator.Stop()
	if simulateOpts.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else if err := printReport(cmd.OutOrStdout(), rep); err != nil {
		return err
	}
	return stopErr
}

func printReport(w io.Writer, rep simulation.StopReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", rep.RunID)
	fmt.Fprintf(tw, "clean\t%v\n", rep.Clean)
	fmt.Fprintf(tw, "forced\t%v\n", rep.Forced)
	fmt.Fprintf(tw, "shutdown\t%s\n", rep.Duration.Round(time.Millisecond))
	fmt.Fprintf(tw, "requests\t%d\n", rep.Requests)
	fmt.Fprintf(tw, "client requests\t%d\n", rep.ClientRequests)
	fmt.Fprintf(tw, "maintenance visits\t%d\n", rep.MaintenanceVisits)
	fmt.Fprintf(tw, "cancelled\t%d\n", rep.Cancelled)
	kinds := make([]string, 0, len(rep.ByKind))
	counts := make(map[string]int, len(rep.ByKind))
	for k, n := range rep.ByKind {
		kinds = append(kinds, k.String())
		counts[k.String()] = n
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(tw, "  %s\t%d\n", k, counts[k])
	}
	fmt.Fprintf(tw, "wait mean\t%s\n", rep.Wait.Mean.Round(time.Millisecond))
	fmt.Fprintf(tw, "wait p95\t%s\n", rep.Wait.P95.Round(time.Millisecond))
	fmt.Fprintf(tw, "wait max\t%s\n", rep.Wait.Max.Round(time.Millisecond))
	return tw.Flush()
}
