package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kilianp07/emsdispatch/app"
	"github.com/kilianp07/emsdispatch/config"
)

var (
	simCount   int
	simTimeout time.Duration
	simSeed    int64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run an in-process fleet against generated incidents and print statistics",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().IntVarP(&simCount, "count", "n", 10, "number of incidents to generate")
	simulateCmd.Flags().DurationVar(&simTimeout, "timeout", 5*time.Minute, "give up after this long")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "random seed, zero keeps the configured one")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simCount <= 0 {
		return fmt.Errorf("count must be positive")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Providers.Mode = config.ModeLocal
	cfg.Simulation.Enabled = true
	cfg.Simulation.Count = simCount
	if simSeed != 0 {
		cfg.Simulation.Seed = simSeed
	}
	cfg.API.Addr = ""
	cfg.Metrics.PromAddr = ""

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, simTimeout)
	defer cancel()

	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	start := time.Now()
	go func() { _ = svc.Run(ctx) }()

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	finished := false
	for !finished {
		select {
		case <-ctx.Done():
			finished = true
		case <-tick.C:
			finished = settled(svc, simCount)
		}
	}
	cancel()
	closeErr := svc.Close()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "simulated %s incidents in %s\n",
		humanize.Comma(int64(simCount)), time.Since(start).Round(time.Millisecond))
	printStats(out, svc.Coordinator.Stats())
	return closeErr
}

// settled reports whether n incidents were generated and none is still open.
func settled(svc *app.Service, n int) bool {
	if len(svc.Generator.Submitted()) < n {
		return false
	}
	for _, inc := range svc.Coordinator.Incidents() {
		if !inc.State.Terminal() {
			return false
		}
	}
	return true
}
