package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/emsdispatch/config"
	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/core/provider"
	"github.com/kilianp07/emsdispatch/infra/logger"
	"github.com/kilianp07/emsdispatch/infra/mqtt"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Provider fleet commands",
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the configured providers",
	RunE:  runFleetLs,
}

var fleetRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured providers as MQTT endpoints",
	RunE:  runFleetRun,
}

func init() {
	fleetCmd.AddCommand(fleetLsCmd, fleetRunCmd)
	rootCmd.AddCommand(fleetCmd)
}

func loadStates(cfg *config.Config) ([]model.ProviderState, error) {
	specs, err := cfg.Providers.Specs()
	if err != nil {
		return nil, err
	}
	states := make([]model.ProviderState, 0, len(specs))
	for _, s := range specs {
		st, err := s.State()
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, nil
}

func runFleetLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	states, err := loadStates(cfg)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tKIND\tTIER\tLOCATION\tCAPACITY")
	for _, st := range states {
		capacity := "-"
		if st.Kind == model.Hospital {
			capacity = fmt.Sprint(st.Capacity)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", st.ID, st.Kind, st.Tier, st.Location, capacity)
	}
	return tw.Flush()
}

// runFleetRun starts one MQTT client per provider so each has its own
// announcement will and reply topic.
func runFleetRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Configure(cfg.Logging); err != nil {
		return err
	}
	log := logger.New("fleet")
	states, err := loadStates(cfg)
	if err != nil {
		return err
	}
	base := cfg.MQTT.ClientID
	if base == "" {
		base = "emsdispatch-provider"
	}
	gaz := cfg.Providers.GazetteerMap()

	var endpoints []*mqtt.Endpoint
	var clients []*mqtt.PahoClient
	defer func() {
		for _, e := range endpoints {
			if err := e.Stop(); err != nil {
				log.Warnf("withdraw announcement: %v", err)
			}
		}
		for _, c := range clients {
			c.Disconnect()
		}
	}()
	for _, st := range states {
		mc := cfg.MQTT
		mc.ClientID = base + "-" + st.ID
		client, err := mqtt.NewPahoClient(mc)
		if err != nil {
			return fmt.Errorf("mqtt client for %s: %w", st.ID, err)
		}
		clients = append(clients, client)
		actor := provider.NewActor(st, mqtt.NewRemoteCoordinator(client, st.ID),
			provider.WithLogger(logger.New("provider")),
			provider.WithScorer(provider.ScorerFor(st.Kind, gaz)),
			provider.WithTiming(cfg.Providers.Timing()),
		)
		go actor.Run(ctx)
		ep := mqtt.NewEndpoint(client, actor)
		if err := ep.Start(ctx); err != nil {
			return fmt.Errorf("endpoint %s: %w", st.ID, err)
		}
		endpoints = append(endpoints, ep)
	}
	log.Infof("%d providers online", len(endpoints))
	<-ctx.Done()
	return nil
}
