//go:build !no_containers

package test

import (
	"context"
	"io"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/emsdispatch/app"
	"github.com/kilianp07/emsdispatch/config"
	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/core/provider"
	"github.com/kilianp07/emsdispatch/infra/logger"
	"github.com/kilianp07/emsdispatch/infra/mqtt"
	"github.com/kilianp07/emsdispatch/test/util"
)

func startEndpoint(ctx context.Context, t *testing.T, base mqtt.Config, spec provider.Spec, timing provider.Timing) {
	t.Helper()
	st, err := spec.State()
	require.NoError(t, err)
	mc := util.MQTTConfig(base.Broker, "e2e-"+spec.ID)
	client, err := mqtt.NewPahoClient(mc)
	require.NoError(t, err)
	actor := provider.NewActor(st, mqtt.NewRemoteCoordinator(client, st.ID), provider.WithTiming(timing))
	go actor.Run(ctx)
	ep := mqtt.NewEndpoint(client, actor)
	require.NoError(t, ep.Start(ctx))
	t.Cleanup(func() {
		_ = ep.Stop()
		client.Disconnect()
	})
}

func TestIncidentLifecycleOverMosquitto(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	logger.SetOutput(io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto: %v", err)
	}
	defer cleanup()

	cfg := &config.Config{MQTT: util.MQTTConfig(broker, "e2e-coordinator")}
	cfg.Providers.Mode = config.ModeMQTT
	cfg.Providers.ThinkDelayMS = 10
	cfg.Providers.TravelToSceneMS = 100
	cfg.Providers.TransportMS = 100
	cfg.Coordinator.Quorum = 1
	cfg.Coordinator.DeadlineMS = 500
	cfg.Archive.Backend = "sqlite"
	cfg.Archive.Path = filepath.Join(t.TempDir(), "incidents.db")
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	svc, err := app.New(ctx, cfg)
	require.NoError(t, err)
	go func() { _ = svc.Run(ctx) }()

	timing := cfg.Providers.Timing()
	startEndpoint(ctx, t, cfg.MQTT, provider.Spec{ID: "A1", Kind: "ambulance", Tier: "micu", Location: "Downtown"}, timing)
	startEndpoint(ctx, t, cfg.MQTT, provider.Spec{ID: "H1", Kind: "hospital", Tier: "trauma_center", Location: "Downtown"}, timing)

	id, err := svc.Coordinator.Submit(ctx, model.KindTrauma, model.SeverityCritical, "Downtown")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		inc, ok := svc.Coordinator.Incident(id)
		return ok && inc.State == model.StateCompleted
	}, 20*time.Second, 50*time.Millisecond)

	inc, _ := svc.Coordinator.Incident(id)
	assert.Equal(t, "A1", inc.AssignedAmbulance)
	assert.Equal(t, "H1", inc.AssignedHospital)
	assert.Greater(t, inc.ResponseSeconds, 0.0)

	cancel()
	require.NoError(t, svc.Close())
}
