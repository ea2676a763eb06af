// Package app wires the coordinator, the providers and the outer surfaces
// from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/emsdispatch/api/incidents"
	"github.com/kilianp07/emsdispatch/config"
	"github.com/kilianp07/emsdispatch/core/archive"
	"github.com/kilianp07/emsdispatch/core/coordinator"
	"github.com/kilianp07/emsdispatch/core/directory"
	"github.com/kilianp07/emsdispatch/core/events"
	"github.com/kilianp07/emsdispatch/core/gateway"
	coremetrics "github.com/kilianp07/emsdispatch/core/metrics"
	coremon "github.com/kilianp07/emsdispatch/core/monitoring"
	"github.com/kilianp07/emsdispatch/core/provider"
	"github.com/kilianp07/emsdispatch/infra/logger"
	"github.com/kilianp07/emsdispatch/infra/metrics"
	"github.com/kilianp07/emsdispatch/infra/monitoring"
	"github.com/kilianp07/emsdispatch/infra/mqtt"
	"github.com/kilianp07/emsdispatch/infra/tracing"
	"github.com/kilianp07/emsdispatch/internal/eventbus"
	"github.com/kilianp07/emsdispatch/sim"
)

// Service holds every long-lived component of a running dispatcher.
type Service struct {
	Coordinator *coordinator.Coordinator
	Fleet       *provider.Fleet
	Generator   *sim.Generator

	cfg      *config.Config
	bus      *eventbus.Bus[events.Event]
	sink     coremetrics.MetricsSink
	store    archive.Store
	mon      coremon.Monitor
	client   *mqtt.PahoClient
	dir      *mqtt.Directory
	listener *mqtt.Listener
	shutdown func(context.Context) error
	log      logger.Logger

	wg sync.WaitGroup
}

// New builds the service. Nothing runs until Run is called.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	if err := logger.Configure(cfg.Logging); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	s := &Service{cfg: cfg, log: logger.New("service")}

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)
	s.mon = mon

	s.shutdown, err = tracing.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	s.store, err = archive.New(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	s.bus = eventbus.New[events.Event]()
	gws := gateway.Multi{gateway.NewBus(s.bus), gateway.NewLog(logger.New("gateway"))}

	var (
		dir   directory.Directory
		tr    coordinator.Transport
		local *provider.LocalTransport
		mem   *directory.Memory
	)
	switch cfg.Providers.Mode {
	case config.ModeMQTT:
		s.client, err = mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.dir = mqtt.NewDirectory(s.client)
		dir, tr = s.dir, mqtt.NewTransport(s.client)
		gws = append(gws, mqtt.NewGateway(s.client))
	default:
		mem = directory.NewMemory()
		local = provider.NewLocalTransport()
		dir, tr = mem, local
	}

	s.Coordinator, err = coordinator.New(cfg.Coordinator, dir, tr, gws,
		coordinator.WithLogger(logger.New("coordinator")),
		coordinator.WithArchive(s.store),
		coordinator.WithMonitor(mon),
		coordinator.WithMetricsSink(s.sink),
	)
	if err != nil {
		return nil, err
	}

	if s.dir != nil {
		s.dir.OnRegister(s.Coordinator.ProviderRegistered)
		s.listener = mqtt.NewListener(s.client, s.Coordinator)
	} else {
		specs, err := cfg.Providers.Specs()
		if err != nil {
			return nil, fmt.Errorf("roster: %w", err)
		}
		s.Fleet, err = provider.NewFleet(specs, s.Coordinator, local, cfg.Providers.GazetteerMap(),
			provider.WithLogger(logger.New("provider")),
			provider.WithTiming(cfg.Providers.Timing()),
		)
		if err != nil {
			return nil, fmt.Errorf("fleet: %w", err)
		}
		mem.OnRegister(s.Coordinator.ProviderRegistered)
		if err := s.Fleet.Register(ctx, mem); err != nil {
			return nil, fmt.Errorf("register fleet: %w", err)
		}
	}

	if cfg.Simulation.Enabled {
		s.Generator = sim.New(cfg.Simulation, s.Coordinator)
	}
	return s, nil
}

func (s *Service) goRun(name string, fn func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.mon.Recover()
		if err := fn(); err != nil {
			s.log.Errorf("%s: %v", name, err)
			coremon.CaptureException(err, map[string]string{"module": name})
		}
	}()
}

// Run starts every component and blocks until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if s.Fleet != nil {
		s.Fleet.Start(ctx)
	}
	if s.dir != nil {
		if err := s.listener.Start(ctx); err != nil {
			return fmt.Errorf("coordinator listener: %w", err)
		}
		if err := s.dir.Start(ctx); err != nil {
			return fmt.Errorf("provider directory: %w", err)
		}
	}
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if addr := s.cfg.Metrics.PromAddr; addr != "" {
		s.goRun("prom-server", func() error { return metrics.StartPromServer(ctx, addr, nil) })
	}
	if addr := s.cfg.API.Addr; addr != "" {
		var fleet incidents.FleetReader
		if s.Fleet != nil {
			fleet = s.Fleet
		}
		h := incidents.NewHandler(s.Coordinator, s.store, fleet, logger.New("api"))
		s.goRun("api", func() error { return incidents.Serve(ctx, addr, h) })
	}
	if s.Generator != nil {
		s.goRun("generator", func() error {
			s.Generator.Start(ctx)
			return nil
		})
	}
	s.log.Infof("dispatcher running in %s mode", s.cfg.Providers.Mode)
	<-ctx.Done()
	return nil
}

// Close stops the coordinator and releases every resource. Run's context
// must be canceled first.
func (s *Service) Close() error {
	var errs []error
	if err := s.Coordinator.Close(); err != nil {
		errs = append(errs, fmt.Errorf("coordinator: %w", err))
	}
	s.wg.Wait()
	if s.Fleet != nil {
		s.Fleet.Wait()
	}
	if s.client != nil {
		s.client.Disconnect()
	}
	s.bus.Close()
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("archive: %w", err))
	}
	tracing.ShutdownWithTimeout(context.Background(), s.shutdown)
	s.mon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
