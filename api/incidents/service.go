// Package incidents exposes the coordinator over HTTP with gin.
package incidents

//go:generate mockgen -source=service.go -destination=mocks/service_mock.go -package=mocks

import (
	"context"

	"github.com/kilianp07/emsdispatch/core/archive"
	"github.com/kilianp07/emsdispatch/core/coordinator"
	"github.com/kilianp07/emsdispatch/core/model"
)

// Service is the coordinator surface used by the handlers.
type Service interface {
	Submit(ctx context.Context, kind model.Kind, sev model.Severity, loc model.Location) (uint64, error)
	Incident(id uint64) (model.Incident, bool)
	Incidents() []model.Incident
	CompleteIncident(ctx context.Context, id uint64, responseSeconds float64) error
	Cancel(ctx context.Context, id uint64) error
	Stats() coordinator.Stats
}

// ArchiveReader queries closed incidents.
type ArchiveReader interface {
	Query(ctx context.Context, q archive.Query) ([]archive.Record, error)
}

// FleetReader lists provider states.
type FleetReader interface {
	Snapshot() []model.ProviderState
}
