package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/emsdispatch/core/model"
)

type stubHandle struct {
	id   string
	kind model.ProviderKind
}

func (s stubHandle) ID() string                                 { return s.id }
func (s stubHandle) Kind() model.ProviderKind                   { return s.kind }
func (s stubHandle) Reserve(context.Context, Reservation) error { return nil }
func (s stubHandle) Release(context.Context, uint64) error      { return nil }

func TestMemoryFindProvidersOrder(t *testing.T) {
	ctx := context.Background()
	d := NewMemory()
	var notified []model.ProviderKind
	d.OnRegister(func(_ context.Context, k model.ProviderKind) { notified = append(notified, k) })

	require.NoError(t, d.Register(ctx, stubHandle{"A2", model.Ambulance}))
	require.NoError(t, d.Register(ctx, stubHandle{"H1", model.Hospital}))
	require.NoError(t, d.Register(ctx, stubHandle{"A1", model.Ambulance}))

	amb := d.FindProviders(ctx, model.Ambulance)
	require.Len(t, amb, 2)
	assert.Equal(t, "A2", amb[0].ID())
	assert.Equal(t, "A1", amb[1].ID())
	assert.Equal(t, []model.ProviderKind{model.Ambulance, model.Hospital, model.Ambulance}, notified)

	err := d.Register(ctx, stubHandle{"A1", model.Ambulance})
	assert.True(t, errors.Is(err, ErrDuplicateProvider))

	d.Deregister("A2")
	_, ok := d.Lookup("A2")
	assert.False(t, ok)
	assert.Len(t, d.FindProviders(ctx, model.Ambulance), 1)
	assert.Equal(t, 2, d.Len())
}
