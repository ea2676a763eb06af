package coordinator

import (
	"context"

	"github.com/kilianp07/emsdispatch/core/model"
)

// Transport carries coordinator messages to providers. Errors are logged and
// never change incident state.
type Transport interface {
	SendCFP(ctx context.Context, providerID string, cfp model.CallForProposal) error
	SendAccept(ctx context.Context, m model.Accept) error
	SendReject(ctx context.Context, m model.Reject) error
	SendDestination(ctx context.Context, m model.Destination) error
	SendCancel(ctx context.Context, m model.Cancel) error
}
