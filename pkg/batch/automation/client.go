package automation

import (
	"context"

	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
)

// Client is the boundary to the external listing automation service. The
// engine calls it once per sub-step attempt; both calls are expected to be
// idempotent on the remote side so an attempt can be safely repeated after a
// crash or a retry.
type Client interface {
	// Modify applies the item's pending listing changes (price, rent, floor
	// exposure) to the remote listing identified by OfferID.
	Modify(ctx context.Context, item *model.BatchItem) error
	// ReAdvertise withdraws and re-publishes the remote listing so it appears
	// as a fresh advertisement.
	ReAdvertise(ctx context.Context, item *model.BatchItem) error
}
