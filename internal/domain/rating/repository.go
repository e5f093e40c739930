package rating

import (
	"context"

	"github.com/ratehub/ratehub/internal/models"
)

type Repository interface {
	// -------- Store --------
	GetStoreByID(
		ctx context.Context,
		id uint,
	) (*models.Store, error)

	// -------- Ledger --------
	// UpsertAndRecompute creates or updates the caller's rating for the
	// store and re-derives the store average from all rating rows, as one
	// atomic unit serialized per store. It returns the new average.
	UpsertAndRecompute(
		ctx context.Context,
		userID uint,
		storeID uint,
		value int,
	) (float64, error)
}
