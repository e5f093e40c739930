package rating

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ratehub/ratehub/internal/audit"
	domain "github.com/ratehub/ratehub/internal/domain/rating"
	"github.com/ratehub/ratehub/internal/httperr"
	"github.com/ratehub/ratehub/internal/metrics"
)

// ======================================================
// INPUT
// ======================================================

type SubmitRatingInput struct {
	UserID  uint
	StoreID uint
	Value   int
}

// ======================================================
// USE CASE
// ======================================================

type SubmitRating struct {
	repo  domain.Repository
	audit *audit.Dispatcher
}

func NewSubmitRating(
	repo domain.Repository,
	audit *audit.Dispatcher,
) *SubmitRating {
	return &SubmitRating{
		repo:  repo,
		audit: audit,
	}
}

// ======================================================
// EXECUTE
// ======================================================

// Execute records the caller's rating for a store and returns the freshly
// recomputed store average. A second submission by the same user for the
// same store replaces the earlier value instead of adding a row.
func (uc *SubmitRating) Execute(
	ctx context.Context,
	in SubmitRatingInput,
) (float64, error) {

	if err := domain.ValidateValue(in.Value); err != nil {
		return 0, err
	}

	store, err := uc.repo.GetStoreByID(ctx, in.StoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, httperr.ErrBusiness(httperr.CodeStoreNotFound)
		}
		return 0, err
	}

	avg, err := uc.repo.UpsertAndRecompute(ctx, in.UserID, store.ID, in.Value)
	if err != nil {
		return 0, err
	}

	metrics.RatingsSubmitted.Inc()

	uc.audit.Dispatch(audit.Event{
		ActorID:  &in.UserID,
		Action:   "rating_submitted",
		Entity:   "store",
		EntityID: &store.ID,
		Metadata: map[string]any{
			"value":   in.Value,
			"average": avg,
		},
	})

	return avg, nil
}
