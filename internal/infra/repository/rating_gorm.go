package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/ratehub/ratehub/internal/domain/rating"
	"github.com/ratehub/ratehub/internal/models"
)

type RatingGormRepository struct {
	db *gorm.DB
}

func NewRatingGormRepository(db *gorm.DB) *RatingGormRepository {
	return &RatingGormRepository{db: db}
}

// --------------------------------------------------
// Store
// --------------------------------------------------

func (r *RatingGormRepository) GetStoreByID(
	ctx context.Context,
	id uint,
) (*models.Store, error) {

	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// --------------------------------------------------
// Ledger
// --------------------------------------------------

// UpsertAndRecompute runs the whole read-modify-write sequence inside one
// transaction. The store row is locked first, so two submissions for the
// same store serialize while unrelated stores proceed in parallel. The
// average is always re-derived from every rating row rather than adjusted
// incrementally, so a stale or corrupted aggregate heals on the next write.
func (r *RatingGormRepository) UpsertAndRecompute(
	ctx context.Context,
	userID uint,
	storeID uint,
	value int,
) (float64, error) {

	var avg float64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {

		var store models.Store
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&store, storeID).Error; err != nil {
			return err
		}

		var existing models.Rating
		err := tx.
			Where("user_id = ? AND store_id = ?", userID, storeID).
			First(&existing).Error

		switch {
		case err == nil:
			existing.Value = value
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}

		case errors.Is(err, gorm.ErrRecordNotFound):
			created := models.Rating{
				UserID:  userID,
				StoreID: storeID,
				Value:   value,
			}
			if err := tx.Create(&created).Error; err != nil {
				return err
			}

		default:
			return err
		}

		if err := tx.
			Model(&models.Rating{}).
			Where("store_id = ?", storeID).
			Select("AVG(value)").
			Scan(&avg).Error; err != nil {
			return err
		}

		return tx.
			Model(&models.Store{}).
			Where("id = ?", storeID).
			Update("average_rating", avg).Error
	})

	if err != nil {
		return 0, err
	}
	return avg, nil
}

// Compile-time check
var _ domain.Repository = (*RatingGormRepository)(nil)
