package models

import "time"

type Store struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Name    string `gorm:"size:100;not null" json:"name"`
	Email   string `gorm:"size:191;not null" json:"email"`
	Address string `gorm:"size:400;not null" json:"address"`

	// Weak reference: a store may be unowned, and deleting the owner
	// detaches the store instead of cascading.
	OwnerID *uint `json:"owner_id"`
	Owner   *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"owner,omitempty"`

	// Derived from the rating rows. Only the rating ledger writes it.
	AverageRating float64 `gorm:"not null;default:0" json:"average_rating"`

	Ratings []Rating `gorm:"foreignKey:StoreID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
