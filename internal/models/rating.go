package models

import "time"

type Rating struct {
	ID uint `gorm:"primaryKey" json:"id"`

	UserID  uint `gorm:"not null;uniqueIndex:idx_ratings_user_store" json:"user_id"`
	StoreID uint `gorm:"not null;uniqueIndex:idx_ratings_user_store" json:"store_id"`

	Value int `gorm:"not null;check:value >= 1 AND value <= 5" json:"value"`

	User  User  `gorm:"constraint:OnDelete:CASCADE;" json:"user,omitempty"`
	Store Store `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
