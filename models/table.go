package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrTableNumberRequired = errors.New("table number is required")
	ErrTableCapacity       = errors.New("table capacity must be greater than zero")
	ErrTablePrice          = errors.New("price per hour must not be negative")
)

// Table numbers are unique per restaurant, not globally.
type Table struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	RestaurantID uint        `gorm:"not null;uniqueIndex:idx_restaurant_table_number" json:"restaurant_id"`
	Restaurant   *Restaurant `gorm:"foreignKey:RestaurantID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"restaurant,omitempty"`
	TableNumber  string      `gorm:"type:varchar(10);not null;uniqueIndex:idx_restaurant_table_number" json:"table_number"`
	Capacity     int         `gorm:"not null" json:"capacity"`
	PricePerHour float64     `gorm:"type:decimal(8,2);not null;default:500.00" json:"price_per_hour"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (t *Table) Validate() error {
	if strings.TrimSpace(t.TableNumber) == "" {
		return ErrTableNumberRequired
	}
	if t.Capacity <= 0 {
		return ErrTableCapacity
	}
	if t.PricePerHour < 0 {
		return ErrTablePrice
	}
	return nil
}

func (t *Table) BeforeSave(tx *gorm.DB) error {
	t.TableNumber = strings.TrimSpace(t.TableNumber)
	return t.Validate()
}
