package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	MinGuests = 1
	MaxGuests = 20
)

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid reservation status")

// ParseReservationStatus accepts only the three known statuses.
func ParseReservationStatus(s string) (ReservationStatus, error) {
	status := ReservationStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether a reservation in this status occupies its slot.
func (s ReservationStatus) IsActive() bool {
	switch s {
	case StatusPending, StatusConfirmed:
		return true
	case StatusCancelled:
		return false
	}
	return false
}

// CanTransitionTo encodes the only permitted moves:
// pending -> confirmed, pending -> cancelled, confirmed -> cancelled.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCancelled
	case StatusCancelled:
		return false
	}
	return false
}

// ActiveStatuses are the statuses that count toward slot conflicts.
func ActiveStatuses() []string {
	return []string{string(StatusPending), string(StatusConfirmed)}
}

type Reservation struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	UserID          uint              `gorm:"not null;index" json:"user_id"`
	User            *User             `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user,omitempty"`
	TableID         uint              `gorm:"not null;index:idx_reservation_table_date" json:"table_id"`
	Table           *Table            `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"table,omitempty"`
	ReservationDate string            `gorm:"type:varchar(10);not null;index:idx_reservation_table_date" json:"reservation_date"`
	ReservationTime string            `gorm:"type:varchar(5);not null" json:"reservation_time"`
	GuestsCount     int               `gorm:"not null" json:"guests_count"`
	SpecialRequests string            `gorm:"type:text" json:"special_requests"`
	Status          ReservationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	// ActiveSlot holds SlotKey while the reservation is active and NULL once
	// cancelled, so the unique index admits one active booking per slot.
	ActiveSlot *string   `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SlotKey identifies the (table, date, time) tuple a reservation occupies.
func SlotKey(tableID uint, date, clock string) string {
	return fmt.Sprintf("%d:%s:%s", tableID, date, clock)
}

func (r *Reservation) Slot() string {
	return SlotKey(r.TableID, r.ReservationDate, r.ReservationTime)
}

func (r *Reservation) BeforeSave(tx *gorm.DB) error {
	if r.Status == "" {
		r.Status = StatusPending
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, r.Status)
	}
	if r.Status.IsActive() {
		key := r.Slot()
		r.ActiveSlot = &key
	} else {
		r.ActiveSlot = nil
	}
	return nil
}

// OwnedBy reports whether the reservation belongs to the given user.
func (r *Reservation) OwnedBy(userID uint) bool {
	return r.UserID == userID
}
