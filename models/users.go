package models

import "time"

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	Role      string    `gorm:"type:varchar(20);not null;default:'customer'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsStaff reports whether the user may manage the catalog and confirm bookings.
func (u *User) IsStaff() bool {
	return u.Role == RoleStaff
}
