package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

type CuisineType string

const (
	CuisineItalian  CuisineType = "italian"
	CuisineJapanese CuisineType = "japanese"
	CuisineRussian  CuisineType = "russian"
	CuisineFrench   CuisineType = "french"
	CuisineChinese  CuisineType = "chinese"
	CuisineGeorgian CuisineType = "georgian"
	CuisineAmerican CuisineType = "american"
)

var cuisineLabels = map[CuisineType]string{
	CuisineItalian:  "Italian",
	CuisineJapanese: "Japanese",
	CuisineRussian:  "Russian",
	CuisineFrench:   "French",
	CuisineChinese:  "Chinese",
	CuisineGeorgian: "Georgian",
	CuisineAmerican: "American",
}

// CuisineTypes lists every accepted cuisine in display order.
func CuisineTypes() []CuisineType {
	return []CuisineType{
		CuisineItalian, CuisineJapanese, CuisineRussian, CuisineFrench,
		CuisineChinese, CuisineGeorgian, CuisineAmerican,
	}
}

func (c CuisineType) Valid() bool {
	_, ok := cuisineLabels[c]
	return ok
}

// Label returns the human readable cuisine name, or the raw value when unknown.
func (c CuisineType) Label() string {
	if label, ok := cuisineLabels[c]; ok {
		return label
	}
	return string(c)
}

const DefaultOpeningHours = "10:00-22:00"

var (
	ErrRestaurantNameRequired = errors.New("restaurant name is required")
	ErrUnknownCuisine         = errors.New("unknown cuisine type")
)

type Restaurant struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Name         string      `gorm:"type:varchar(100);not null" json:"name"`
	Description  string      `gorm:"type:text" json:"description"`
	CuisineType  CuisineType `gorm:"type:varchar(50);not null;index" json:"cuisine_type"`
	Address      string      `gorm:"type:text;not null" json:"address"`
	Phone        string      `gorm:"type:varchar(20)" json:"phone"`
	OpeningHours string      `gorm:"type:varchar(100);not null;default:'10:00-22:00'" json:"opening_hours"`
	ImageURL     *string     `gorm:"type:varchar(255)" json:"image_url,omitempty"`
	Website      *string     `gorm:"type:varchar(255)" json:"website,omitempty"`
	CreatedByID  *uint       `gorm:"index" json:"created_by_id,omitempty"`
	CreatedBy    *User       `gorm:"foreignKey:CreatedByID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	Tags         []Tag       `gorm:"many2many:restaurant_tags;" json:"tags"`
	Tables       []Table     `gorm:"foreignKey:RestaurantID" json:"tables,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (r *Restaurant) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrRestaurantNameRequired
	}
	if !r.CuisineType.Valid() {
		return ErrUnknownCuisine
	}
	return nil
}

func (r *Restaurant) BeforeSave(tx *gorm.DB) error {
	r.Name = strings.TrimSpace(r.Name)
	if r.OpeningHours == "" {
		r.OpeningHours = DefaultOpeningHours
	}
	return r.Validate()
}

// CanManage mirrors the catalog permission rule: only staff edit restaurants.
func (r *Restaurant) CanManage(user *User) bool {
	return user != nil && user.IsStaff()
}
