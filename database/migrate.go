package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yeremiapane/restobook/models"
	"github.com/yeremiapane/restobook/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultTags are offered in the restaurant editor from the first start.
var DefaultTags = []string{"romantic", "family", "business", "terrace", "live music", "vegetarian"}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.Tag{},
		&models.Table{},
		&models.Reservation{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}

// SeedTags inserts any missing default tag.
func SeedTags(db *gorm.DB) error {
	for _, name := range DefaultTags {
		tag := models.Tag{Name: name}
		if err := db.Where(models.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			return fmt.Errorf("seed tag %q: %w", name, err)
		}
	}
	return nil
}

// SeedStaff makes sure a staff account exists for email. Empty credentials
// are skipped; an existing user with that email is promoted to staff.
func SeedStaff(db *gorm.DB, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		if user.Role == models.RoleStaff {
			return nil
		}
		if err := db.Model(&user).Update("role", models.RoleStaff).Error; err != nil {
			return fmt.Errorf("promote %s: %w", email, err)
		}
		utils.InfoLogger.Printf("User %s promoted to staff", email)
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("lookup %s: %w", email, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash staff password: %w", err)
	}
	user = models.User{
		Name:     "Administrator",
		Email:    email,
		Password: string(hashed),
		Role:     models.RoleStaff,
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("create staff %s: %w", email, err)
	}
	utils.InfoLogger.Printf("Staff account %s created", email)
	return nil
}
