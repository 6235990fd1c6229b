package db

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/axiom-eval/axiom/internal/authz"
	"github.com/axiom-eval/axiom/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CreateDefaultAdmin creates a default admin user if ADMIN_EMAIL and
// ADMIN_PASSWORD are set and no users exist in the database. The admin gets a
// personal organization where they hold the org admin role.
func CreateDefaultAdmin(db *gorm.DB) error {
	email := strings.ToLower(os.Getenv("ADMIN_EMAIL"))
	password := os.Getenv("ADMIN_PASSWORD")
	name := os.Getenv("ADMIN_NAME")

	// If no admin credentials provided, skip
	if email == "" || password == "" {
		slog.Info("No ADMIN_EMAIL or ADMIN_PASSWORD set, skipping default admin creation")
		return nil
	}
	if name == "" {
		name = "Administrator"
	}

	// Check if any users exist
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}

	// If users already exist, skip
	if count > 0 {
		slog.Info("Users already exist, skipping default admin creation")
		return nil
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// Create user
	user := models.User{
		FullName:     name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		IsActive:     true,
	}

	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	if _, err := authz.CreateOrganizationWithDefaults(db, name, &user.ID, true, false); err != nil {
		return fmt.Errorf("failed to create personal organization: %w", err)
	}

	slog.Info("Default admin user created", "email", email)
	return nil
}
