package database

import (
	"context"
	"errors"
	"strings"

	"donamaha/models"

	"gorm.io/gorm"
)

// SeedAdmin makes sure an admin account with email exists. An existing user
// with that email is promoted to admin and keeps its password. It reports
// whether anything was written.
func SeedAdmin(ctx context.Context, db *gorm.DB, name, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, errors.New("admin email and password are required")
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}

	var u models.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	switch {
	case err == nil:
		if u.Role == models.RoleAdmin {
			return false, nil
		}
		return true, db.WithContext(ctx).Model(&u).Update("role", models.RoleAdmin).Error
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, err
	}

	u = models.User{Name: name, Email: email, Role: models.RoleAdmin}
	if err := u.SetPassword(password); err != nil {
		return false, err
	}
	if err := db.WithContext(ctx).Create(&u).Error; err != nil {
		return false, err
	}
	return true, nil
}
