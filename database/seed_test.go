package database_test

import (
	"context"
	"testing"

	"donamaha/database"
	"donamaha/database/dbtest"
	"donamaha/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAdmin(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	created, err := database.SeedAdmin(ctx, db, "Root", " Admin@Example.com ", "rahasia123")
	require.NoError(t, err)
	assert.True(t, created)

	var u models.User
	require.NoError(t, db.Where("email = ?", "admin@example.com").First(&u).Error)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.True(t, u.ValidatePassword("rahasia123"))

	created, err = database.SeedAdmin(ctx, db, "Root", "admin@example.com", "lain12345")
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSeedAdminPromotesExistingUser(t *testing.T) {
	db := dbtest.New(t)
	u := models.User{Name: "Budi", Email: "budi@example.com", Role: models.RoleUser}
	require.NoError(t, u.SetPassword("password123"))
	require.NoError(t, db.Create(&u).Error)

	created, err := database.SeedAdmin(context.Background(), db, "", "budi@example.com", "whatever1")
	require.NoError(t, err)
	assert.True(t, created)

	var got models.User
	require.NoError(t, db.First(&got, u.ID).Error)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.True(t, got.ValidatePassword("password123"))
}

func TestSeedAdminRequiresCredentials(t *testing.T) {
	db := dbtest.New(t)
	_, err := database.SeedAdmin(context.Background(), db, "x", "", "")
	assert.Error(t, err)
}
