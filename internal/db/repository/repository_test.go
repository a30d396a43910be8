package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cordwell/shopapi/internal/db"
	"github.com/cordwell/shopapi/internal/models"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.RunMigrations(database))

	return database
}

func newTestUser(email string) *models.User {
	return &models.User{
		ID:           uuid.NewString(),
		Username:     "tester",
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Role:         models.RoleClient,
	}
}
