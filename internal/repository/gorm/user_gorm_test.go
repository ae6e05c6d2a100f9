package gorm_repo_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/models"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/repository"
	gorm_repo "github.com/SimpnicServerTeam/scs-authmail-server/internal/repository/gorm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRepo sets up an in-memory SQLite database private to the test.
func newTestRepo(t *testing.T) (context.Context, repository.UserRepository) {
	t.Helper()
	ctx := context.Background()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm_repo.Open("sqlite3", fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, gorm_repo.Migrate(ctx, db))
	return ctx, gorm_repo.NewGormUserRepository(db)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := gorm_repo.Open("oracle", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestGormUserRepository(t *testing.T) {
	t.Run("CreateAndGetUser", func(t *testing.T) {
		ctx, repo := newTestRepo(t)

		user := &models.User{Email: "user1@example.com", Username: "user1", PasswordHash: "digest", Token: "tok"}
		require.NoError(t, repo.CreateUser(ctx, user))
		assert.NotZero(t, user.ID)
		assert.False(t, user.CreatedAt.IsZero())

		byID, err := repo.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "user1@example.com", byID.Email)
		assert.Equal(t, "user1", byID.Username)
		assert.Equal(t, "digest", byID.PasswordHash)
		assert.Equal(t, "tok", byID.Token)
		assert.False(t, byID.Confirmed)

		byEmail, err := repo.GetUserByEmail(ctx, "user1@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)
	})

	t.Run("GetUserNotFound", func(t *testing.T) {
		ctx, repo := newTestRepo(t)

		_, err := repo.GetUserByID(ctx, 42)
		assert.ErrorIs(t, err, repository.ErrUserNotFound)

		_, err = repo.GetUserByEmail(ctx, "nonexistent@example.com")
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
	})

	t.Run("CreateUserExists", func(t *testing.T) {
		ctx, repo := newTestRepo(t)

		require.NoError(t, repo.CreateUser(ctx, &models.User{Email: "dup@example.com", Username: "a", PasswordHash: "x"}))
		err := repo.CreateUser(ctx, &models.User{Email: "dup@example.com", Username: "b", PasswordHash: "y"})
		assert.ErrorIs(t, err, repository.ErrUserExists)
	})

	t.Run("UpdateUserWritesZeroValues", func(t *testing.T) {
		ctx, repo := newTestRepo(t)

		user := &models.User{Email: "user2@example.com", Username: "user2", PasswordHash: "x", Token: "tok", Confirmed: true}
		require.NoError(t, repo.CreateUser(ctx, user))

		user.Token = ""
		user.Confirmed = false
		user.APIKeyHash = "apikey-digest"
		require.NoError(t, repo.UpdateUser(ctx, user))

		got, err := repo.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Token)
		assert.False(t, got.Confirmed)
		assert.Equal(t, "apikey-digest", got.APIKeyHash)
	})

	t.Run("UpdateUserEmailTaken", func(t *testing.T) {
		ctx, repo := newTestRepo(t)

		first := &models.User{Email: "first@example.com", Username: "first", PasswordHash: "x"}
		second := &models.User{Email: "second@example.com", Username: "second", PasswordHash: "x"}
		require.NoError(t, repo.CreateUser(ctx, first))
		require.NoError(t, repo.CreateUser(ctx, second))

		second.Email = "first@example.com"
		assert.ErrorIs(t, repo.UpdateUser(ctx, second), repository.ErrUserExists)
	})

	t.Run("UpdateUserNotFound", func(t *testing.T) {
		ctx, repo := newTestRepo(t)

		err := repo.UpdateUser(ctx, &models.User{ID: 77, Email: "ghost@example.com", Username: "ghost"})
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
	})
}
