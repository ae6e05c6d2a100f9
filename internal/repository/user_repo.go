package repository

import (
	"context"
	"fmt"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/models"
)

// UserRepository defines operations for storing/retrieving account records
type UserRepository interface {
	// CreateUser stores a new user and sets its ID and timestamps.
	// It should return ErrUserExists if the email is already taken.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user by its numeric ID.
	// It should return ErrUserNotFound if the user does not exist.
	GetUserByID(ctx context.Context, id int64) (*models.User, error)

	// GetUserByEmail retrieves a user by its normalized email.
	// It should return ErrUserNotFound if the user does not exist.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdateUser overwrites every mutable field of an existing user.
	// It should return ErrUserNotFound if the user does not exist and ErrUserExists
	// if the new email belongs to another user.
	UpdateUser(ctx context.Context, user *models.User) error
}

// Common errors
var ErrUserNotFound = fmt.Errorf("user not found")
var ErrUserExists = fmt.Errorf("user already exists")
