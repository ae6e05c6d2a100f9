package service

import (
	"context"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/models"
)

// CredentialHasher hashes and verifies passwords and API keys
type CredentialHasher interface {
	// Hash returns a salted digest that embeds its algorithm and parameters
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches digest. Malformed digests yield false.
	Verify(digest, plaintext string) bool
}

// AddressValidator gates account mutations on well-formed input
type AddressValidator interface {
	ValidateEmail(ctx context.Context, raw string, checkDeliverability bool) (string, error)
	ValidateUsername(raw string) (string, error)
}

// Composer builds the text of an outbound email
type Composer interface {
	Compose(task models.MailTask, userID int64, username, email, redirectURL, token string) models.MailMessage
}

// MailTransport delivers a composed email
type MailTransport interface {
	Send(ctx context.Context, msg models.MailMessage) error
}

// AccountManager exposes the account flows built on tokens, credentials and mail
type AccountManager interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResult, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	Confirm(ctx context.Context, userID int64, token string) error
	RequestPasswordReset(ctx context.Context, req models.PasswordResetRequest) (bool, error)
	OpenPasswordReset(ctx context.Context, userID int64, token string) error
	CompletePasswordReset(ctx context.Context, req models.CompletePasswordResetRequest) error
	RequestEmailChange(ctx context.Context, req models.EmailChangeRequest) (bool, error)
	ConfirmEmailChange(ctx context.Context, userID int64, token string) error
	IssueAPIKey(ctx context.Context, userID int64) (string, error)
	VerifyAPIKey(ctx context.Context, key string) (int64, bool)
}
