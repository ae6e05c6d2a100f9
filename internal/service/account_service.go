package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/logger"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/metrics"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/models"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/repository"
	"github.com/rs/zerolog/log"
)

var _ AccountManager = (*AccountService)(nil)

// AccountService runs the registration, confirmation, reset, email change and API key flows.
// Every link token it issues is tracked by tokens and stored on the user record;
// redeeming a link needs both to agree.
type AccountService struct {
	users               repository.UserRepository
	tokens              repository.TokenRepository
	hasher              CredentialHasher
	validator           AddressValidator
	composer            Composer
	transport           MailTransport
	checkDeliverability bool
}

func NewAccountService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	hasher CredentialHasher,
	validator AddressValidator,
	composer Composer,
	transport MailTransport,
	checkDeliverability bool,
) *AccountService {
	return &AccountService{
		users:               users,
		tokens:              tokens,
		hasher:              hasher,
		validator:           validator,
		composer:            composer,
		transport:           transport,
		checkDeliverability: checkDeliverability,
	}
}

// Register creates an account, or refreshes an unconfirmed one, and mails a confirmation link.
func (s *AccountService) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResult, error) {
	email, err := s.validator.ValidateEmail(ctx, req.Email, s.checkDeliverability)
	if err != nil {
		return nil, err
	}
	username, err := s.validator.ValidateUsername(req.Username)
	if err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil && existing.Confirmed {
		return nil, ErrAlreadyRegistered
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	token, err := s.tokens.Generate(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	user := existing
	if user == nil {
		user = &models.User{
			Email:        email,
			Username:     username,
			PasswordHash: passwordHash,
			Token:        token,
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			s.tokens.Delete(ctx, token)
			if errors.Is(err, repository.ErrUserExists) {
				return nil, ErrAlreadyRegistered
			}
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		log.Info().Int64("userID", user.ID).Msg("User registered")
	} else {
		previous := user.Token
		user.Username = username
		user.PasswordHash = passwordHash
		user.Token = token
		if err := s.users.UpdateUser(ctx, user); err != nil {
			s.tokens.Delete(ctx, token)
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		s.tokens.Delete(ctx, previous)
		log.Info().Int64("userID", user.ID).Msg("Unconfirmed user registered again")
	}

	sent := s.deliver(ctx, models.MailTaskConfirm, user, user.Email, req.RedirectURL)
	return &models.RegisterResult{UserID: user.ID, Email: user.Email, EmailSent: sent}, nil
}

// Login checks the credentials of a confirmed account. A missing account is reported
// before an unconfirmed one.
func (s *AccountService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.Confirmed {
		return nil, ErrNotConfirmed
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		log.Info().Int64("userID", user.ID).Msg("Login rejected")
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Confirm redeems an account confirmation link.
func (s *AccountService) Confirm(ctx context.Context, userID int64, token string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Confirmed {
		return ErrAlreadyConfirmed
	}
	if !s.redeem(ctx, user, token) {
		return ErrInvalidToken
	}

	user.Confirmed = true
	if err := s.retireToken(ctx, user); err != nil {
		return err
	}
	log.Info().Int64("userID", user.ID).Msg("Account confirmed")
	return nil
}

// RequestPasswordReset mails a reset link. The returned bool reports whether the mail went out.
func (s *AccountService) RequestPasswordReset(ctx context.Context, req models.PasswordResetRequest) (bool, error) {
	user, err := s.userByEmail(ctx, req.Email)
	if err != nil {
		return false, err
	}
	if err := s.issueToken(ctx, user); err != nil {
		return false, err
	}
	return s.deliver(ctx, models.MailTaskReset, user, user.Email, req.RedirectURL), nil
}

// OpenPasswordReset reports whether a reset link may still be used. The token is not consumed.
func (s *AccountService) OpenPasswordReset(ctx context.Context, userID int64, token string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !tokenMatches(user.Token, token) || !s.tokens.Check(ctx, token) {
		return ErrInvalidToken
	}
	return nil
}

// CompletePasswordReset redeems a reset link and stores the new password.
func (s *AccountService) CompletePasswordReset(ctx context.Context, req models.CompletePasswordResetRequest) error {
	if req.NewPassword == "" {
		return ErrEmptyCredential
	}
	user, err := s.users.GetUserByID(ctx, req.UserID)
	if err != nil {
		return err
	}
	passwordHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if !s.redeem(ctx, user, req.Token) {
		return ErrInvalidToken
	}

	user.PasswordHash = passwordHash
	if err := s.retireToken(ctx, user); err != nil {
		return err
	}
	log.Info().Int64("userID", user.ID).Msg("Password reset")
	return nil
}

// RequestEmailChange records newEmail as pending and mails a confirmation link to it.
func (s *AccountService) RequestEmailChange(ctx context.Context, req models.EmailChangeRequest) (bool, error) {
	email, err := s.validator.ValidateEmail(ctx, req.NewEmail, s.checkDeliverability)
	if err != nil {
		return false, err
	}
	user, err := s.users.GetUserByID(ctx, req.UserID)
	if err != nil {
		return false, err
	}
	if err := s.ensureEmailFree(ctx, user.ID, email); err != nil {
		return false, err
	}

	user.PendingEmail = email
	if err := s.issueToken(ctx, user); err != nil {
		return false, err
	}
	return s.deliver(ctx, models.MailTaskConfirmEmail, user, email, req.RedirectURL), nil
}

// ConfirmEmailChange redeems an email change link and moves the account to the pending address.
func (s *AccountService) ConfirmEmailChange(ctx context.Context, userID int64, token string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.PendingEmail == "" {
		return ErrNoPendingEmail
	}
	if err := s.ensureEmailFree(ctx, user.ID, user.PendingEmail); err != nil {
		return err
	}
	if !s.redeem(ctx, user, token) {
		return ErrInvalidToken
	}

	user.Email = user.PendingEmail
	user.PendingEmail = ""
	if err := s.retireToken(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return ErrEmailInUse
		}
		return err
	}
	log.Info().Int64("userID", user.ID).Msg("Email changed")
	return nil
}

// IssueAPIKey returns a new "{id}.{secret}" key for the user, replacing any earlier key.
// Only its digest is stored.
func (s *AccountService) IssueAPIKey(ctx context.Context, userID int64) (string, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	secret, err := s.tokens.Generate(ctx, false)
	if err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}
	key := strconv.FormatInt(user.ID, 10) + "." + secret
	digest, err := s.hasher.Hash(key)
	if err != nil {
		return "", fmt.Errorf("failed to hash API key: %w", err)
	}

	user.APIKeyHash = digest
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return "", fmt.Errorf("failed to store API key: %w", err)
	}
	log.Info().Int64("userID", user.ID).Msg("API key issued")
	return key, nil
}

// VerifyAPIKey resolves key to its user id.
func (s *AccountService) VerifyAPIKey(ctx context.Context, key string) (int64, bool) {
	idPart, secret, found := strings.Cut(key, ".")
	if !found || secret == "" {
		return 0, false
	}
	userID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || userID <= 0 {
		return 0, false
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			log.Error().Err(err).Int64("userID", userID).Msg("Failed to load user for API key")
		}
		return 0, false
	}
	if !s.hasher.Verify(user.APIKeyHash, key) {
		return 0, false
	}
	return user.ID, true
}

func (s *AccountService) userByEmail(ctx context.Context, raw string) (*models.User, error) {
	email, err := s.validator.ValidateEmail(ctx, raw, false)
	if err != nil {
		return nil, repository.ErrUserNotFound
	}
	return s.users.GetUserByEmail(ctx, email)
}

func (s *AccountService) ensureEmailFree(ctx context.Context, userID int64, email string) error {
	owner, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up user: %w", err)
	case owner.ID != userID:
		return ErrEmailInUse
	}
	return nil
}

// issueToken tracks a fresh link token, stores it on user and drops the one it supersedes.
func (s *AccountService) issueToken(ctx context.Context, user *models.User) error {
	token, err := s.tokens.Generate(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	previous := user.Token
	user.Token = token
	if err := s.users.UpdateUser(ctx, user); err != nil {
		s.tokens.Delete(ctx, token)
		return fmt.Errorf("failed to update user: %w", err)
	}
	if previous != "" {
		s.tokens.Delete(ctx, previous)
	}
	return nil
}

// retireToken replaces the record token with an untracked value and saves user.
func (s *AccountService) retireToken(ctx context.Context, user *models.User) error {
	token, err := s.tokens.Generate(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to rotate token: %w", err)
	}
	user.Token = token
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// redeem consumes token if it is the one issued to user.
func (s *AccountService) redeem(ctx context.Context, user *models.User, token string) bool {
	if !tokenMatches(user.Token, token) {
		log.Debug().Int64("userID", user.ID).Str("token", logger.TokenPrefix(token)).Msg("Token does not belong to user")
		return false
	}
	return s.tokens.Consume(ctx, token)
}

func (s *AccountService) deliver(ctx context.Context, task models.MailTask, user *models.User, to, redirectURL string) bool {
	msg := s.composer.Compose(task, user.ID, user.Username, to, redirectURL, user.Token)
	if err := s.transport.Send(ctx, msg); err != nil {
		metrics.MailDeliveries.WithLabelValues(string(task), metrics.ResultError).Inc()
		log.Error().Err(err).Int64("userID", user.ID).Str("task", string(task)).Msg("Mail delivery failed")
		return false
	}
	metrics.MailDeliveries.WithLabelValues(string(task), metrics.ResultOK).Inc()
	return true
}

func tokenMatches(stored, presented string) bool {
	return presented != "" && subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
