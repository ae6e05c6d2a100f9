package service

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyRegistered  = fmt.Errorf("email is already registered")
	ErrNotConfirmed       = fmt.Errorf("account is not confirmed")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrAlreadyConfirmed   = fmt.Errorf("account is already confirmed")
	ErrInvalidToken       = fmt.Errorf("token is invalid or expired")
	ErrEmailInUse         = fmt.Errorf("email is used by another account")
	ErrNoPendingEmail     = fmt.Errorf("no email change is pending")
	ErrEmptyCredential    = errors.New("credential must not be empty")
	ErrEmptyMessage       = errors.New("refusing to send an empty message")
	ErrSMTPNotConfigured  = errors.New("SMTP service not fully configured (host, user, or port missing)")
)
