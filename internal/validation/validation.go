// Package validation checks and canonicalizes the email addresses and usernames
// that gate account mutations.
package validation

import (
	"context"
	"net"
)

// ValidationError carries the human-readable reason a value was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func reject(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Resolver is the DNS subset used by the deliverability check. *net.Resolver satisfies it.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Validator validates user supplied identifiers. The zero value uses net.DefaultResolver.
type Validator struct {
	resolver Resolver
}

// New returns a Validator using resolver for deliverability checks. A nil resolver
// falls back to net.DefaultResolver.
func New(resolver Resolver) *Validator {
	return &Validator{resolver: resolver}
}

func (v *Validator) dns() Resolver {
	if v == nil || v.resolver == nil {
		return net.DefaultResolver
	}
	return v.resolver
}

var defaultValidator = &Validator{}

// ValidateEmail validates raw with the default resolver.
func ValidateEmail(ctx context.Context, raw string, checkDeliverability bool) (string, error) {
	return defaultValidator.ValidateEmail(ctx, raw, checkDeliverability)
}

// ValidateUsername validates raw.
func ValidateUsername(raw string) (string, error) {
	return defaultValidator.ValidateUsername(raw)
}
