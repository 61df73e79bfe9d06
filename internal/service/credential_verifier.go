package service

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/prohmpiriya/tenant-auth/internal/domain"
)

// PrincipalStore looks users up by username; (nil, nil) when absent
type PrincipalStore interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}

// CredentialVerifier checks a username/password pair against the stored bcrypt hash
type CredentialVerifier struct {
	principals PrincipalStore
	// compared against when the user does not exist so both paths cost one bcrypt run
	dummyHash []byte
}

// NewCredentialVerifier creates a verifier; cost should match the cost used for stored hashes
func NewCredentialVerifier(principals PrincipalStore, cost int) (*CredentialVerifier, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("tenant-auth-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare credential verifier: %w", err)
	}
	return &CredentialVerifier{principals: principals, dummyHash: dummy}, nil
}

// Verify returns the user when the password matches, ErrInvalidCredentials
// when the user is unknown or the password is wrong
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := v.principals.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up principal: %w", err)
	}

	if user == nil {
		_ = bcrypt.CompareHashAndPassword(v.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	// A corrupt stored hash is also just a failed login
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
