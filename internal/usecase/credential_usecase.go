// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"guardian/internal/domain/entity"
	domainerrors "guardian/internal/domain/errors"
)

// --- Input DTOs ---

// LoginInput identifies the account by ID.
type LoginInput struct {
	AccountID uuid.UUID
	Password  string
}

// LoginWithEmailInput identifies the account by e-mail address.
type LoginWithEmailInput struct {
	Email    string
	Password string
}

// ChangePasswordInput carries the current and the replacement password.
type ChangePasswordInput struct {
	AccountID   uuid.UUID
	OldPassword string
	NewPassword string
}

// DeleteAccountInput carries the password confirming the deletion.
type DeleteAccountInput struct {
	AccountID uuid.UUID
	Password  string
}

// --- Output DTOs ---

// LoginOutcome is the result of a completed login attempt.
type LoginOutcome int

const (
	// LoginAccepted means the password matched and the failure counter was cleared.
	LoginAccepted LoginOutcome = iota + 1
	// LoginRejected means the password did not match, or the account is unknown.
	LoginRejected
	// LoginRateLimited means too many attempts were made; the password was not checked.
	LoginRateLimited
)

func (o LoginOutcome) String() string {
	switch o {
	case LoginAccepted:
		return "accepted"
	case LoginRejected:
		return "rejected"
	case LoginRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// LoginOutput describes how a login attempt ended.
type LoginOutput struct {
	Outcome    LoginOutcome
	AccountID  uuid.UUID     // Set only when Outcome is LoginAccepted.
	Message    string        // User-facing text for LoginRateLimited.
	RetryAfter time.Duration // Waiting period advertised with LoginRateLimited.
}

// Err maps a non-accepted outcome onto a domain error so callers can treat it like any other failure.
func (o *LoginOutput) Err() error {
	switch o.Outcome {
	case LoginAccepted:
		return nil
	case LoginRateLimited:
		return domainerrors.ErrTooManyAttempts.WithDetails(o.Message)
	default:
		return domainerrors.ErrInvalidCredentials
	}
}

// CredentialStore is the persistence boundary for credentials.
type CredentialStore interface {
	// SetPassword checks the password policy, hashes the password and replaces the stored hash.
	SetPassword(ctx context.Context, accountID uuid.UUID, password string) error
	Load(ctx context.Context, accountID uuid.UUID) (*entity.Credential, error)
	Save(ctx context.Context, credential *entity.Credential) error
}

// Authenticator verifies passwords and throttles repeated failures.
type Authenticator interface {
	// Login records the attempt before checking the password. Rejected and rate limited
	// attempts are reported through LoginOutput, not as errors.
	Login(ctx context.Context, input LoginInput) (*LoginOutput, error)
	LoginWithEmail(ctx context.Context, input LoginWithEmailInput) (*LoginOutput, error)
	// ChangePassword does not touch the throttling state.
	ChangePassword(ctx context.Context, input ChangePasswordInput) error
	DeleteAccount(ctx context.Context, input DeleteAccountInput) error
}
