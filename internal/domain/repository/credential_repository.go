package repository

import (
	"context"
	"errors"

	"guardian/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrCredentialNotFound is returned when no credential exists for an account.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialRepository persists password hashes together with login throttling state.
type CredentialRepository interface {
	// FindByAccountID loads the credential without locking it.
	FindByAccountID(ctx context.Context, accountID uuid.UUID) (*entity.Credential, error)

	// FindByAccountIDForUpdate loads the credential and locks it until the surrounding
	// transaction ends. Outside a transaction it behaves like FindByAccountID.
	FindByAccountIDForUpdate(ctx context.Context, accountID uuid.UUID) (*entity.Credential, error)

	// Create persists the credential of a new account.
	Create(ctx context.Context, credential *entity.Credential) error

	// Save writes hash, last attempt time and failure count back.
	Save(ctx context.Context, credential *entity.Credential) error

	// Delete removes the credential of an account.
	Delete(ctx context.Context, accountID uuid.UUID) error
}
