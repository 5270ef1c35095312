package impl

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	domainerrors "guardian/internal/domain/errors"
	"guardian/internal/domain/service"
	"guardian/internal/errors"
	logs "guardian/internal/infra/log"
	"guardian/internal/usecase"
)

// dummyPassword is hashed once so unknown accounts cost as much as known ones.
const dummyPassword = "guardian-dummy-password"

// passwordVerifier confirms an account's current password without touching throttling state.
type passwordVerifier struct {
	store  usecase.CredentialStore
	hasher service.PasswordHasher
	logger *slog.Logger

	dummyMu   sync.Mutex
	dummyHash string
}

func newPasswordVerifier(store usecase.CredentialStore, hasher service.PasswordHasher, logger *slog.Logger) *passwordVerifier {
	return &passwordVerifier{store: store, hasher: hasher, logger: logger}
}

// confirm returns ErrAuthorizationFailed when the password does not match or the account is unknown.
func (v *passwordVerifier) confirm(ctx context.Context, accountID uuid.UUID, password string) error {
	credential, err := v.store.Load(ctx, accountID)
	if errors.Is(err, domainerrors.ErrAccountNotFound) {
		v.burn(ctx, password)

		return errors.Wrap(domainerrors.ErrAuthorizationFailed, "unknown account")
	}
	if err != nil {
		return err
	}

	ok, err := v.hasher.Verify(password, credential.PasswordHash)
	if err != nil {
		return errors.Wrap(err, "failed to verify password")
	}
	if !ok {
		return errors.WithStack(domainerrors.ErrAuthorizationFailed)
	}

	return nil
}

// burn spends one verification on a throwaway hash.
func (v *passwordVerifier) burn(ctx context.Context, password string) {
	hash, err := v.dummy()
	if err != nil {
		logs.FromContext(ctx, v.logger).Error("Failed to prepare dummy password hash", slog.Any("error", err))

		return
	}

	_, _ = v.hasher.Verify(password, hash)
}

// dummy returns the throwaway hash, creating it on first use. A failed attempt is retried on the next call.
func (v *passwordVerifier) dummy() (string, error) {
	v.dummyMu.Lock()
	defer v.dummyMu.Unlock()

	if v.dummyHash != "" {
		return v.dummyHash, nil
	}

	hash, err := v.hasher.Hash(dummyPassword)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash dummy password")
	}
	v.dummyHash = hash

	return hash, nil
}
