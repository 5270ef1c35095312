package impl

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.uber.org/fx"

	"guardian/internal/domain/entity"
	"guardian/internal/domain/repository"
	"guardian/internal/domain/service"
	"guardian/internal/errors"
	logs "guardian/internal/infra/log"
	"guardian/internal/usecase"
)

// credentialStore implements the CredentialStore interface.
type credentialStore struct {
	txManager      repository.TransactionManager
	credentialRepo repository.CredentialRepository
	hasher         service.PasswordHasher
	policy         service.PasswordPolicy
	clock          service.Clock
	logger         *slog.Logger
}

// CredentialStoreParams holds dependencies for CredentialStore, injected by Fx.
type CredentialStoreParams struct {
	fx.In

	TxManager      repository.TransactionManager
	CredentialRepo repository.CredentialRepository
	Hasher         service.PasswordHasher
	Policy         service.PasswordPolicy
	Clock          service.Clock
	Logger         *slog.Logger
}

// NewCredentialStore is the constructor for credentialStore.
func NewCredentialStore(params CredentialStoreParams) usecase.CredentialStore {
	return &credentialStore{
		txManager:      params.TxManager,
		credentialRepo: params.CredentialRepo,
		hasher:         params.Hasher,
		policy:         params.Policy,
		clock:          params.Clock,
		logger:         params.Logger,
	}
}

func (srv *credentialStore) log(ctx context.Context) *slog.Logger {
	return logs.FromContext(ctx, srv.logger)
}

// SetPassword validates and hashes password, then replaces the stored hash.
// Hashing happens before the transaction so the row lock is held only for the write.
func (srv *credentialStore) SetPassword(ctx context.Context, accountID uuid.UUID, password string) error {
	if err := srv.policy.Validate(password); err != nil {
		srv.log(ctx).Warn("Password rejected by policy", slog.Any("accountID", accountID), slog.Any("error", err))

		return err
	}

	hash, err := srv.hasher.Hash(password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password", slog.Any("accountID", accountID), slog.Any("error", err))

		return errors.Wrap(err, "failed to hash password")
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		credentialRepo := repoFactory.NewCredentialRepository()

		credential, err := credentialRepo.FindByAccountIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		credential.ReplaceHash(hash, srv.clock.Now())

		return credentialRepo.Save(ctx, credential)
	})
	if err != nil {
		srv.log(ctx).Error("Failed to store password hash", slog.Any("accountID", accountID), slog.Any("error", err))

		return persistenceError(err, "failed to set password")
	}

	srv.log(ctx).Info("Password updated", slog.Any("accountID", accountID))

	return nil
}

// Load returns the stored credential without locking it.
func (srv *credentialStore) Load(ctx context.Context, accountID uuid.UUID) (*entity.Credential, error) {
	credential, err := srv.credentialRepo.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, persistenceError(err, "failed to load credential")
	}

	return credential, nil
}

// Save writes credential back as given.
func (srv *credentialStore) Save(ctx context.Context, credential *entity.Credential) error {
	if err := srv.credentialRepo.Save(ctx, credential); err != nil {
		srv.log(ctx).Error("Failed to save credential", slog.Any("accountID", credential.AccountID), slog.Any("error", err))

		return persistenceError(err, "failed to save credential")
	}

	return nil
}
