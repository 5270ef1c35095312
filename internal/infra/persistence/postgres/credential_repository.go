package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"guardian/internal/domain/entity"
	domainerrors "guardian/internal/domain/errors"
	"guardian/internal/domain/repository"
	"guardian/internal/infra/persistence/model"
)

// credentialRepository implements the repository.CredentialRepository interface using GORM.
type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository is the constructor for credentialRepository.
func NewCredentialRepository(db *gorm.DB) repository.CredentialRepository {
	return &credentialRepository{db: db}
}

// FindByAccountID retrieves the credential without taking a row lock.
func (repo *credentialRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID) (*entity.Credential, error) {
	return repo.find(repo.db.WithContext(ctx), accountID)
}

// FindByAccountIDForUpdate issues SELECT ... FOR UPDATE, holding the row until the transaction ends.
func (repo *credentialRepository) FindByAccountIDForUpdate(ctx context.Context, accountID uuid.UUID) (*entity.Credential, error) {
	return repo.find(repo.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), accountID)
}

func (repo *credentialRepository) find(db *gorm.DB, accountID uuid.UUID) (*entity.Credential, error) {
	var credentialM model.CredentialModel
	if err := db.Where("account_id = ?", accountID).First(&credentialM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCredentialNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find credential")
	}

	return toCredentialDomain(&credentialM), nil
}

// Create persists the credential of a new account.
func (repo *credentialRepository) Create(ctx context.Context, credential *entity.Credential) error {
	if err := repo.db.WithContext(ctx).Create(toCredentialModel(credential)).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrAccountNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create credential")
	}

	return nil
}

// Save writes every mutable column. A map is used so that a zero failure count is written too.
func (repo *credentialRepository) Save(ctx context.Context, credential *entity.Credential) error {
	result := repo.db.WithContext(ctx).
		Model(&model.CredentialModel{}).
		Where("account_id = ?", credential.AccountID).
		Updates(map[string]any{
			"password_hash":   credential.PasswordHash,
			"last_attempt_at": credential.LastAttemptAt,
			"failure_count":   credential.FailureCount,
			"updated_at":      credential.UpdatedAt,
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to save credential")
	}

	if result.RowsAffected == 0 {
		return repository.ErrCredentialNotFound
	}

	return nil
}

// Delete removes the credential of an account.
func (repo *credentialRepository) Delete(ctx context.Context, accountID uuid.UUID) error {
	result := repo.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&model.CredentialModel{})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete credential")
	}

	if result.RowsAffected == 0 {
		return repository.ErrCredentialNotFound
	}

	return nil
}
