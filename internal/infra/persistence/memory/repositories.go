package memory

import (
	"context"

	"github.com/google/uuid"

	"guardian/internal/domain/entity"
	"guardian/internal/domain/repository"
)

type accountRepository struct {
	sess session
}

func (repo *accountRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Account, error) {
	r := repo.sess.get(id)
	if r.account == nil {
		return nil, repository.ErrAccountNotFound
	}
	found := *r.account

	return &found, nil
}

func (repo *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	id, ok := repo.sess.ownerOf(email)
	if !ok {
		return nil, repository.ErrAccountNotFound
	}

	return repo.FindByID(ctx, id)
}

func (repo *accountRepository) Create(_ context.Context, account *entity.Account) error {
	if _, taken := repo.sess.ownerOf(account.Email); taken {
		return repository.ErrAccountEmailTaken
	}

	return repo.sess.modify(account.ID, func(current row) (row, error) {
		if current.account != nil {
			return current, repository.ErrAccountEmailTaken
		}

		created := *account
		current.account = &created

		return current, nil
	})
}

func (repo *accountRepository) Update(_ context.Context, account *entity.Account) error {
	if owner, taken := repo.sess.ownerOf(account.Email); taken && owner != account.ID {
		return repository.ErrAccountEmailTaken
	}

	return repo.sess.modify(account.ID, func(current row) (row, error) {
		if current.account == nil {
			return current, repository.ErrAccountNotFound
		}

		updated := *current.account
		updated.Name = account.Name
		updated.Email = account.Email
		updated.UpdatedAt = account.UpdatedAt
		current.account = &updated

		return current, nil
	})
}

func (repo *accountRepository) Delete(_ context.Context, id uuid.UUID) error {
	return repo.sess.modify(id, func(current row) (row, error) {
		if current.account == nil {
			return current, repository.ErrAccountNotFound
		}

		// Mirrors ON DELETE CASCADE of the SQL schemas.
		return row{}, nil
	})
}

type credentialRepository struct {
	sess session
}

func (repo *credentialRepository) FindByAccountID(_ context.Context, accountID uuid.UUID) (*entity.Credential, error) {
	r := repo.sess.get(accountID)
	if r.credential == nil {
		return nil, repository.ErrCredentialNotFound
	}
	found := *r.credential

	return &found, nil
}

func (repo *credentialRepository) FindByAccountIDForUpdate(ctx context.Context, accountID uuid.UUID) (*entity.Credential, error) {
	repo.sess.lock(accountID)

	return repo.FindByAccountID(ctx, accountID)
}

func (repo *credentialRepository) Create(_ context.Context, credential *entity.Credential) error {
	return repo.sess.modify(credential.AccountID, func(current row) (row, error) {
		if current.account == nil {
			return current, repository.ErrAccountNotFound
		}

		created := *credential
		current.credential = &created

		return current, nil
	})
}

func (repo *credentialRepository) Save(_ context.Context, credential *entity.Credential) error {
	return repo.sess.modify(credential.AccountID, func(current row) (row, error) {
		if current.credential == nil {
			return current, repository.ErrCredentialNotFound
		}

		saved := *credential
		current.credential = &saved

		return current, nil
	})
}

func (repo *credentialRepository) Delete(_ context.Context, accountID uuid.UUID) error {
	return repo.sess.modify(accountID, func(current row) (row, error) {
		if current.credential == nil {
			return current, repository.ErrCredentialNotFound
		}
		current.credential = nil

		return current, nil
	})
}
