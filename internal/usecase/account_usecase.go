package usecase

import (
	"context"

	"github.com/google/uuid"

	"guardian/internal/domain/entity"
)

// CreateAccountInput defines the data required to create an account.
type CreateAccountInput struct {
	Name     string
	Email    string
	Password string
}

// ChangeEmailInput carries the new address. Password is checked only when the
// service is configured to require it.
type ChangeEmailInput struct {
	AccountID uuid.UUID
	Email     string
	Password  string
}

// ChangeNameInput carries the new display name.
type ChangeNameInput struct {
	AccountID uuid.UUID
	Name      string
}

// AccountUsecase manages the account record that owns a credential.
type AccountUsecase interface {
	CreateAccount(ctx context.Context, input CreateAccountInput) (*entity.Account, error)
	GetAccount(ctx context.Context, accountID uuid.UUID) (*entity.Account, error)
	ChangeEmail(ctx context.Context, input ChangeEmailInput) (*entity.Account, error)
	ChangeName(ctx context.Context, input ChangeNameInput) (*entity.Account, error)
}
