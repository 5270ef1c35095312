package postgres

import (
	"guardian/internal/domain/entity"
	"guardian/internal/infra/persistence/model"
)

func toAccountModel(account *entity.Account) *model.AccountModel {
	return &model.AccountModel{
		ID:        account.ID,
		Name:      account.Name,
		Email:     account.Email,
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}
}

func toAccountDomain(m *model.AccountModel) *entity.Account {
	return &entity.Account{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toCredentialModel(credential *entity.Credential) *model.CredentialModel {
	return &model.CredentialModel{
		AccountID:     credential.AccountID,
		PasswordHash:  credential.PasswordHash,
		LastAttemptAt: credential.LastAttemptAt,
		FailureCount:  credential.FailureCount,
		UpdatedAt:     credential.UpdatedAt,
	}
}

func toCredentialDomain(m *model.CredentialModel) *entity.Credential {
	return &entity.Credential{
		AccountID:     m.AccountID,
		PasswordHash:  m.PasswordHash,
		LastAttemptAt: m.LastAttemptAt,
		FailureCount:  m.FailureCount,
		UpdatedAt:     m.UpdatedAt,
	}
}
