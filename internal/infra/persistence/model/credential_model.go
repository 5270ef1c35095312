package model

import (
	"time"

	"github.com/google/uuid"
)

// CredentialModel mirrors the 'credentials' table. AccountID references accounts.id.
type CredentialModel struct {
	AccountID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	PasswordHash  string    `gorm:"type:varchar(255);not null"`
	LastAttemptAt time.Time `gorm:"not null"`
	FailureCount  int       `gorm:"not null;default:0"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName explicitly sets the table name for GORM.
func (CredentialModel) TableName() string {
	return "credentials"
}
