// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account is the record a credential belongs to.
// Only the fields the credential core needs to operate on are kept here.
type Account struct {
	ID        uuid.UUID // The Global Unique Identifier (GUID) for the account.
	Name      string    // The account holder's display name.
	Email     string    // Login identifier, always stored lower-cased.
	CreatedAt time.Time // Timestamp of when this account was created.
	UpdatedAt time.Time // Timestamp of the last modification to this account's data.
}

// NormalizeEmail returns the canonical form used to store and look up e-mail addresses.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
