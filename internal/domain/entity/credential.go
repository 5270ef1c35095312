package entity

import (
	"time"

	"github.com/google/uuid"
)

// Credential is the per-account secret plus the state used to throttle login attempts.
// PasswordHash is replaced wholesale; the plaintext is never kept.
type Credential struct {
	AccountID     uuid.UUID // Links this credential to the Account it belongs to.
	PasswordHash  string    // Self-describing one-way hash of the current password.
	LastAttemptAt time.Time // Time of the most recent login attempt, set at account creation.
	FailureCount  int       // Consecutive failed attempts since the last success or window reset.
	UpdatedAt     time.Time // Timestamp of the last modification to this credential.
}

// NewCredential builds the credential for a freshly created account.
func NewCredential(accountID uuid.UUID, passwordHash string, now time.Time) *Credential {
	return &Credential{
		AccountID:     accountID,
		PasswordHash:  passwordHash,
		LastAttemptAt: now,
		FailureCount:  0,
		UpdatedAt:     now,
	}
}

// RecordAttempt stamps a login attempt at now and counts it.
// When at least window has passed since the previous attempt the counter starts over,
// so the attempt being recorded becomes the first one of the new window.
func (c *Credential) RecordAttempt(now time.Time, window time.Duration) {
	previous := c.LastAttemptAt
	c.LastAttemptAt = now
	if now.Sub(previous) >= window {
		c.FailureCount = 0
	}
	c.FailureCount++
	c.UpdatedAt = now
}

// IsLocked reports whether the credential has reached the failure threshold.
func (c *Credential) IsLocked(threshold int) bool {
	return c.FailureCount >= threshold
}

// ResetFailures clears the counter after a successful verification.
func (c *Credential) ResetFailures(now time.Time) {
	c.FailureCount = 0
	c.UpdatedAt = now
}

// ReplaceHash swaps in a new password hash. Throttling state is left untouched.
func (c *Credential) ReplaceHash(hash string, now time.Time) {
	c.PasswordHash = hash
	c.UpdatedAt = now
}
