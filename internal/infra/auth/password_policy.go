package auth

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	domainerrors "guardian/internal/domain/errors"
	"guardian/internal/domain/service"
	"guardian/internal/errors"
)

// Policy bounds, in bytes. bcrypt ignores everything past 72 bytes of input.
const (
	DefaultMinPasswordLength = 6
	MaxBcryptPasswordLength  = 72
)

type passwordPolicy struct {
	validate *validator.Validate
	tag      string
	min      int
	max      int
}

// NewPasswordPolicy returns a policy enforcing a non-empty password within [minLength, maxLength] bytes.
// minLength never drops below DefaultMinPasswordLength and maxLength is capped at the bcrypt input limit.
func NewPasswordPolicy(minLength, maxLength int) service.PasswordPolicy {
	if minLength < DefaultMinPasswordLength {
		minLength = DefaultMinPasswordLength
	}
	if maxLength <= 0 || maxLength > MaxBcryptPasswordLength {
		maxLength = MaxBcryptPasswordLength
	}
	if maxLength < minLength {
		maxLength = minLength
	}

	return &passwordPolicy{
		validate: validator.New(),
		tag:      fmt.Sprintf("required,min=%d,max=%d", minLength, maxLength),
		min:      minLength,
		max:      maxLength,
	}
}

// Validate returns ErrInvalidPassword with the violated rule as details.
func (p *passwordPolicy) Validate(password string) error {
	// validator counts runes; bcrypt limits bytes.
	if len(password) > p.max {
		return errors.WithStack(domainerrors.ErrInvalidPassword.WithDetails(fmt.Sprintf("must be at most %d bytes long", p.max)))
	}

	err := p.validate.Var(password, p.tag)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.Wrap(domainerrors.ErrInvalidPassword.WithDetails(err.Error()), "validate password")
	}

	var details string
	switch fieldErrs[0].Tag() {
	case "required":
		details = "must not be empty"
	case "min":
		details = fmt.Sprintf("must be at least %d characters long", p.min)
	default:
		details = fmt.Sprintf("must be at most %d bytes long", p.max)
	}

	return errors.WithStack(domainerrors.ErrInvalidPassword.WithDetails(details))
}
