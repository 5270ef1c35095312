package impl

import (
	domainerrors "guardian/internal/domain/errors"
	"guardian/internal/domain/repository"
	"guardian/internal/errors"
)

// persistenceError translates repository outcomes into domain errors.
// Anything that is not already a domain error is reported as a persistence failure.
func persistenceError(err error, message string) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, repository.ErrCredentialNotFound), errors.Is(err, repository.ErrAccountNotFound):
		return errors.Wrap(domainerrors.ErrAccountNotFound, message)
	case errors.Is(err, repository.ErrAccountEmailTaken):
		return errors.Wrap(domainerrors.ErrAccountAlreadyExists, message)
	}

	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		return errors.Wrap(err, message)
	}

	return errors.WithStack(domainerrors.NewDatabaseExecuteError(err, message))
}
