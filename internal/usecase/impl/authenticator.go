package impl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"

	"guardian/config"
	"guardian/internal/domain/entity"
	domainerrors "guardian/internal/domain/errors"
	"guardian/internal/domain/repository"
	"guardian/internal/domain/service"
	"guardian/internal/errors"
	logs "guardian/internal/infra/log"
	"guardian/internal/usecase"
	"guardian/internal/util"
)

// authenticator implements the Authenticator interface.
type authenticator struct {
	txManager   repository.TransactionManager
	accountRepo repository.AccountRepository
	store       usecase.CredentialStore
	hasher      service.PasswordHasher
	clock       service.Clock
	locks       *AccountLocks
	verifier    *passwordVerifier
	threshold   int
	window      time.Duration
	waitMessage string
	logger      *slog.Logger
}

// AuthenticatorParams holds dependencies for Authenticator, injected by Fx.
type AuthenticatorParams struct {
	fx.In

	TxManager   repository.TransactionManager
	AccountRepo repository.AccountRepository
	Store       usecase.CredentialStore
	Hasher      service.PasswordHasher
	Clock       service.Clock
	Locks       *AccountLocks
	Config      *config.Config
	Logger      *slog.Logger
}

// NewAuthenticator is the constructor for authenticator.
func NewAuthenticator(params AuthenticatorParams) usecase.Authenticator {
	return &authenticator{
		txManager:   params.TxManager,
		accountRepo: params.AccountRepo,
		store:       params.Store,
		hasher:      params.Hasher,
		clock:       params.Clock,
		locks:       params.Locks,
		verifier:    newPasswordVerifier(params.Store, params.Hasher, params.Logger),
		threshold:   params.Config.Auth.LockoutThreshold,
		window:      params.Config.Auth.LockoutWindow,
		waitMessage: waitMessage(params.Config.Auth.LockoutWindow),
		logger:      params.Logger,
	}
}

func waitMessage(window time.Duration) string {
	return fmt.Sprintf("You have tried to login too many times, please wait %s before trying again", util.FormatWait(window))
}

func (srv *authenticator) log(ctx context.Context) *slog.Logger {
	return logs.FromContext(ctx, srv.logger)
}

// Login runs the throttled login state machine for one attempt.
func (srv *authenticator) Login(ctx context.Context, input usecase.LoginInput) (*usecase.LoginOutput, error) {
	// A caller that goes away must not stop the attempt from being recorded.
	ctx = context.WithoutCancel(ctx)

	unlock := srv.locks.Lock(input.AccountID)
	defer unlock()

	return srv.login(ctx, input.AccountID, input.Password)
}

// LoginWithEmail resolves the account by e-mail and logs in. Unknown addresses are rejected.
func (srv *authenticator) LoginWithEmail(ctx context.Context, input usecase.LoginWithEmailInput) (*usecase.LoginOutput, error) {
	ctx = context.WithoutCancel(ctx)
	email := entity.NormalizeEmail(input.Email)

	account, err := srv.accountRepo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrAccountNotFound) {
		srv.verifier.burn(ctx, input.Password)
		srv.log(ctx).Warn("Login failed", slog.String("email", email), slog.Any("error", domainerrors.ErrInvalidCredentials))

		return &usecase.LoginOutput{Outcome: usecase.LoginRejected}, nil
	}
	if err != nil {
		srv.log(ctx).Error("Failed to look up account for login", slog.String("email", email), slog.Any("error", err))

		return nil, persistenceError(err, "failed to find account by email")
	}

	unlock := srv.locks.Lock(account.ID)
	defer unlock()

	return srv.login(ctx, account.ID, input.Password)
}

func (srv *authenticator) login(ctx context.Context, accountID uuid.UUID, password string) (*usecase.LoginOutput, error) {
	srv.log(ctx).Debug("Starting login", slog.Any("accountID", accountID))

	// 1. Count the attempt and persist it before anything else.
	credential, err := srv.recordAttempt(ctx, accountID)
	if errors.Is(err, domainerrors.ErrAccountNotFound) {
		srv.verifier.burn(ctx, password)
		srv.log(ctx).Warn("Login failed", slog.Any("accountID", accountID), slog.Any("error", err))

		return &usecase.LoginOutput{Outcome: usecase.LoginRejected}, nil
	}
	if err != nil {
		srv.log(ctx).Error("Failed to record login attempt", slog.Any("accountID", accountID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to record login attempt")
	}

	// 2. Locked credentials are not checked at all.
	if credential.IsLocked(srv.threshold) {
		srv.log(ctx).Warn("Login rate limited",
			slog.Any("accountID", accountID),
			slog.Int("failureCount", credential.FailureCount),
			slog.String("retryAfter", util.FormatDuration(srv.window)),
		)

		return &usecase.LoginOutput{
			Outcome:    usecase.LoginRateLimited,
			Message:    srv.waitMessage,
			RetryAfter: srv.window,
		}, nil
	}

	// 3. Verify outside the transaction (bcrypt is CPU-bound).
	ok, err := srv.hasher.Verify(password, credential.PasswordHash)
	if err != nil {
		srv.log(ctx).Error("Failed to verify password", slog.Any("accountID", accountID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to verify password")
	}
	if !ok {
		srv.log(ctx).Warn("Login failed", slog.Any("accountID", accountID), slog.Int("failureCount", credential.FailureCount))

		return &usecase.LoginOutput{Outcome: usecase.LoginRejected}, nil
	}

	// 4. Clear the counter, upgrading the hash when its parameters are outdated.
	if err := srv.recordSuccess(ctx, accountID, password, credential.PasswordHash); err != nil {
		srv.log(ctx).Error("Failed to record successful login", slog.Any("accountID", accountID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to record successful login")
	}

	srv.log(ctx).Debug("Login accepted", slog.Any("accountID", accountID))

	return &usecase.LoginOutput{Outcome: usecase.LoginAccepted, AccountID: accountID}, nil
}

func (srv *authenticator) recordAttempt(ctx context.Context, accountID uuid.UUID) (*entity.Credential, error) {
	var recorded *entity.Credential

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		credentialRepo := repoFactory.NewCredentialRepository()

		credential, err := credentialRepo.FindByAccountIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		credential.RecordAttempt(srv.clock.Now(), srv.window)
		if err := credentialRepo.Save(ctx, credential); err != nil {
			return err
		}
		recorded = credential

		return nil
	})
	if err != nil {
		return nil, persistenceError(err, "failed to record login attempt")
	}

	return recorded, nil
}

func (srv *authenticator) recordSuccess(ctx context.Context, accountID uuid.UUID, password, verifiedHash string) error {
	var upgraded string
	if srv.hasher.NeedsRehash(verifiedHash) {
		hash, err := srv.hasher.Hash(password)
		if err != nil {
			// The login itself is valid; keep the old hash and try again next time.
			srv.log(ctx).Warn("Failed to upgrade password hash", slog.Any("accountID", accountID), slog.Any("error", err))
		} else {
			upgraded = hash
		}
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		credentialRepo := repoFactory.NewCredentialRepository()

		credential, err := credentialRepo.FindByAccountIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		now := srv.clock.Now()
		credential.ResetFailures(now)
		// Skip the upgrade if the password was replaced in the meantime.
		if upgraded != "" && credential.PasswordHash == verifiedHash {
			credential.ReplaceHash(upgraded, now)
		}

		return credentialRepo.Save(ctx, credential)
	})

	return persistenceError(err, "failed to reset failure count")
}

// ChangePassword replaces the password after confirming the current one.
func (srv *authenticator) ChangePassword(ctx context.Context, input usecase.ChangePasswordInput) error {
	unlock := srv.locks.Lock(input.AccountID)
	defer unlock()

	if err := srv.verifier.confirm(ctx, input.AccountID, input.OldPassword); err != nil {
		srv.log(ctx).Warn("Password change denied", slog.Any("accountID", input.AccountID), slog.Any("error", err))

		return errors.Wrap(err, "failed to confirm current password")
	}

	if err := srv.store.SetPassword(ctx, input.AccountID, input.NewPassword); err != nil {
		return errors.Wrap(err, "failed to change password")
	}

	srv.log(ctx).Info("Password changed", slog.Any("accountID", input.AccountID))

	return nil
}

// DeleteAccount removes the account and its credential after confirming the password.
func (srv *authenticator) DeleteAccount(ctx context.Context, input usecase.DeleteAccountInput) error {
	unlock := srv.locks.Lock(input.AccountID)
	defer unlock()

	if err := srv.verifier.confirm(ctx, input.AccountID, input.Password); err != nil {
		srv.log(ctx).Warn("Account deletion denied", slog.Any("accountID", input.AccountID), slog.Any("error", err))

		return errors.Wrap(err, "failed to confirm password")
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if err := repoFactory.NewCredentialRepository().Delete(ctx, input.AccountID); err != nil {
			return err
		}

		return repoFactory.NewAccountRepository().Delete(ctx, input.AccountID)
	})
	if err != nil {
		srv.log(ctx).Error("Failed to delete account", slog.Any("accountID", input.AccountID), slog.Any("error", err))

		return persistenceError(err, "failed to delete account")
	}

	srv.log(ctx).Info("Account deleted", slog.Any("accountID", input.AccountID))

	return nil
}
