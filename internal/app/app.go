// Package app assembles the guardian object graph for fx.
package app

import (
	"database/sql"

	"guardian/config"
	"guardian/internal/domain/service"
	"guardian/internal/infra/auth"
	"guardian/internal/infra/clock"
	logs "guardian/internal/infra/log"
	"guardian/internal/infra/persistence/memory"
	"guardian/internal/infra/persistence/postgres"
	"guardian/internal/infra/persistence/sqlite"
	"guardian/internal/usecase/impl"

	"go.uber.org/fx"
)

// Module returns the complete graph: infra, the storage backend selected by
// cfg.Storage.Driver, domain services and usecases.
func Module(cfg *config.Config) fx.Option {
	return fx.Options(
		InfraModule(cfg),
		StorageModule(cfg.Storage.Driver),
		injectService(),
		injectUsecase(),
	)
}

// InfraModule supplies the configuration and the logger.
func InfraModule(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			logs.New,
		),
	)
}

// StorageModule provides the transaction manager and repositories for driver.
// Unknown drivers fall back to memory; config validation rejects them earlier.
func StorageModule(driver string) fx.Option {
	switch driver {
	case config.StorageDriverPostgres:
		return fx.Provide(
			postgres.New,
			postgres.NewTransactionManager,
			postgres.NewAccountRepository,
			postgres.NewCredentialRepository,
		)
	case config.StorageDriverSQLite:
		return fx.Provide(
			sqlite.New,
			func(db *sql.DB) sqlite.DBTX { return db },
			sqlite.NewTransactionManager,
			sqlite.NewAccountRepository,
			sqlite.NewCredentialRepository,
		)
	default:
		return fx.Provide(
			memory.NewStore,
			memory.NewTransactionManager,
			memory.NewAccountRepository,
			memory.NewCredentialRepository,
		)
	}
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			clock.NewSystemClock,
			newPasswordHasher,
			newPasswordPolicy,
			impl.NewAccountLocks,
		),
	)
}

// newPasswordHasher creates the bcrypt hasher with the configured work factor
func newPasswordHasher(cfg *config.Config) service.PasswordHasher {
	return auth.NewBcryptHasherWithCost(cfg.Auth.BcryptCost)
}

func newPasswordPolicy(cfg *config.Config) service.PasswordPolicy {
	return auth.NewPasswordPolicy(cfg.PasswordPolicy.MinLength, cfg.PasswordPolicy.MaxLength)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewCredentialStore,
			impl.NewAuthenticator,
			impl.NewAccountService,
		),
	)
}
