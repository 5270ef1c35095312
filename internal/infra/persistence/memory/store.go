// Package memory keeps accounts and credentials in process memory.
// It backs tests and ephemeral deployments; data is lost on restart.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"guardian/internal/domain/entity"
	"guardian/internal/domain/repository"
	"guardian/internal/infra/lock"
)

// row is everything stored under one account id. The pointed-to values are
// never modified once stored; writers replace the row.
type row struct {
	account    *entity.Account
	credential *entity.Credential
}

func (r row) empty() bool {
	return r.account == nil && r.credential == nil
}

// Store owns the data. Writers lock the rows they touch, so operations on
// different accounts only meet for the map updates themselves.
type Store struct {
	mu     sync.RWMutex
	rows   map[uuid.UUID]row
	emails map[string]uuid.UUID

	rowLocks *lock.Keyed[uuid.UUID]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		rows:     make(map[uuid.UUID]row),
		emails:   make(map[string]uuid.UUID),
		rowLocks: lock.NewKeyed[uuid.UUID](),
	}
}

// apply writes changes to the live data. The caller holds s.mu for writing.
// Changes are validated as a whole, so rows in one batch may trade e-mail addresses.
func (s *Store) apply(changes map[uuid.UUID]row) error {
	claimed := make(map[string]uuid.UUID, len(changes))
	for id, next := range changes {
		if next.account == nil {
			continue
		}

		email := next.account.Email
		if other, dup := claimed[email]; dup && other != id {
			return repository.ErrAccountEmailTaken
		}
		claimed[email] = id

		owner, taken := s.emails[email]
		if !taken || owner == id {
			continue
		}
		// The current owner may be giving the address up in this same batch.
		if released, ok := changes[owner]; ok && (released.account == nil || released.account.Email != email) {
			continue
		}

		return repository.ErrAccountEmailTaken
	}

	for id := range changes {
		if current, ok := s.rows[id]; ok && current.account != nil && s.emails[current.account.Email] == id {
			delete(s.emails, current.account.Email)
		}
	}

	for id, next := range changes {
		if next.empty() {
			delete(s.rows, id)

			continue
		}

		s.rows[id] = next
		if next.account != nil {
			s.emails[next.account.Email] = id
		}
	}

	return nil
}

// session is how a repository reaches the data, either directly or inside a transaction.
type session interface {
	// get returns the row as this session sees it.
	get(id uuid.UUID) row
	// ownerOf resolves an e-mail address to an account id.
	ownerOf(email string) (uuid.UUID, bool)
	// lock holds row id until the session ends. Direct sessions do not hold rows.
	lock(id uuid.UUID)
	// modify replaces row id with what fn returns.
	modify(id uuid.UUID, fn func(current row) (row, error)) error
}

// directSession applies every write immediately.
type directSession struct {
	store *Store
}

func (d directSession) get(id uuid.UUID) row {
	d.store.mu.RLock()
	defer d.store.mu.RUnlock()

	return d.store.rows[id]
}

func (d directSession) ownerOf(email string) (uuid.UUID, bool) {
	d.store.mu.RLock()
	defer d.store.mu.RUnlock()

	id, ok := d.store.emails[email]

	return id, ok
}

func (directSession) lock(uuid.UUID) {}

func (d directSession) modify(id uuid.UUID, fn func(current row) (row, error)) error {
	unlock := d.store.rowLocks.Lock(id)
	defer unlock()

	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	next, err := fn(d.store.rows[id])
	if err != nil {
		return err
	}

	return d.store.apply(map[uuid.UUID]row{id: next})
}

// txSession buffers writes until commit and holds the locks of every row it
// locked or wrote until then.
type txSession struct {
	store   *Store
	pending map[uuid.UUID]row
	held    map[uuid.UUID]func()
}

func (tx *txSession) get(id uuid.UUID) row {
	if r, ok := tx.pending[id]; ok {
		return r
	}

	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()

	return tx.store.rows[id]
}

func (tx *txSession) ownerOf(email string) (uuid.UUID, bool) {
	for id, r := range tx.pending {
		if r.account != nil && r.account.Email == email {
			return id, true
		}
	}

	tx.store.mu.RLock()
	id, ok := tx.store.emails[email]
	tx.store.mu.RUnlock()
	if !ok {
		return uuid.Nil, false
	}
	// Pending rows that changed or dropped the address no longer own it.
	if _, changed := tx.pending[id]; changed {
		return uuid.Nil, false
	}

	return id, true
}

func (tx *txSession) lock(id uuid.UUID) {
	if _, ok := tx.held[id]; ok {
		return
	}
	tx.held[id] = tx.store.rowLocks.Lock(id)
}

func (tx *txSession) modify(id uuid.UUID, fn func(current row) (row, error)) error {
	tx.lock(id)

	next, err := fn(tx.get(id))
	if err != nil {
		return err
	}
	tx.pending[id] = next

	return nil
}

func (tx *txSession) commit() error {
	if len(tx.pending) == 0 {
		return nil
	}

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	return tx.store.apply(tx.pending)
}

func (tx *txSession) release() {
	for _, unlock := range tx.held {
		unlock()
	}
}

// NewAccountRepository returns a repository that writes straight to the store.
func NewAccountRepository(store *Store) repository.AccountRepository {
	return &accountRepository{sess: directSession{store: store}}
}

// NewCredentialRepository returns a repository that writes straight to the store.
func NewCredentialRepository(store *Store) repository.CredentialRepository {
	return &credentialRepository{sess: directSession{store: store}}
}

type transactionManager struct {
	store *Store
}

// NewTransactionManager returns a TransactionManager over store.
// Inside Execute only the factory's repositories may write rows the transaction holds.
func NewTransactionManager(store *Store) repository.TransactionManager {
	return &transactionManager{store: store}
}

type repositoryFactory struct {
	sess session
}

func (f *repositoryFactory) NewAccountRepository() repository.AccountRepository {
	return &accountRepository{sess: f.sess}
}

func (f *repositoryFactory) NewCredentialRepository() repository.CredentialRepository {
	return &credentialRepository{sess: f.sess}
}

// Execute runs fn against a private write buffer and publishes it only if fn succeeds.
// Rows read for update or written are locked until the transaction ends.
func (tm *transactionManager) Execute(ctx context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &txSession{
		store:   tm.store,
		pending: make(map[uuid.UUID]row),
		held:    make(map[uuid.UUID]func()),
	}
	defer tx.release()

	if err := fn(&repositoryFactory{sess: tx}); err != nil {
		return err
	}

	return tx.commit()
}
