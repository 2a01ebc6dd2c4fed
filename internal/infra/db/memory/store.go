// Package memory is a process-local storage backend for dev mode and tests.
// It gives the same guarantees as the Postgres backend by serialising every
// transaction behind one store-wide mutex; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/repository"
)

type Store struct {
	mu        sync.Mutex
	codes     map[string]*model.VerificationCode
	credits   map[string]*model.CreditAccount
	logs      []*model.UsageLogEntry
	nextLogID int64
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		codes:   make(map[string]*model.VerificationCode),
		credits: make(map[string]*model.CreditAccount),
		now:     time.Now,
	}
}

// Ping always succeeds; it exists so health checks treat both backends alike.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Tx is the handle passed to WithTx callbacks. Repositories recognise it and
// skip locking, because the manager already holds the store mutex.
type Tx struct {
	store *Store
	undo  []func()
	done  bool
}

func (t *Tx) onRollback(f func()) {
	if t != nil {
		t.undo = append(t.undo, f)
	}
}

func (t *Tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

var _ repository.TransactionManager = (*TxManager)(nil)

type TxManager struct {
	store *Store
}

func NewTxManager(s *Store) *TxManager { return &TxManager{store: s} }

func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	tx := &Tx{store: m.store}
	defer func() {
		tx.done = true
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
		if err != nil {
			tx.rollback()
		}
	}()
	return fn(ctx, tx)
}

// exec runs fn with the store locked, or inside the caller's transaction.
func (s *Store) exec(tx repository.Tx, fn func(t *Tx) error) error {
	switch v := tx.(type) {
	case nil:
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(nil)
	case *Tx:
		if v.store != s || v.done {
			return fmt.Errorf("memory tx: %w", domain.ErrInvalidExecContext)
		}
		return fn(v)
	default:
		return domain.ErrInvalidExecContext
	}
}
