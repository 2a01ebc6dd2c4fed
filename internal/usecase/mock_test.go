//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/adapter"
	"portrait-studio/internal/domain/ports/repository"
)

// =============================
// Repositories
// =============================

// ---- Mock CodeRepository ----

type MockCodeRepo struct {
	mu    sync.Mutex
	Codes map[string]*model.VerificationCode

	FindActiveFunc func(ctx context.Context, tx repository.Tx, code string) (*model.VerificationCode, error)
	MarkUsedFunc   func(ctx context.Context, tx repository.Tx, code string) error
	CreateFunc     func(ctx context.Context, tx repository.Tx, code string, points int64) (*model.VerificationCode, error)
	ExistsFunc     func(ctx context.Context, tx repository.Tx, code string) (bool, error)
	DeleteFunc     func(ctx context.Context, tx repository.Tx, code string) (bool, error)
	FindListFunc   func(ctx context.Context, tx repository.Tx, f model.CodeFilter) ([]*model.VerificationCode, int64, error)
	GetStatsFunc   func(ctx context.Context, tx repository.Tx) (model.CodeStats, error)
}

var _ repository.CodeRepository = (*MockCodeRepo)(nil)

func NewMockCodeRepo() *MockCodeRepo {
	return &MockCodeRepo{Codes: map[string]*model.VerificationCode{}}
}

func (m *MockCodeRepo) FindActiveByCodeForUpdate(ctx context.Context, tx repository.Tx, code string) (*model.VerificationCode, error) {
	if m.FindActiveFunc != nil {
		return m.FindActiveFunc(ctx, tx, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Codes[code]
	if !ok || !c.IsActive() {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCodeRepo) MarkUsed(ctx context.Context, tx repository.Tx, code string) error {
	if m.MarkUsedFunc != nil {
		return m.MarkUsedFunc(ctx, tx, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Codes[code]
	if !ok {
		return domain.ErrNotFound
	}
	c.Status = model.CodeStatusUsed
	return nil
}

func (m *MockCodeRepo) Create(ctx context.Context, tx repository.Tx, code string, points int64) (*model.VerificationCode, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, code, points)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Codes[code]; ok {
		return nil, domain.ErrAlreadyExists
	}
	c := &model.VerificationCode{Code: code, Points: points, Status: model.CodeStatusActive}
	m.Codes[code] = c
	cp := *c
	return &cp, nil
}

func (m *MockCodeRepo) Exists(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, tx, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Codes[code]
	return ok, nil
}

func (m *MockCodeRepo) Delete(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Codes[code]
	delete(m.Codes, code)
	return ok, nil
}

func (m *MockCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.VerificationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Codes[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCodeRepo) FindList(ctx context.Context, tx repository.Tx, f model.CodeFilter) ([]*model.VerificationCode, int64, error) {
	if m.FindListFunc != nil {
		return m.FindListFunc(ctx, tx, f)
	}
	return nil, 0, nil
}

func (m *MockCodeRepo) GetStats(ctx context.Context, tx repository.Tx) (model.CodeStats, error) {
	if m.GetStatsFunc != nil {
		return m.GetStatsFunc(ctx, tx)
	}
	return model.CodeStats{}, nil
}

// ---- Mock CreditRepository ----

type MockCreditRepo struct {
	mu       sync.Mutex
	Balances map[string]int64
	Debits   int
	Credits  int

	GetBalanceFunc   func(ctx context.Context, tx repository.Tx, deviceID string) (int64, error)
	CreditAtomicFunc func(ctx context.Context, tx repository.Tx, deviceID string, amount int64) (int64, error)
	DebitAtomicFunc  func(ctx context.Context, tx repository.Tx, deviceID string, amount int64) (int64, error)
}

var _ repository.CreditRepository = (*MockCreditRepo)(nil)

func NewMockCreditRepo() *MockCreditRepo {
	return &MockCreditRepo{Balances: map[string]int64{}}
}

func (m *MockCreditRepo) GetBalance(ctx context.Context, tx repository.Tx, deviceID string) (int64, error) {
	if m.GetBalanceFunc != nil {
		return m.GetBalanceFunc(ctx, tx, deviceID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Balances[deviceID], nil
}

func (m *MockCreditRepo) CreditAtomic(ctx context.Context, tx repository.Tx, deviceID string, amount int64) (int64, error) {
	m.mu.Lock()
	m.Credits++
	m.mu.Unlock()
	if m.CreditAtomicFunc != nil {
		return m.CreditAtomicFunc(ctx, tx, deviceID, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Balances[deviceID] += amount
	return m.Balances[deviceID], nil
}

func (m *MockCreditRepo) DebitAtomic(ctx context.Context, tx repository.Tx, deviceID string, amount int64) (int64, error) {
	m.mu.Lock()
	m.Debits++
	m.mu.Unlock()
	if m.DebitAtomicFunc != nil {
		return m.DebitAtomicFunc(ctx, tx, deviceID, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Balances[deviceID] < amount {
		return 0, domain.ErrInsufficientCredits
	}
	m.Balances[deviceID] -= amount
	return m.Balances[deviceID], nil
}

func (m *MockCreditRepo) CountAccounts(ctx context.Context, tx repository.Tx) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Balances)), nil
}

func (m *MockCreditRepo) TopAccounts(ctx context.Context, tx repository.Tx, limit int) ([]*model.CreditAccount, error) {
	return nil, nil
}

// ---- Mock UsageRepository ----

type MockUsageRepo struct {
	mu      sync.Mutex
	Entries []*model.UsageLogEntry

	AppendFunc func(ctx context.Context, tx repository.Tx, e *model.UsageLogEntry) error
}

var _ repository.UsageRepository = (*MockUsageRepo)(nil)

func NewMockUsageRepo() *MockUsageRepo { return &MockUsageRepo{} }

func (m *MockUsageRepo) Append(ctx context.Context, tx repository.Tx, e *model.UsageLogEntry) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, e)
	return nil
}

func (m *MockUsageRepo) Recent(ctx context.Context, tx repository.Tx, limit int) ([]*model.UsageLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.UsageLogEntry(nil), m.Entries...), nil
}

func (m *MockUsageRepo) ByDevice(ctx context.Context, tx repository.Tx, deviceID string, limit int) ([]*model.UsageLogEntry, error) {
	return nil, nil
}

func (m *MockUsageRepo) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, e.Action)
	}
	return out
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Adapters
// =============================

// ---- Mock ImageGenerator ----

type MockImageGenerator struct {
	mu    sync.Mutex
	Calls int

	GenerateFunc func(ctx context.Context, req adapter.ImageRequest) (*model.GeneratedImage, error)
}

var _ adapter.ImageGenerator = (*MockImageGenerator)(nil)

func (m *MockImageGenerator) Name() string { return "mock" }

func (m *MockImageGenerator) Generate(ctx context.Context, req adapter.ImageRequest) (*model.GeneratedImage, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &model.GeneratedImage{Data: []byte("png"), MIMEType: "image/png"}, nil
}

func (m *MockImageGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// -----------------------------
// Utilities
// -----------------------------

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// testImage is a 3-byte payload as a PNG data URL.
const testImage = "data:image/png;base64,cmF3"
