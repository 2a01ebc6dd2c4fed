//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/adapter"
	"portrait-studio/internal/domain/ports/repository"
	"portrait-studio/internal/infra/db/memory"
	"portrait-studio/internal/usecase"
)

type ledger struct {
	codes   *memory.CodeRepo
	credits *memory.CreditRepo
	usage   *memory.UsageRepo
	tm      *memory.TxManager
}

func newLedger() ledger {
	s := memory.NewStore()
	return ledger{
		codes:   memory.NewCodeRepo(s),
		credits: memory.NewCreditRepo(s),
		usage:   memory.NewUsageRepo(s),
		tm:      memory.NewTxManager(s),
	}
}

// TestRedeemGenerateLifecycle walks one device through redeem, a good and a
// failed generation, and a replayed redemption.
func TestRedeemGenerateLifecycle(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	_, err := l.codes.Create(ctx, nil, "ABC12345", 5)
	require.NoError(t, err)

	fail := false
	gen := &MockImageGenerator{GenerateFunc: func(ctx context.Context, req adapter.ImageRequest) (*model.GeneratedImage, error) {
		if fail {
			return nil, domain.ErrUpstreamFailure
		}
		return &model.GeneratedImage{Data: []byte("png"), MIMEType: "image/png"}, nil
	}}
	codeUC := usecase.NewCodeUseCase(l.codes, l.credits, l.usage, l.tm, newTestLogger(), true)
	genUC := usecase.NewGenerationUseCase(l.credits, l.usage, gen, nil, usecase.GenerationOptions{Timeout: time.Second}, newTestLogger(), true)
	creditUC := usecase.NewCreditUseCase(l.credits, l.usage, newTestLogger())
	balance := func() int64 {
		n, err := creditUC.Balance(ctx, "D")
		require.NoError(t, err)
		return n
	}

	assert.EqualValues(t, 0, balance())

	res, err := codeUC.Redeem(ctx, "ABC12345", "D")
	require.NoError(t, err)
	assert.EqualValues(t, 5, res.Points)
	assert.EqualValues(t, 5, res.NewBalance)
	assert.EqualValues(t, 5, balance())

	out, err := genUC.Generate(ctx, usecase.GenerateRequest{Image: testImage, DeviceID: "D"})
	require.NoError(t, err)
	assert.EqualValues(t, 4, out.Remaining)
	assert.EqualValues(t, 4, balance())

	fail = true
	_, err = genUC.Generate(ctx, usecase.GenerateRequest{Image: testImage, DeviceID: "D"})
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
	assert.EqualValues(t, 4, balance())

	_, err = codeUC.Redeem(ctx, "ABC12345", "D")
	assert.ErrorIs(t, err, domain.ErrCodeNotFound)
	assert.EqualValues(t, 4, balance())

	history, err := creditUC.History(ctx, "D", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.ActionGenerateImage, history[0].Action)
	assert.Equal(t, "redeem_code:ABC12345", history[1].Action)
}

func TestConcurrentRedemption(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	_, err := l.codes.Create(ctx, nil, "RACE0001", 7)
	require.NoError(t, err)
	uc := usecase.NewCodeUseCase(l.codes, l.credits, l.usage, l.tm, newTestLogger(), true)

	const n = 32
	var wins, notFound int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Redeem(ctx, "RACE0001", "D")
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.Is(err, domain.ErrCodeNotFound):
				atomic.AddInt32(&notFound, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins)
	assert.EqualValues(t, n-1, notFound)
	bal, _ := l.credits.GetBalance(ctx, repository.NoTX, "D")
	assert.EqualValues(t, 7, bal)
}

func TestConcurrentGenerationNeverOverdraws(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	_, err := l.credits.CreditAtomic(ctx, nil, "D", 3)
	require.NoError(t, err)
	gen := &MockImageGenerator{}
	uc := usecase.NewGenerationUseCase(l.credits, l.usage, gen, nil, usecase.GenerationOptions{Timeout: time.Second}, newTestLogger(), true)

	var ok, rejected int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Generate(ctx, usecase.GenerateRequest{Image: testImage, DeviceID: "D"})
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, domain.ErrInsufficientCredits):
				atomic.AddInt32(&rejected, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 3, ok)
	assert.EqualValues(t, 17, rejected)
	assert.Equal(t, 3, gen.CallCount())
	bal, _ := l.credits.GetBalance(ctx, nil, "D")
	assert.Zero(t, bal)
}
