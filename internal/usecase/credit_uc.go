package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/repository"
	"portrait-studio/internal/infra/logging"
)

// Compile-time check
var _ CreditUseCase = (*creditUC)(nil)

type CreditUseCase interface {
	Balance(ctx context.Context, deviceID string) (int64, error)
	History(ctx context.Context, deviceID string, limit int) ([]*model.UsageLogEntry, error)
}

type creditUC struct {
	credits repository.CreditRepository
	usage   repository.UsageRepository
	log     *zerolog.Logger
}

func NewCreditUseCase(credits repository.CreditRepository, usage repository.UsageRepository, logger *zerolog.Logger) *creditUC {
	return &creditUC{credits: credits, usage: usage, log: logger}
}

// Balance is zero for a device that never redeemed a code.
func (u *creditUC) Balance(ctx context.Context, deviceID string) (int64, error) {
	defer logging.TraceDuration(u.log, "CreditUC.Balance")()
	deviceID, err := model.NormalizeDeviceID(deviceID)
	if err != nil {
		return 0, err
	}
	return u.credits.GetBalance(ctx, repository.NoTX, deviceID)
}

func (u *creditUC) History(ctx context.Context, deviceID string, limit int) ([]*model.UsageLogEntry, error) {
	defer logging.TraceDuration(u.log, "CreditUC.History")()
	deviceID, err := model.NormalizeDeviceID(deviceID)
	if err != nil {
		return nil, err
	}
	return u.usage.ByDevice(ctx, repository.NoTX, deviceID, clamp(limit, 20, 100))
}

// clamp returns def for non-positive v and caps it at hi.
func clamp(v, def, hi int) int {
	if v <= 0 {
		return def
	}
	if v > hi {
		return hi
	}
	return v
}
