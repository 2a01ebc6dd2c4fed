package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/repository"
	"portrait-studio/internal/infra/logging"
	"portrait-studio/internal/infra/metrics"
)

// Compile-time check
var _ CodeUseCase = (*codeUC)(nil)

// RedeemResult is what a successful redemption reports back.
type RedeemResult struct {
	Points     int64 `json:"points"`
	NewBalance int64 `json:"remaining"`
}

type CodeUseCase interface {
	// Redeem consumes an ACTIVE code and credits its points to deviceID in one
	// transaction. Unknown, used and concurrently redeemed codes all yield
	// domain.ErrCodeNotFound.
	Redeem(ctx context.Context, code, deviceID string) (*RedeemResult, error)
	// Status looks up any code regardless of state.
	Status(ctx context.Context, code string) (*model.VerificationCode, error)
}

type codeUC struct {
	codes   repository.CodeRepository
	credits repository.CreditRepository
	usage   repository.UsageRepository
	tm      repository.TransactionManager
	log     *zerolog.Logger
	dev     bool
}

func NewCodeUseCase(codes repository.CodeRepository, credits repository.CreditRepository, usage repository.UsageRepository, tm repository.TransactionManager, logger *zerolog.Logger, dev bool) *codeUC {
	l := logger.With().Str("component", "CodeUC").Logger()
	return &codeUC{codes: codes, credits: credits, usage: usage, tm: tm, log: &l, dev: dev}
}

func (u *codeUC) Redeem(ctx context.Context, code, deviceID string) (*RedeemResult, error) {
	defer logging.TraceDuration(u.log, "CodeUC.Redeem")()

	code = model.NormalizeCode(code)
	if err := model.ValidateCode(code); err != nil {
		metrics.IncRedemption("invalid")
		return nil, err
	}
	deviceID, err := model.NormalizeDeviceID(deviceID)
	if err != nil {
		metrics.IncRedemption("invalid")
		return nil, err
	}

	var res RedeemResult
	err = u.tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		c, err := u.codes.FindActiveByCodeForUpdate(ctx, tx, code)
		if err != nil {
			return err
		}
		if err := u.codes.MarkUsed(ctx, tx, c.Code); err != nil {
			return err
		}
		entry := model.NewUsageLogEntry(deviceID, model.RedeemAction(c.Code), map[string]any{"points": c.Points})
		if err := u.usage.Append(ctx, tx, entry); err != nil {
			return err
		}
		balance, err := u.credits.CreditAtomic(ctx, tx, deviceID, c.Points)
		if err != nil {
			return err
		}
		res = RedeemResult{Points: c.Points, NewBalance: balance}
		return nil
	})

	log := logging.With(ctx, u.log)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncRedemption("not_found")
			log.Info().Str("code", logging.Redact(code, u.dev)).Msg("redemption rejected")
			return nil, domain.ErrCodeNotFound
		}
		metrics.IncRedemption("error")
		log.Error().Err(err).Msg("redemption failed")
		return nil, fmt.Errorf("redeem: %w", err)
	}

	metrics.IncRedemption("success")
	log.Info().
		Str("device_id", logging.Redact(deviceID, u.dev)).
		Int64("points", res.Points).
		Int64("balance", res.NewBalance).
		Msg("code redeemed")
	return &res, nil
}

func (u *codeUC) Status(ctx context.Context, code string) (*model.VerificationCode, error) {
	defer logging.TraceDuration(u.log, "CodeUC.Status")()
	code = model.NormalizeCode(code)
	if err := model.ValidateCode(code); err != nil {
		return nil, err
	}
	return u.codes.FindByCode(ctx, repository.NoTX, code)
}
