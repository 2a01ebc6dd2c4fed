package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/repository"
	"portrait-studio/internal/infra/logging"
	"portrait-studio/internal/infra/metrics"
)

// Compile-time check
var _ AdminUseCase = (*adminUC)(nil)

// maxCodeAttempts bounds the collision retries for one code.
const maxCodeAttempts = 100

// adminActor is recorded as the device id of admin audit entries.
const adminActor = "admin"

type IssueRequest struct {
	Amount int
	Points int64 // 0 means model.PointsDefault
	Length int   // 0 means model.CodeLengthDefault
}

type IssueResult struct {
	Codes  []string `json:"codes"`
	Count  int      `json:"count"`
	Points int64    `json:"points"`
}

type CodePage struct {
	Codes  []*model.VerificationCode `json:"codes"`
	Total  int64                     `json:"total"`
	Limit  int                       `json:"limit"`
	Offset int                       `json:"offset"`
}

type BatchDeleteResult struct {
	Deleted int      `json:"deleted"`
	Failed  []string `json:"failed"`
}

type Stats struct {
	model.CodeStats
	TotalUsers int64 `json:"total_users"`
}

type AdminUseCase interface {
	IssueCodes(ctx context.Context, req IssueRequest) (*IssueResult, error)
	ListCodes(ctx context.Context, status string, limit, offset int) (*CodePage, error)
	DeleteCode(ctx context.Context, code string) error
	BatchDeleteCodes(ctx context.Context, codes []string) (*BatchDeleteResult, error)
	ExportCodes(ctx context.Context, status string) ([]byte, error)
	Stats(ctx context.Context) (*Stats, error)
	RecentLogs(ctx context.Context, limit int) ([]*model.UsageLogEntry, error)
	TopUsers(ctx context.Context, limit int) ([]*model.CreditAccount, error)
}

type adminUC struct {
	codes    repository.CodeRepository
	credits  repository.CreditRepository
	usage    repository.UsageRepository
	alphabet string
	log      *zerolog.Logger
}

// NewAdminUseCase uses DefaultCodeAlphabet when alphabet is shorter than two
// characters.
func NewAdminUseCase(codes repository.CodeRepository, credits repository.CreditRepository, usage repository.UsageRepository, alphabet string, logger *zerolog.Logger) *adminUC {
	if len(alphabet) < 2 {
		alphabet = DefaultCodeAlphabet
	}
	l := logger.With().Str("component", "AdminUC").Logger()
	return &adminUC{codes: codes, credits: credits, usage: usage, alphabet: alphabet, log: &l}
}

// IssueCodes mints up to req.Amount fresh codes. A unit whose collision
// retries run out is skipped, so Count may be lower than Amount.
func (u *adminUC) IssueCodes(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	defer logging.TraceDuration(u.log, "AdminUC.IssueCodes")()

	if req.Points == 0 {
		req.Points = model.PointsDefault
	}
	if req.Length == 0 {
		req.Length = model.CodeLengthDefault
	}
	switch {
	case req.Amount < model.BatchAmountMin || req.Amount > model.BatchAmountMax:
		return nil, fmt.Errorf("%w: amount must be between %d and %d", domain.ErrInvalidArgument, model.BatchAmountMin, model.BatchAmountMax)
	case req.Points < model.PointsMin || req.Points > model.PointsMax:
		return nil, fmt.Errorf("%w: points must be between %d and %d", domain.ErrInvalidArgument, model.PointsMin, model.PointsMax)
	case req.Length < model.CodeLengthMin || req.Length > model.CodeLengthMax:
		return nil, fmt.Errorf("%w: length must be between %d and %d", domain.ErrInvalidArgument, model.CodeLengthMin, model.CodeLengthMax)
	}

	res := &IssueResult{Codes: make([]string, 0, req.Amount), Points: req.Points}
	for i := 0; i < req.Amount; i++ {
		code, err := u.issueOne(ctx, req.Length, req.Points)
		if errors.Is(err, errCodeSpaceExhausted) {
			u.log.Warn().Int("attempts", maxCodeAttempts).Int("length", req.Length).Msg("no free code found; skipping")
			continue
		}
		if err != nil {
			if len(res.Codes) == 0 {
				return nil, err
			}
			// keep what was created; the caller sees the real count
			u.log.Error().Err(err).Int("created", len(res.Codes)).Msg("code issuance interrupted")
			break
		}
		res.Codes = append(res.Codes, code)
	}
	res.Count = len(res.Codes)
	metrics.AddCodesIssued(res.Count)

	u.audit(ctx, model.ActionGenerateCodes, map[string]any{
		"requested": req.Amount,
		"count":     res.Count,
		"points":    req.Points,
		"length":    req.Length,
	})
	u.log.Info().Int("requested", req.Amount).Int("count", res.Count).Int64("points", req.Points).Msg("codes issued")
	return res, nil
}

var errCodeSpaceExhausted = errors.New("no unique code found")

// issueOne probes for a free code and inserts it. A Create conflict means a
// concurrent issuer won the same code; it counts as one more collision.
func (u *adminUC) issueOne(ctx context.Context, length int, points int64) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateCode(u.alphabet, length)
		if err != nil {
			return "", err
		}
		exists, err := u.codes.Exists(ctx, repository.NoTX, code)
		if err != nil {
			return "", err
		}
		if exists {
			continue
		}
		if _, err := u.codes.Create(ctx, repository.NoTX, code, points); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				continue
			}
			return "", err
		}
		return code, nil
	}
	return "", errCodeSpaceExhausted
}

func (u *adminUC) ListCodes(ctx context.Context, status string, limit, offset int) (*CodePage, error) {
	defer logging.TraceDuration(u.log, "AdminUC.ListCodes")()
	st, err := model.ParseCodeStatusFilter(status)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", domain.ErrInvalidArgument)
	}
	limit = clamp(limit, 100, 1000)
	codes, total, err := u.codes.FindList(ctx, repository.NoTX, model.CodeFilter{Status: st, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	if codes == nil {
		codes = []*model.VerificationCode{}
	}
	return &CodePage{Codes: codes, Total: total, Limit: limit, Offset: offset}, nil
}

func (u *adminUC) DeleteCode(ctx context.Context, code string) error {
	defer logging.TraceDuration(u.log, "AdminUC.DeleteCode")()
	code = model.NormalizeCode(code)
	if code == "" {
		return fmt.Errorf("%w: code is required", domain.ErrInvalidArgument)
	}
	removed, err := u.codes.Delete(ctx, repository.NoTX, code)
	if err != nil {
		return err
	}
	if !removed {
		return domain.ErrNotFound
	}
	u.audit(ctx, model.ActionDeleteCode, map[string]any{"code": code})
	u.log.Info().Str("code", code).Msg("code deleted")
	return nil
}

func (u *adminUC) BatchDeleteCodes(ctx context.Context, codes []string) (*BatchDeleteResult, error) {
	defer logging.TraceDuration(u.log, "AdminUC.BatchDeleteCodes")()
	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: codes must be a non-empty list", domain.ErrInvalidArgument)
	}
	if len(codes) > model.BatchAmountMax {
		return nil, fmt.Errorf("%w: at most %d codes per batch", domain.ErrInvalidArgument, model.BatchAmountMax)
	}
	res := &BatchDeleteResult{Failed: []string{}}
	for _, raw := range codes {
		code := model.NormalizeCode(raw)
		removed, err := u.codes.Delete(ctx, repository.NoTX, code)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			u.log.Warn().Err(err).Str("code", code).Msg("batch delete item failed")
		}
		if err != nil || !removed {
			res.Failed = append(res.Failed, code)
			continue
		}
		res.Deleted++
	}
	u.audit(ctx, model.ActionBatchDeleteCodes, map[string]any{
		"requested": len(codes),
		"deleted":   res.Deleted,
		"failed":    len(res.Failed),
	})
	return res, nil
}

// ExportCodes renders every code matching status as CSV.
func (u *adminUC) ExportCodes(ctx context.Context, status string) ([]byte, error) {
	defer logging.TraceDuration(u.log, "AdminUC.ExportCodes")()
	st, err := model.ParseCodeStatusFilter(status)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"code", "points", "status", "created_at", "used_at"})

	const page = 1000
	for offset := 0; ; offset += page {
		codes, _, err := u.codes.FindList(ctx, repository.NoTX, model.CodeFilter{Status: st, Limit: page, Offset: offset})
		if err != nil {
			return nil, err
		}
		for _, c := range codes {
			usedAt := ""
			if c.UsedAt != nil {
				usedAt = c.UsedAt.UTC().Format(time.RFC3339)
			}
			_ = w.Write([]string{c.Code, strconv.FormatInt(c.Points, 10), string(c.Status), c.CreatedAt.UTC().Format(time.RFC3339), usedAt})
		}
		if len(codes) < page {
			break
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (u *adminUC) Stats(ctx context.Context) (*Stats, error) {
	defer logging.TraceDuration(u.log, "AdminUC.Stats")()
	cs, err := u.codes.GetStats(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	users, err := u.credits.CountAccounts(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return &Stats{CodeStats: cs, TotalUsers: users}, nil
}

func (u *adminUC) RecentLogs(ctx context.Context, limit int) ([]*model.UsageLogEntry, error) {
	defer logging.TraceDuration(u.log, "AdminUC.RecentLogs")()
	return u.usage.Recent(ctx, repository.NoTX, clamp(limit, 100, 1000))
}

func (u *adminUC) TopUsers(ctx context.Context, limit int) ([]*model.CreditAccount, error) {
	defer logging.TraceDuration(u.log, "AdminUC.TopUsers")()
	return u.credits.TopAccounts(ctx, repository.NoTX, clamp(limit, 10, 100))
}

// audit is best effort: the admin action already happened.
func (u *adminUC) audit(ctx context.Context, action string, meta map[string]any) {
	if err := u.usage.Append(ctx, repository.NoTX, model.NewUsageLogEntry(adminActor, action, meta)); err != nil {
		u.log.Warn().Err(err).Str("action", action).Msg("admin audit write failed")
	}
}
