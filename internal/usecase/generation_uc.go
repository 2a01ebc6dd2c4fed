package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/adapter"
	"portrait-studio/internal/domain/ports/repository"
	"portrait-studio/internal/infra/logging"
	"portrait-studio/internal/infra/metrics"
	"portrait-studio/internal/infra/worker"
)

// Compile-time check
var _ GenerationUseCase = (*generationUC)(nil)

const (
	generationCost       = 1
	defaultGenTimeout    = 60 * time.Second
	defaultRefundTimeout = 5 * time.Second
	auditWriteTimeout    = 5 * time.Second
)

type GenerateRequest struct {
	Image    string // data URL or bare base64
	Prompt   string // optional; built from Options when empty
	DeviceID string // optional; empty means unmetered
	Options  *model.StyleOptions
}

type GenerateResult struct {
	GenerationID string
	Image        *model.GeneratedImage
	Metered      bool
	Remaining    int64 // balance after the debit; only meaningful when Metered
}

type GenerationUseCase interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// BackgroundRunner takes work off the request path. *worker.Pool satisfies it.
type BackgroundRunner interface {
	Submit(task worker.Task) error
}

type GenerationOptions struct {
	Timeout       time.Duration // bound on the vendor call
	RefundTimeout time.Duration // bound on the compensating credit
}

type generationUC struct {
	credits repository.CreditRepository
	usage   repository.UsageRepository
	gen     adapter.ImageGenerator
	bg      BackgroundRunner
	opts    GenerationOptions
	log     *zerolog.Logger
	dev     bool
}

// NewGenerationUseCase wires the generation saga. bg may be nil, in which
// case the audit entry is written inline after the response is ready.
func NewGenerationUseCase(credits repository.CreditRepository, usage repository.UsageRepository, gen adapter.ImageGenerator, bg BackgroundRunner, opts GenerationOptions, logger *zerolog.Logger, dev bool) *generationUC {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultGenTimeout
	}
	if opts.RefundTimeout <= 0 {
		opts.RefundTimeout = defaultRefundTimeout
	}
	l := logger.With().Str("component", "GenerationUC").Logger()
	return &generationUC{credits: credits, usage: usage, gen: gen, bg: bg, opts: opts, log: &l, dev: dev}
}

// Generate debits one credit, calls the vendor without holding any
// transaction, and refunds the credit if the call fails for any reason.
func (u *generationUC) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	defer logging.TraceDuration(u.log, "GenerationUC.Generate")()

	src, prompt, deviceID, err := u.validate(req)
	if err != nil {
		return nil, err
	}

	res := &GenerateResult{GenerationID: ulid.Make().String(), Metered: deviceID != ""}
	ctx = logging.WithGenerationID(ctx, res.GenerationID)
	if res.Metered {
		ctx = logging.WithDeviceID(ctx, logging.Redact(deviceID, u.dev))
	}
	log := logging.With(ctx, u.log)
	provider := u.gen.Name()

	// reserve
	if res.Metered {
		remaining, err := u.credits.DebitAtomic(ctx, repository.NoTX, deviceID, generationCost)
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientCredits) {
				metrics.IncGeneration(provider, "insufficient_credit")
				log.Info().Msg("generation rejected: insufficient credits")
				return nil, err
			}
			metrics.IncGeneration(provider, "error")
			return nil, fmt.Errorf("debit: %w", err)
		}
		res.Remaining = remaining
	}

	// A metered debit is settled by success or refunded, panics included.
	settled := !res.Metered
	defer func() {
		if settled {
			return
		}
		rec := recover()
		if rec != nil {
			metrics.IncGeneration(provider, "panic")
			log.Error().Interface("panic", rec).Msg("image generator panicked")
		}
		u.refund(ctx, deviceID, log)
		if rec != nil {
			panic(rec)
		}
	}()

	// attempt
	callCtx, cancel := context.WithTimeout(ctx, u.opts.Timeout)
	defer cancel()
	start := time.Now()
	img, err := u.gen.Generate(callCtx, adapter.ImageRequest{Image: src, Prompt: prompt})
	if err == nil && (img == nil || len(img.Data) == 0) {
		err = fmt.Errorf("%s: empty image: %w", provider, domain.ErrUpstreamFailure)
	}
	err = asUpstream(err)
	metrics.ObserveGenerationLatency(provider, time.Since(start).Milliseconds(), err == nil)

	// compensate
	if err != nil {
		class := domain.UpstreamClass(err)
		metrics.IncGeneration(provider, class)
		log.Warn().Err(err).Str("class", class).Msg("generation failed")
		return nil, err
	}

	settled = true
	metrics.IncGeneration(provider, "success")
	res.Image = img
	u.audit(ctx, deviceID, model.NewUsageLogEntry(deviceID, model.ActionGenerateImage, map[string]any{
		"generation_id": res.GenerationID,
		"provider":      provider,
		"model":         img.Model,
		"prompt_length": len(prompt),
		"bytes":         len(img.Data),
		"metered":       res.Metered,
	}), log)
	log.Info().Int("bytes", len(img.Data)).Dur("took", time.Since(start)).Msg("generation succeeded")
	return res, nil
}

func (u *generationUC) validate(req GenerateRequest) (*model.SourceImage, string, string, error) {
	src, err := model.ParseSourceImage(req.Image)
	if err != nil {
		return nil, "", "", err
	}

	prompt := strings.TrimSpace(req.Prompt)
	if err := model.ValidatePrompt(prompt); err != nil {
		return nil, "", "", err
	}
	if prompt == "" {
		var opts model.StyleOptions
		if req.Options != nil {
			opts = *req.Options
		}
		if err := model.ValidatePrompt(opts.CustomPrompt); err != nil {
			return nil, "", "", err
		}
		prompt = opts.BuildPrompt()
	}

	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID != "" {
		if deviceID, err = model.NormalizeDeviceID(deviceID); err != nil {
			return nil, "", "", err
		}
	}
	return src, prompt, deviceID, nil
}

// refund runs on a context detached from the request so a disconnecting
// client cannot skip it.
func (u *generationUC) refund(ctx context.Context, deviceID string, log *zerolog.Logger) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.opts.RefundTimeout)
	defer cancel()
	balance, err := u.credits.CreditAtomic(rctx, repository.NoTX, deviceID, generationCost)
	if err != nil {
		metrics.IncRefund("failed")
		log.Error().Err(err).Msg("credit refund failed; balance is one short")
		return
	}
	metrics.IncRefund("ok")
	log.Info().Int64("balance", balance).Msg("credit refunded")
}

// audit records the usage entry. A failure is logged and never surfaces to
// the caller: the image was produced and paid for.
func (u *generationUC) audit(ctx context.Context, deviceID string, entry *model.UsageLogEntry, log *zerolog.Logger) {
	write := func(taskCtx context.Context) error {
		wctx, cancel := context.WithTimeout(taskCtx, auditWriteTimeout)
		defer cancel()
		if err := u.usage.Append(wctx, repository.NoTX, entry); err != nil {
			log.Error().Err(err).Msg("usage log write failed")
			return err
		}
		return nil
	}
	if u.bg != nil {
		if err := u.bg.Submit(write); err == nil {
			return
		}
	}
	_ = write(context.WithoutCancel(ctx))
}

// asUpstream guarantees every vendor failure carries an upstream sentinel.
func asUpstream(err error) error {
	switch {
	case err == nil, domain.IsUpstream(err):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%v: %w", err, domain.ErrUpstreamTimeout)
	default:
		return fmt.Errorf("%v: %w", err, domain.ErrUpstreamFailure)
	}
}
