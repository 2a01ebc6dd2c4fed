package model

import (
	"fmt"
	"strings"
	"time"

	"portrait-studio/internal/domain"
)

// CodeStatus is the lifecycle state of a verification code. It only ever moves
// from CodeStatusActive to CodeStatusUsed.
type CodeStatus string

const (
	CodeStatusActive CodeStatus = "active"
	CodeStatusUsed   CodeStatus = "used"
)

const (
	CodeLengthMin     = 4
	CodeLengthMax     = 20
	CodeLengthDefault = 8

	PointsMin     = 1
	PointsMax     = 1000
	PointsDefault = 1

	BatchAmountMin = 1
	BatchAmountMax = 1000
)

// VerificationCode is a single-use token redeemable for credits.
type VerificationCode struct {
	Code      string     `json:"code"`
	Points    int64      `json:"points"`
	Status    CodeStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"` // nil until redeemed
}

// NewVerificationCode builds an ACTIVE code after normalizing and validating it.
func NewVerificationCode(code string, points int64) (*VerificationCode, error) {
	code = NormalizeCode(code)
	if err := ValidateCode(code); err != nil {
		return nil, err
	}
	if points < PointsMin || points > PointsMax {
		return nil, fmt.Errorf("%w: points must be between %d and %d", domain.ErrInvalidArgument, PointsMin, PointsMax)
	}
	return &VerificationCode{
		Code:      code,
		Points:    points,
		Status:    CodeStatusActive,
		CreatedAt: time.Now(),
	}, nil
}

func (c *VerificationCode) IsActive() bool { return c.Status == CodeStatusActive }

// NormalizeCode trims surrounding whitespace and upper-cases the code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCode checks an already normalized code.
func ValidateCode(code string) error {
	if len(code) < CodeLengthMin || len(code) > CodeLengthMax {
		return fmt.Errorf("%w: code length must be between %d and %d", domain.ErrInvalidArgument, CodeLengthMin, CodeLengthMax)
	}
	for i := 0; i < len(code); i++ {
		ch := code[i]
		if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
			return fmt.Errorf("%w: code must be alphanumeric", domain.ErrInvalidArgument)
		}
	}
	return nil
}

// ParseCodeStatusFilter accepts "", "all", "active" or "used". An empty
// result means no filtering.
func ParseCodeStatusFilter(s string) (CodeStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return "", nil
	case string(CodeStatusActive):
		return CodeStatusActive, nil
	case string(CodeStatusUsed):
		return CodeStatusUsed, nil
	default:
		return "", fmt.Errorf("%w: status must be one of all, active, used", domain.ErrInvalidArgument)
	}
}

// CodeFilter selects a page of codes.
type CodeFilter struct {
	Status CodeStatus // empty means all
	Limit  int
	Offset int
}

// CodeStats aggregates the code table.
type CodeStats struct {
	TotalCodes  int64 `json:"total_codes"`
	ActiveCodes int64 `json:"active_codes"`
	UsedCodes   int64 `json:"used_codes"`
	TotalPoints int64 `json:"total_points"`
	UsedPoints  int64 `json:"used_points"`
}
