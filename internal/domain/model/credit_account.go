package model

import (
	"fmt"
	"strings"
	"time"

	"portrait-studio/internal/domain"
)

const DeviceIDMaxLength = 100

// CreditAccount is the prepaid balance of one device.
//
// DeviceID is generated by the client and is not authenticated. Anyone who
// knows a device id can spend its credits; the ledger guarantees accounting
// consistency, not ownership.
type CreditAccount struct {
	DeviceID  string    `json:"device_id"`
	Credits   int64     `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeDeviceID trims the id and enforces the length limit. Empty ids are
// rejected; callers that allow anonymous use must check for "" first.
func NormalizeDeviceID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: deviceId is required", domain.ErrInvalidArgument)
	}
	if len(id) > DeviceIDMaxLength {
		return "", fmt.Errorf("%w: deviceId must be at most %d characters", domain.ErrInvalidArgument, DeviceIDMaxLength)
	}
	return id, nil
}
