package model

import (
	"encoding/json"
	"time"
)

const (
	ActionRedeemCode       = "redeem_code"
	ActionGenerateImage    = "generate_image"
	ActionGenerateCodes    = "admin:generate_codes"
	ActionDeleteCode       = "admin:delete_code"
	ActionBatchDeleteCodes = "admin:batch_delete_codes"
)

// UsageLogEntry is one row of the append-only audit trail. It is never read
// back for correctness decisions.
type UsageLogEntry struct {
	ID        int64          `json:"id"`
	DeviceID  string         `json:"device_id"`
	Action    string         `json:"action"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func NewUsageLogEntry(deviceID, action string, meta map[string]any) *UsageLogEntry {
	return &UsageLogEntry{
		DeviceID:  deviceID,
		Action:    action,
		Metadata:  meta,
		CreatedAt: time.Now(),
	}
}

// RedeemAction is the action tag recorded for a redemption of code.
func RedeemAction(code string) string {
	return ActionRedeemCode + ":" + code
}

// MetadataJSON encodes Metadata for storage; nil maps encode as "{}".
func (e *UsageLogEntry) MetadataJSON() ([]byte, error) {
	if e.Metadata == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(e.Metadata)
}
