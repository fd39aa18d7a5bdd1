package evidence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/consentkeeper/internal/common"
)

// Action labels what happened in an audit entry.
type Action string

const ActionSigned Action = "SIGNED"

// AuditEntry is the network and client context of one action. Field order is
// fixed, so the encoding of a given entry never changes.
type AuditEntry struct {
	UserAgent string `json:"userAgent"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
	Action    Action `json:"action"`
}

// NewAuditEntry substitutes common.UnknownValue for an empty agent or address.
func NewAuditEntry(userAgent, ip string, at time.Time, action Action) AuditEntry {
	if userAgent == "" {
		userAgent = common.UnknownValue
	}
	if ip == "" {
		ip = common.UnknownValue
	}
	return AuditEntry{
		UserAgent: userAgent,
		IP:        ip,
		Timestamp: CanonicalTime(at),
		Action:    action,
	}
}

// Encode returns the compact JSON form stored on the record. A failure here is
// an internal error, never a business outcome.
func (e AuditEntry) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("%w: encode audit entry: %v", common.ErrorInternal, err)
	}
	return string(b), nil
}
