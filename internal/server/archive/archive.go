// Package archive keeps an off-database copy of every signed consent record.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
)

// Archive stores a signed record outside the ledger. Callers treat failures
// as non-fatal: the ledger row is the authoritative copy.
type Archive interface {
	Store(ctx context.Context, rec *models.ConsentRecord) error
}

// Nop discards records. It is used when no bucket is configured.
type Nop struct{}

func (Nop) Store(context.Context, *models.ConsentRecord) error { return nil }

type document struct {
	ID            int64  `json:"id"`
	TemplateID    int64  `json:"templateId"`
	UserID        int64  `json:"userId"`
	SignedAt      string `json:"signedAt"`
	IPAddress     string `json:"ipAddress,omitempty"`
	Status        string `json:"status"`
	SignatureHash string `json:"signatureHash"`
	AuditLog      string `json:"auditLog"`
	ContentHash   string `json:"contentHash"`
}

// ObjectKey places a record under its signing day.
func ObjectKey(rec *models.ConsentRecord) string {
	d := rec.SignedAt.UTC()
	return fmt.Sprintf("consents/%04d/%02d/%02d/%d-%s.json", d.Year(), d.Month(), d.Day(), rec.ID, rec.SignatureHash)
}

func encode(rec *models.ConsentRecord) ([]byte, error) {
	return json.Marshal(document{
		ID:            rec.ID,
		TemplateID:    rec.TemplateID,
		UserID:        rec.UserID,
		SignedAt:      rec.SignedAt.UTC().Format(time.RFC3339Nano),
		IPAddress:     rec.IPAddress,
		Status:        string(rec.Status),
		SignatureHash: rec.SignatureHash,
		AuditLog:      rec.AuditLog,
		ContentHash:   rec.ContentHash,
	})
}
