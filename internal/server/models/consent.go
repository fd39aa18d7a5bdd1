package models

import "time"

// ConsentStatus is closed: records are only ever created as signed.
type ConsentStatus string

const StatusSigned ConsentStatus = "SIGNED"

// ConsentRecord is the durable proof that a user signed a template.
type ConsentRecord struct {
	ID         int64
	TemplateID int64
	UserID     int64
	SignedAt   time.Time
	// IPAddress is empty when no address could be determined.
	IPAddress     string
	Status        ConsentStatus
	SignatureHash string
	AuditLog      string
	// ContentHash is the SHA-256 of the template content that was signed.
	ContentHash string
}

// NewSignedRecord assembles a record for insertion. The ID is assigned by the
// ledger.
func NewSignedRecord(templateID, userID int64, signedAt time.Time, ipAddress, signatureHash, auditLog, contentHash string) *ConsentRecord {
	return &ConsentRecord{
		TemplateID:    templateID,
		UserID:        userID,
		SignedAt:      signedAt,
		IPAddress:     ipAddress,
		Status:        StatusSigned,
		SignatureHash: signatureHash,
		AuditLog:      auditLog,
		ContentHash:   contentHash,
	}
}
