// Package evidence builds the tamper-evident parts of a consent record: the
// signature fingerprint and the serialized audit entry. Everything here is
// pure and safe for concurrent use.
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Instant normalizes t to the precision the ledger stores, so the time that is
// hashed is exactly the time that is persisted.
func Instant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// CanonicalTime renders t as RFC 3339 in UTC with trailing zeros of the
// fractional second removed.
func CanonicalTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Fingerprint returns the lowercase hex SHA-256 of
// "<userID>-<templateID>-<CanonicalTime(signedAt)>".
func Fingerprint(userID, templateID int64, signedAt time.Time) string {
	input := strconv.FormatInt(userID, 10) + "-" + strconv.FormatInt(templateID, 10) + "-" + CanonicalTime(signedAt)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// ContentHash returns the lowercase hex SHA-256 of a template body.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
