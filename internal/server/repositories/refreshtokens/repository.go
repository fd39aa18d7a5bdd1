// Package refreshtokens stores the single-use refresh tokens handed out at
// login, registration and rotation.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
)

// Repository persists refresh tokens. Only a SHA-256 digest of each token is
// written, so the table alone cannot be replayed against the refresh endpoint.
type Repository interface {
	// Issue records token for userID, valid until expiresAt.
	Issue(ctx context.Context, userID int64, token string, expiresAt time.Time) error

	// Consume removes token and returns what it was issued for. A token can
	// be consumed once; later calls return common.ErrorNotFound. Expiry is
	// left to the caller.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// PurgeExpired drops the tokens of userID that expired before now and
	// reports how many were removed.
	PurgeExpired(ctx context.Context, userID int64, now time.Time) (int64, error)
}
