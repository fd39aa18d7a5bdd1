package consents

import (
	"context"

	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
)

// Repository is the append-only consent ledger: records are created and read,
// never updated or deleted.
type Repository interface {
	// Create returns common.ErrorAlreadyExists when the (user, template) pair
	// or the signature hash is already taken.
	Create(ctx context.Context, rec *models.ConsentRecord) (*models.ConsentRecord, error)
	ExistsByUserAndTemplate(ctx context.Context, userID, templateID int64) (bool, error)
	GetByID(ctx context.Context, id int64) (*models.ConsentRecord, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.ConsentRecord, error)
	ListByTemplate(ctx context.Context, templateID int64) ([]*models.ConsentRecord, error)
	ListAll(ctx context.Context) ([]*models.ConsentRecord, error)
}
