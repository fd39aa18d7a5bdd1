package templates

import (
	"context"

	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
)

// Repository is the template store. Rows are never physically removed.
type Repository interface {
	Create(ctx context.Context, tmpl *models.ConsentTemplate) (*models.ConsentTemplate, error)
	GetByID(ctx context.Context, id int64) (*models.ConsentTemplate, error)
	// GetByIDForShare reads the template under a shared row lock that is held
	// until the surrounding transaction ends.
	GetByIDForShare(ctx context.Context, id int64) (*models.ConsentTemplate, error)
	// Update overwrites title, description and content. A nil isActive keeps
	// the stored flag.
	Update(ctx context.Context, id int64, title, description, content string, isActive *bool) (*models.ConsentTemplate, error)
	Deactivate(ctx context.Context, id int64) error
	List(ctx context.Context, activeOnly bool) ([]*models.ConsentTemplate, error)
}
