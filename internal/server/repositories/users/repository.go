package users

import (
	"context"

	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
)

// Repository is the identity store. Emails compare case-insensitively.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
