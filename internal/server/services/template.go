package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/consentkeeper/internal/common"
	"github.com/dmitrijs2005/consentkeeper/internal/logging"
	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
	"github.com/dmitrijs2005/consentkeeper/internal/server/repositories/repomanager"
)

// UserResolver maps an authenticated email to a user.
type UserResolver interface {
	ResolveByEmail(ctx context.Context, email string) (*models.User, error)
}

// TemplateInput carries the editable fields of a template. A nil IsActive
// means "not supplied": Create treats it as true, Update keeps the stored
// value.
type TemplateInput struct {
	Title       string
	Description string
	Content     string
	IsActive    *bool
}

func (in TemplateInput) validate() error {
	var missing []string
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(in.Content) == "" {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s is required", common.ErrorValidation, strings.Join(missing, " and "))
	}
	return nil
}

// TemplateService manages the template lifecycle. Role checks happen before
// it is called.
type TemplateService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	users       UserResolver
	logger      logging.Logger
}

func NewTemplateService(db *sql.DB, m repomanager.RepositoryManager, users UserResolver, logger logging.Logger) *TemplateService {
	return &TemplateService{
		db:          db,
		repomanager: m,
		users:       users,
		logger:      logger.With("module", "templates"),
	}
}

func (s *TemplateService) Create(ctx context.Context, in TemplateInput, creatorEmail string) (*models.ConsentTemplate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	creator, err := s.users.ResolveByEmail(ctx, creatorEmail)
	if err != nil {
		return nil, userLookupError(err)
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	t, err := s.repomanager.Templates(s.db).Create(ctx, &models.ConsentTemplate{
		Title:          in.Title,
		Description:    in.Description,
		Content:        in.Content,
		IsActive:       active,
		CreatedBy:      creator.ID,
		CreatedByEmail: creator.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating template: %w", err)
	}

	s.logger.Info(ctx, "template created", "template_id", t.ID, "active", t.IsActive, "created_by", creator.ID)
	return t, nil
}

// Update replaces title, description and content in place.
func (s *TemplateService) Update(ctx context.Context, id int64, in TemplateInput) (*models.ConsentTemplate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	t, err := s.repomanager.Templates(s.db).Update(ctx, id, in.Title, in.Description, in.Content, in.IsActive)
	if err != nil {
		return nil, templateLookupError(id, err)
	}

	s.logger.Info(ctx, "template updated", "template_id", t.ID, "active", t.IsActive)
	return t, nil
}

// SoftDelete deactivates the template. Repeating it is a no-op.
func (s *TemplateService) SoftDelete(ctx context.Context, id int64) error {
	if err := s.repomanager.Templates(s.db).Deactivate(ctx, id); err != nil {
		return templateLookupError(id, err)
	}
	s.logger.Info(ctx, "template deactivated", "template_id", id)
	return nil
}

func (s *TemplateService) GetByID(ctx context.Context, id int64) (*models.ConsentTemplate, error) {
	t, err := s.repomanager.Templates(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, templateLookupError(id, err)
	}
	return t, nil
}

func (s *TemplateService) ListAll(ctx context.Context) ([]*models.ConsentTemplate, error) {
	return s.list(ctx, false)
}

func (s *TemplateService) ListActive(ctx context.Context) ([]*models.ConsentTemplate, error) {
	return s.list(ctx, true)
}

func (s *TemplateService) list(ctx context.Context, activeOnly bool) ([]*models.ConsentTemplate, error) {
	ts, err := s.repomanager.Templates(s.db).List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("error listing templates: %w", err)
	}
	return ts, nil
}

func userLookupError(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: user not found", common.ErrorNotFound)
	}
	return fmt.Errorf("error resolving user: %w", err)
}

func templateLookupError(id int64, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: template not found with id: %d", common.ErrorNotFound, id)
	}
	return fmt.Errorf("error loading template %d: %w", id, err)
}
