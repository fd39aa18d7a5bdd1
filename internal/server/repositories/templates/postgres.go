// Package templates persists consent templates in PostgreSQL.
package templates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/consentkeeper/internal/common"
	"github.com/dmitrijs2005/consentkeeper/internal/dbx"
	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(s scanner) (*models.ConsentTemplate, error) {
	t := &models.ConsentTemplate{}
	err := s.Scan(&t.ID, &t.Title, &t.Description, &t.Content, &t.IsActive,
		&t.CreatedBy, &t.CreatedByEmail, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts the template and fills in ID and both timestamps.
func (r *PostgresRepository) Create(ctx context.Context, tmpl *models.ConsentTemplate) (*models.ConsentTemplate, error) {
	query :=
		`INSERT INTO consent_templates (title, description, content, is_active, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		tmpl.Title, tmpl.Description, tmpl.Content, tmpl.IsActive, tmpl.CreatedBy).
		Scan(&tmpl.ID, &tmpl.CreatedAt, &tmpl.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return tmpl, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.ConsentTemplate, error) {
	query :=
		`SELECT t.id, t.title, t.description, t.content, t.is_active,
		        t.created_by, u.email, t.created_at, t.updated_at
		 FROM consent_templates t JOIN users u ON u.id = t.created_by
		 WHERE t.id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByIDForShare(ctx context.Context, id int64) (*models.ConsentTemplate, error) {
	query :=
		`SELECT t.id, t.title, t.description, t.content, t.is_active,
		        t.created_by, u.email, t.created_at, t.updated_at
		 FROM consent_templates t JOIN users u ON u.id = t.created_by
		 WHERE t.id = $1
		 FOR SHARE OF t
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, id int64) (*models.ConsentTemplate, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id int64, title, description, content string, isActive *bool) (*models.ConsentTemplate, error) {
	query :=
		`UPDATE consent_templates
		 SET title = $2, description = $3, content = $4,
		     is_active = COALESCE($5, is_active), updated_at = now()
		 WHERE id = $1
		 RETURNING id, title, description, content, is_active, created_by,
		           (SELECT email FROM users WHERE users.id = consent_templates.created_by),
		           created_at, updated_at
		 `

	var active sql.NullBool
	if isActive != nil {
		active = sql.NullBool{Bool: *isActive, Valid: true}
	}

	t, err := scanTemplate(r.db.QueryRowContext(ctx, query, id, title, description, content, active))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// Deactivate clears is_active. Deactivating an inactive template matches the
// row without touching updated_at and is not an error.
func (r *PostgresRepository) Deactivate(ctx context.Context, id int64) error {
	query :=
		`UPDATE consent_templates
		 SET updated_at = CASE WHEN is_active THEN now() ELSE updated_at END,
		     is_active = FALSE
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// List returns templates in id order, optionally only the active ones.
func (r *PostgresRepository) List(ctx context.Context, activeOnly bool) ([]*models.ConsentTemplate, error) {
	query :=
		`SELECT t.id, t.title, t.description, t.content, t.is_active,
		        t.created_by, u.email, t.created_at, t.updated_at
		 FROM consent_templates t JOIN users u ON u.id = t.created_by
		 WHERE NOT $1 OR t.is_active
		 ORDER BY t.id
		 `

	rows, err := r.db.QueryContext(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to select templates: %w", err)
	}
	defer rows.Close()

	result := []*models.ConsentTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
