// Package consents persists signed consent records in PostgreSQL.
package consents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/consentkeeper/internal/common"
	"github.com/dmitrijs2005/consentkeeper/internal/dbx"
	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
)

const selectColumns = `SELECT id, template_id, user_id, signed_at, ip_address, status,
		        signature_hash, audit_log, content_hash
		 FROM consent_records`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.ConsentRecord, error) {
	rec := &models.ConsentRecord{}
	var ip sql.NullString
	var status string
	err := s.Scan(&rec.ID, &rec.TemplateID, &rec.UserID, &rec.SignedAt, &ip, &status,
		&rec.SignatureHash, &rec.AuditLog, &rec.ContentHash)
	if err != nil {
		return nil, err
	}
	rec.IPAddress = ip.String
	rec.Status = models.ConsentStatus(status)
	return rec, nil
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.ConsentRecord) (*models.ConsentRecord, error) {
	query :=
		`INSERT INTO consent_records
		   (template_id, user_id, signed_at, ip_address, status, signature_hash, audit_log, content_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id
		 `

	ip := sql.NullString{String: rec.IPAddress, Valid: rec.IPAddress != ""}

	err := r.db.QueryRowContext(ctx, query,
		rec.TemplateID, rec.UserID, rec.SignedAt, ip, string(rec.Status),
		rec.SignatureHash, rec.AuditLog, rec.ContentHash).Scan(&rec.ID)
	if err != nil {
		if constraint, ok := dbx.IsUniqueViolation(err); ok {
			return nil, fmt.Errorf("%w: %s", common.ErrorAlreadyExists, constraint)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

func (r *PostgresRepository) ExistsByUserAndTemplate(ctx context.Context, userID, templateID int64) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM consent_records WHERE user_id = $1 AND template_id = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, templateID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.ConsentRecord, error) {
	query := selectColumns + `
		 WHERE id = $1
		 `

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

// ListByUser returns the user's records in insertion order.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.ConsentRecord, error) {
	return r.list(ctx, selectColumns+`
		 WHERE user_id = $1
		 ORDER BY id
		 `, userID)
}

func (r *PostgresRepository) ListByTemplate(ctx context.Context, templateID int64) ([]*models.ConsentRecord, error) {
	return r.list(ctx, selectColumns+`
		 WHERE template_id = $1
		 ORDER BY id
		 `, templateID)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.ConsentRecord, error) {
	return r.list(ctx, selectColumns+`
		 ORDER BY id
		 `)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.ConsentRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select consent records: %w", err)
	}
	defer rows.Close()

	result := []*models.ConsentRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
