package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/consentkeeper/internal/common"
	"github.com/dmitrijs2005/consentkeeper/internal/dbx"
	"github.com/dmitrijs2005/consentkeeper/internal/logging"
	"github.com/dmitrijs2005/consentkeeper/internal/server/archive"
	"github.com/dmitrijs2005/consentkeeper/internal/server/evidence"
	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
	"github.com/dmitrijs2005/consentkeeper/internal/server/repositories/repomanager"
)

// NetworkContext is the best-effort origin of a request. Either field may be
// empty.
type NetworkContext struct {
	Address   string
	UserAgent string
}

// Verification is the outcome of re-checking a stored record.
type Verification struct {
	Record *models.ConsentRecord
	// FingerprintValid reports whether the stored signature hash matches the
	// record's user, template and signing time.
	FingerprintValid bool
	// ContentUnchanged reports whether the template body still hashes to the
	// value pinned at signing time.
	ContentUnchanged bool
}

var errAlreadySigned = fmt.Errorf("%w: user has already signed this template", common.ErrorConflict)

// ConsentService records signatures and answers queries over the ledger.
type ConsentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	users       UserResolver
	archive     archive.Archive
	logger      logging.Logger
	now         func() time.Time
}

func NewConsentService(db *sql.DB, m repomanager.RepositoryManager, users UserResolver, a archive.Archive, logger logging.Logger) *ConsentService {
	return &ConsentService{
		db:          db,
		repomanager: m,
		users:       users,
		archive:     a,
		logger:      logger.With("module", "consents"),
		now:         time.Now,
	}
}

// Sign records that the user behind email agreed to the template. The
// template read, the active check, the duplicate check and the insert share
// one transaction; the template row stays share-locked until commit, and the
// ledger's unique constraints back the duplicate check under concurrency.
func (s *ConsentService) Sign(ctx context.Context, templateID int64, email string, nc NetworkContext) (*models.ConsentRecord, error) {
	user, err := s.users.ResolveByEmail(ctx, email)
	if err != nil {
		return nil, userLookupError(err)
	}

	var rec *models.ConsentRecord
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		tmpl, err := s.repomanager.Templates(tx).GetByIDForShare(ctx, templateID)
		if err != nil {
			return templateLookupError(templateID, err)
		}
		if !tmpl.IsActive {
			return fmt.Errorf("%w: cannot sign an inactive template", common.ErrorInvalidState)
		}

		ledger := s.repomanager.Consents(tx)

		exists, err := ledger.ExistsByUserAndTemplate(ctx, user.ID, tmpl.ID)
		if err != nil {
			return fmt.Errorf("error checking existing consent: %w", err)
		}
		if exists {
			return errAlreadySigned
		}

		signedAt := evidence.Instant(s.now())
		auditLog, err := evidence.NewAuditEntry(nc.UserAgent, nc.Address, signedAt, evidence.ActionSigned).Encode()
		if err != nil {
			return err
		}

		rec, err = ledger.Create(ctx, models.NewSignedRecord(
			tmpl.ID,
			user.ID,
			signedAt,
			nc.Address,
			evidence.Fingerprint(user.ID, tmpl.ID, signedAt),
			auditLog,
			evidence.ContentHash(tmpl.Content),
		))
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return errAlreadySigned
			}
			return fmt.Errorf("error saving consent: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "consent signed", "consent_id", rec.ID, "template_id", rec.TemplateID, "user_id", rec.UserID)

	if err := s.archive.Store(ctx, rec); err != nil {
		s.logger.Warn(ctx, "consent archive failed", "consent_id", rec.ID, "error", err)
	}

	return rec, nil
}

// ListMine returns the caller's own records in signing order.
func (s *ConsentService) ListMine(ctx context.Context, email string) ([]*models.ConsentRecord, error) {
	user, err := s.users.ResolveByEmail(ctx, email)
	if err != nil {
		return nil, userLookupError(err)
	}
	recs, err := s.repomanager.Consents(s.db).ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing consents: %w", err)
	}
	return recs, nil
}

func (s *ConsentService) ListAll(ctx context.Context) ([]*models.ConsentRecord, error) {
	recs, err := s.repomanager.Consents(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing consents: %w", err)
	}
	return recs, nil
}

// ListByTemplate returns every record for one template. An unknown template
// is NotFound rather than an empty list.
func (s *ConsentService) ListByTemplate(ctx context.Context, templateID int64) ([]*models.ConsentRecord, error) {
	if _, err := s.repomanager.Templates(s.db).GetByID(ctx, templateID); err != nil {
		return nil, templateLookupError(templateID, err)
	}
	recs, err := s.repomanager.Consents(s.db).ListByTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("error listing consents: %w", err)
	}
	return recs, nil
}

// Verify recomputes the fingerprint of a stored record and compares the
// pinned content hash with the template's current body.
func (s *ConsentService) Verify(ctx context.Context, recordID int64) (*Verification, error) {
	rec, err := s.repomanager.Consents(s.db).GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: consent not found with id: %d", common.ErrorNotFound, recordID)
		}
		return nil, fmt.Errorf("error loading consent %d: %w", recordID, err)
	}

	tmpl, err := s.repomanager.Templates(s.db).GetByID(ctx, rec.TemplateID)
	if err != nil {
		return nil, templateLookupError(rec.TemplateID, err)
	}

	v := &Verification{
		Record:           rec,
		FingerprintValid: evidence.Fingerprint(rec.UserID, rec.TemplateID, rec.SignedAt) == rec.SignatureHash,
		ContentUnchanged: evidence.ContentHash(tmpl.Content) == rec.ContentHash,
	}
	if !v.FingerprintValid {
		s.logger.Warn(ctx, "consent fingerprint mismatch", "consent_id", rec.ID)
	}
	return v, nil
}
