package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/consentkeeper/internal/common"
	"github.com/dmitrijs2005/consentkeeper/internal/dbx"
	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
	"github.com/dmitrijs2005/consentkeeper/internal/server/repositories/consents"
	"github.com/dmitrijs2005/consentkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/consentkeeper/internal/server/repositories/templates"
	"github.com/dmitrijs2005/consentkeeper/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

// --- users ---

type fakeUsersRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []*models.User

	createErr error
	getErr    error
	existsErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, r := range f.rows {
		if strings.EqualFold(r.Email, u.Email) {
			return nil, common.ErrorAlreadyExists
		}
	}
	f.nextID++
	cp := *u
	cp.ID = f.nextID
	cp.CreatedAt = time.Now()
	f.rows = append(f.rows, &cp)
	out := cp
	return &out, nil
}

func (f *fakeUsersRepo) find(match func(*models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, r := range f.rows {
		if match(r) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (f *fakeUsersRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUsersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, err := f.GetUserByEmail(ctx, email)
	return err == nil, nil
}

// ResolveByEmail lets the users fake stand in for the identity store.
func (f *fakeUsersRepo) ResolveByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.GetUserByEmail(ctx, email)
}

func (f *fakeUsersRepo) add(email string, role models.Role) *models.User {
	u, err := f.Create(context.Background(), &models.User{Email: email, Name: strings.Split(email, "@")[0], Role: role})
	if err != nil {
		panic(err)
	}
	return u
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	live     map[string]*models.RefreshToken
	consumed []string

	consumeErr error
	purgeErr   error
	issueErr   error
	purged     []int64
	created    []int64
}

func (f *fakeRefreshRepo) seed(token string, userID int64, expires time.Time) {
	if f.live == nil {
		f.live = map[string]*models.RefreshToken{}
	}
	f.live[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: expires}
}

func (f *fakeRefreshRepo) Issue(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	if f.issueErr != nil {
		return f.issueErr
	}
	f.seed(token, userID, expiresAt)
	f.created = append(f.created, userID)
	return nil
}

func (f *fakeRefreshRepo) Consume(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	rt, ok := f.live[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.live, token)
	f.consumed = append(f.consumed, token)
	return rt, nil
}

func (f *fakeRefreshRepo) PurgeExpired(ctx context.Context, userID int64, now time.Time) (int64, error) {
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	f.purged = append(f.purged, userID)
	return 0, nil
}

// --- templates ---

type fakeTemplatesRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.ConsentTemplate

	createErr error
	listErr   error
	shareGets int
}

func newFakeTemplatesRepo() *fakeTemplatesRepo {
	return &fakeTemplatesRepo{rows: map[int64]*models.ConsentTemplate{}}
}

func (f *fakeTemplatesRepo) Create(ctx context.Context, t *models.ConsentTemplate) (*models.ConsentTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	now := time.Now().UTC()
	cp := *t
	cp.ID, cp.CreatedAt, cp.UpdatedAt = f.nextID, now, now
	f.rows[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeTemplatesRepo) GetByID(ctx context.Context, id int64) (*models.ConsentTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTemplatesRepo) GetByIDForShare(ctx context.Context, id int64) (*models.ConsentTemplate, error) {
	f.mu.Lock()
	f.shareGets++
	f.mu.Unlock()
	return f.GetByID(ctx, id)
}

func (f *fakeTemplatesRepo) Update(ctx context.Context, id int64, title, description, content string, isActive *bool) (*models.ConsentTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	t.Title, t.Description, t.Content = title, description, content
	if isActive != nil {
		t.IsActive = *isActive
	}
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	return &cp, nil
}

func (f *fakeTemplatesRepo) Deactivate(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	t.IsActive = false
	return nil
}

func (f *fakeTemplatesRepo) List(ctx context.Context, activeOnly bool) ([]*models.ConsentTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []*models.ConsentTemplate{}
	for id := int64(1); id <= f.nextID; id++ {
		t, ok := f.rows[id]
		if !ok || (activeOnly && !t.IsActive) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeTemplatesRepo) add(title string, active bool) *models.ConsentTemplate {
	t, _ := f.Create(context.Background(), &models.ConsentTemplate{Title: title, Content: title + " body", IsActive: active, CreatedBy: 1})
	return t
}

// --- consents ---

// fakeConsentsRepo enforces the same unique keys as the consent_records table.
type fakeConsentsRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []*models.ConsentRecord

	// beforeExists runs outside the lock on every duplicate check.
	beforeExists func()
	existsErr    error
	createErr    error
}

func (f *fakeConsentsRepo) Create(ctx context.Context, rec *models.ConsentRecord) (*models.ConsentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, r := range f.rows {
		if r.UserID == rec.UserID && r.TemplateID == rec.TemplateID {
			return nil, fmt.Errorf("%w: consent_records_user_template_key", common.ErrorAlreadyExists)
		}
		if r.SignatureHash == rec.SignatureHash {
			return nil, fmt.Errorf("%w: consent_records_signature_hash_key", common.ErrorAlreadyExists)
		}
	}
	f.nextID++
	cp := *rec
	cp.ID = f.nextID
	f.rows = append(f.rows, &cp)
	out := cp
	return &out, nil
}

func (f *fakeConsentsRepo) ExistsByUserAndTemplate(ctx context.Context, userID, templateID int64) (bool, error) {
	if f.beforeExists != nil {
		f.beforeExists()
	}
	if f.existsErr != nil {
		return false, f.existsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.UserID == userID && r.TemplateID == templateID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeConsentsRepo) GetByID(ctx context.Context, id int64) (*models.ConsentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeConsentsRepo) filter(keep func(*models.ConsentRecord) bool) []*models.ConsentRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.ConsentRecord{}
	for _, r := range f.rows {
		if keep(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out
}

func (f *fakeConsentsRepo) ListByUser(ctx context.Context, userID int64) ([]*models.ConsentRecord, error) {
	return f.filter(func(r *models.ConsentRecord) bool { return r.UserID == userID }), nil
}

func (f *fakeConsentsRepo) ListByTemplate(ctx context.Context, templateID int64) ([]*models.ConsentRecord, error) {
	return f.filter(func(r *models.ConsentRecord) bool { return r.TemplateID == templateID }), nil
}

func (f *fakeConsentsRepo) ListAll(ctx context.Context) ([]*models.ConsentRecord, error) {
	return f.filter(func(*models.ConsentRecord) bool { return true }), nil
}

func (f *fakeConsentsRepo) count(userID, templateID int64) int {
	return len(f.filter(func(r *models.ConsentRecord) bool { return r.UserID == userID && r.TemplateID == templateID }))
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	t *fakeTemplatesRepo
	c *fakeConsentsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: &fakeUsersRepo{},
		r: &fakeRefreshRepo{},
		t: newFakeTemplatesRepo(),
		c: &fakeConsentsRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Templates(db dbx.DBTX) templates.Repository         { return m.t }
func (m *fakeRepoManager) Consents(db dbx.DBTX) consents.Repository           { return m.c }
