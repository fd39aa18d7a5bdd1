package rest

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
	"github.com/dmitrijs2005/consentkeeper/internal/server/services"
)

var errBoom = errors.New("boom")

type fakeCredentials struct {
	pair *services.TokenPair
	err  error

	gotName, gotEmail, gotPassword, gotRefresh string
}

func (f *fakeCredentials) Register(_ context.Context, name, email, password string) (*services.TokenPair, error) {
	f.gotName, f.gotEmail, f.gotPassword = name, email, password
	return f.pair, f.err
}

func (f *fakeCredentials) Login(_ context.Context, email, password string) (*services.TokenPair, error) {
	f.gotEmail, f.gotPassword = email, password
	return f.pair, f.err
}

func (f *fakeCredentials) RefreshToken(_ context.Context, refreshToken string) (*services.TokenPair, error) {
	f.gotRefresh = refreshToken
	return f.pair, f.err
}

type fakeTemplates struct {
	template *models.ConsentTemplate
	list     []*models.ConsentTemplate
	err      error

	calls        []string
	gotID        int64
	gotInput     services.TemplateInput
	gotCreatorEm string
}

func (f *fakeTemplates) Create(_ context.Context, in services.TemplateInput, creatorEmail string) (*models.ConsentTemplate, error) {
	f.calls = append(f.calls, "Create")
	f.gotInput, f.gotCreatorEm = in, creatorEmail
	return f.template, f.err
}

func (f *fakeTemplates) Update(_ context.Context, id int64, in services.TemplateInput) (*models.ConsentTemplate, error) {
	f.calls = append(f.calls, "Update")
	f.gotID, f.gotInput = id, in
	return f.template, f.err
}

func (f *fakeTemplates) SoftDelete(_ context.Context, id int64) error {
	f.calls = append(f.calls, "SoftDelete")
	f.gotID = id
	return f.err
}

func (f *fakeTemplates) GetByID(_ context.Context, id int64) (*models.ConsentTemplate, error) {
	f.calls = append(f.calls, "GetByID")
	f.gotID = id
	return f.template, f.err
}

func (f *fakeTemplates) ListAll(context.Context) ([]*models.ConsentTemplate, error) {
	f.calls = append(f.calls, "ListAll")
	return f.list, f.err
}

func (f *fakeTemplates) ListActive(context.Context) ([]*models.ConsentTemplate, error) {
	f.calls = append(f.calls, "ListActive")
	return f.list, f.err
}

type fakeConsents struct {
	record       *models.ConsentRecord
	list         []*models.ConsentRecord
	verification *services.Verification
	err          error

	calls    []string
	gotID    int64
	gotEmail string
	gotNC    services.NetworkContext
}

func (f *fakeConsents) Sign(_ context.Context, templateID int64, email string, nc services.NetworkContext) (*models.ConsentRecord, error) {
	f.calls = append(f.calls, "Sign")
	f.gotID, f.gotEmail, f.gotNC = templateID, email, nc
	return f.record, f.err
}

func (f *fakeConsents) ListMine(_ context.Context, email string) ([]*models.ConsentRecord, error) {
	f.calls = append(f.calls, "ListMine")
	f.gotEmail = email
	return f.list, f.err
}

func (f *fakeConsents) ListAll(context.Context) ([]*models.ConsentRecord, error) {
	f.calls = append(f.calls, "ListAll")
	return f.list, f.err
}

func (f *fakeConsents) ListByTemplate(_ context.Context, templateID int64) ([]*models.ConsentRecord, error) {
	f.calls = append(f.calls, "ListByTemplate")
	f.gotID = templateID
	return f.list, f.err
}

func (f *fakeConsents) Verify(_ context.Context, recordID int64) (*services.Verification, error) {
	f.calls = append(f.calls, "Verify")
	f.gotID = recordID
	return f.verification, f.err
}
