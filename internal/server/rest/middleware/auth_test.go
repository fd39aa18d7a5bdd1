package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/consentkeeper/internal/common"
	"github.com/dmitrijs2005/consentkeeper/internal/server/auth"
	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "s3cret"

func newContext(header string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// chain runs IdentifyPrincipal followed by RequireCapability(op) and reports
// the principal seen by the final handler.
func chain(t *testing.T, header string, op auth.Operation) (Principal, bool, error) {
	t.Helper()
	var (
		seen   Principal
		called bool
	)
	final := func(c echo.Context) error {
		called = true
		seen, _ = PrincipalFrom(c.Request().Context())
		return nil
	}
	c, _ := newContext(header)
	m := NewAuthMiddleware(secret)
	err := m.IdentifyPrincipal(RequireCapability(op)(final))(c)
	return seen, called, err
}

func bearer(t *testing.T, email string, role models.Role, validity time.Duration) string {
	t.Helper()
	tok, err := auth.GenerateToken(email, role, []byte(secret), validity)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestIdentifyPrincipal_StoresClaims(t *testing.T) {
	p, called, err := chain(t, bearer(t, "ann@example.com", models.RoleUser, time.Minute), auth.OpSignConsent)

	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, Principal{Email: "ann@example.com", Role: models.RoleUser}, p)
}

func TestRequireCapability_Anonymous(t *testing.T) {
	_, called, err := chain(t, "", auth.OpViewTemplates)

	assert.False(t, called)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRequireCapability_ReportsTokenError(t *testing.T) {
	_, called, err := chain(t, bearer(t, "ann@example.com", models.RoleUser, -time.Minute), auth.OpViewTemplates)

	assert.False(t, called)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestRequireCapability_Denied(t *testing.T) {
	tests := []struct {
		name string
		role models.Role
		op   auth.Operation
	}{
		{"admin cannot sign", models.RoleAdmin, auth.OpSignConsent},
		{"user cannot manage templates", models.RoleUser, auth.OpManageTemplates},
		{"user cannot list all consents", models.RoleUser, auth.OpListAllConsents},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, called, err := chain(t, bearer(t, "x@example.com", tt.role, time.Minute), tt.op)
			assert.False(t, called)
			assert.ErrorIs(t, err, common.ErrorForbidden)
		})
	}
}

func TestIdentifyPrincipal_IgnoresNonBearer(t *testing.T) {
	c, _ := newContext("Token abc")
	var ok bool
	err := NewAuthMiddleware(secret).IdentifyPrincipal(func(c echo.Context) error {
		_, ok = PrincipalFrom(c.Request().Context())
		return nil
	})(c)

	require.NoError(t, err)
	assert.False(t, ok)
}
