// Package rest exposes the consent services over HTTP/JSON.
package rest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/consentkeeper/internal/common"
	"github.com/dmitrijs2005/consentkeeper/internal/netx"
	"github.com/dmitrijs2005/consentkeeper/internal/server/auth"
	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
	"github.com/dmitrijs2005/consentkeeper/internal/server/rest/middleware"
	"github.com/dmitrijs2005/consentkeeper/internal/server/rest/presenter"
	"github.com/dmitrijs2005/consentkeeper/internal/server/services"
	"github.com/labstack/echo/v4"
)

type CredentialService interface {
	Register(ctx context.Context, name, email, password string) (*services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type TemplateService interface {
	Create(ctx context.Context, in services.TemplateInput, creatorEmail string) (*models.ConsentTemplate, error)
	Update(ctx context.Context, id int64, in services.TemplateInput) (*models.ConsentTemplate, error)
	SoftDelete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.ConsentTemplate, error)
	ListAll(ctx context.Context) ([]*models.ConsentTemplate, error)
	ListActive(ctx context.Context) ([]*models.ConsentTemplate, error)
}

type ConsentService interface {
	Sign(ctx context.Context, templateID int64, email string, nc services.NetworkContext) (*models.ConsentRecord, error)
	ListMine(ctx context.Context, email string) ([]*models.ConsentRecord, error)
	ListAll(ctx context.Context) ([]*models.ConsentRecord, error)
	ListByTemplate(ctx context.Context, templateID int64) ([]*models.ConsentRecord, error)
	Verify(ctx context.Context, recordID int64) (*services.Verification, error)
}

type Handler struct {
	credentials CredentialService
	templates   TemplateService
	consents    ConsentService
	auth        *middleware.AuthMiddleware
}

func NewHandler(cs CredentialService, ts TemplateService, ns ConsentService, am *middleware.AuthMiddleware) *Handler {
	return &Handler{
		credentials: cs,
		templates:   ts,
		consents:    ns,
		auth:        am,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/refresh", h.Refresh)

	templates := api.Group("/templates", h.auth.IdentifyPrincipal)
	templates.GET("", h.ListTemplates, middleware.RequireCapability(auth.OpViewTemplates))
	templates.GET("/:id", h.GetTemplate, middleware.RequireCapability(auth.OpViewTemplates))
	templates.POST("", h.CreateTemplate, middleware.RequireCapability(auth.OpManageTemplates))
	templates.PUT("/:id", h.UpdateTemplate, middleware.RequireCapability(auth.OpManageTemplates))
	templates.DELETE("/:id", h.DeleteTemplate, middleware.RequireCapability(auth.OpManageTemplates))
	templates.GET("/:id/consents", h.ListTemplateConsents, middleware.RequireCapability(auth.OpListAllConsents))

	consents := api.Group("/consents", h.auth.IdentifyPrincipal)
	consents.POST("/:id/sign", h.Sign, middleware.RequireCapability(auth.OpSignConsent))
	consents.GET("/my", h.ListMyConsents, middleware.RequireCapability(auth.OpListOwnConsents))
	consents.GET("/all", h.ListAllConsents, middleware.RequireCapability(auth.OpListAllConsents))
	consents.GET("/:id/verify", h.VerifyConsent, middleware.RequireCapability(auth.OpListAllConsents))
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	pair, err := h.credentials.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return presenter.Created(c, newAuthResponse(pair))
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	pair, err := h.credentials.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return presenter.OK(c, newAuthResponse(pair))
}

func (h *Handler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.RefreshToken == "" {
		return fmt.Errorf("%w: refreshToken is required", common.ErrorValidation)
	}
	pair, err := h.credentials.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return presenter.OK(c, newAuthResponse(pair))
}

// ListTemplates shows administrators every template and everyone else only
// the active ones.
func (h *Handler) ListTemplates(c echo.Context) error {
	ctx := c.Request().Context()
	p, _ := middleware.PrincipalFrom(ctx)

	var (
		ts  []*models.ConsentTemplate
		err error
	)
	if p.Role == models.RoleAdmin {
		ts, err = h.templates.ListAll(ctx)
	} else {
		ts, err = h.templates.ListActive(ctx)
	}
	if err != nil {
		return err
	}
	return presenter.OK(c, newTemplateResponses(ts))
}

func (h *Handler) GetTemplate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := h.templates.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return presenter.OK(c, newTemplateResponse(t))
}

func (h *Handler) CreateTemplate(c echo.Context) error {
	var req templateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, _ := middleware.PrincipalFrom(ctx)
	t, err := h.templates.Create(ctx, req.input(), p.Email)
	if err != nil {
		return err
	}
	return presenter.Created(c, newTemplateResponse(t))
}

func (h *Handler) UpdateTemplate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req templateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	t, err := h.templates.Update(c.Request().Context(), id, req.input())
	if err != nil {
		return err
	}
	return presenter.OK(c, newTemplateResponse(t))
}

func (h *Handler) DeleteTemplate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.templates.SoftDelete(c.Request().Context(), id); err != nil {
		return err
	}
	return presenter.NoContent(c)
}

func (h *Handler) ListTemplateConsents(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	rs, err := h.consents.ListByTemplate(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return presenter.OK(c, newConsentResponses(rs))
}

func (h *Handler) Sign(c echo.Context) error {
	templateID, err := pathID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, _ := middleware.PrincipalFrom(ctx)
	nc := services.NetworkContext{
		Address:   netx.ClientAddress(c.Request()),
		UserAgent: c.Request().UserAgent(),
	}
	r, err := h.consents.Sign(ctx, templateID, p.Email, nc)
	if err != nil {
		return err
	}
	return presenter.Created(c, newConsentResponse(r))
}

func (h *Handler) ListMyConsents(c echo.Context) error {
	ctx := c.Request().Context()
	p, _ := middleware.PrincipalFrom(ctx)
	rs, err := h.consents.ListMine(ctx, p.Email)
	if err != nil {
		return err
	}
	return presenter.OK(c, newConsentResponses(rs))
}

func (h *Handler) ListAllConsents(c echo.Context) error {
	rs, err := h.consents.ListAll(c.Request().Context())
	if err != nil {
		return err
	}
	return presenter.OK(c, newConsentResponses(rs))
}

func (h *Handler) VerifyConsent(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	v, err := h.consents.Verify(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return presenter.OK(c, verificationResponse{
		Consent:          newConsentResponse(v.Record),
		FingerprintValid: v.FingerprintValid,
		ContentUnchanged: v.ContentUnchanged,
	})
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrorValidation)
	}
	return nil
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", common.ErrorValidation, c.Param("id"))
	}
	// ids start at 1, so anything lower names nothing
	if id <= 0 {
		return 0, fmt.Errorf("%w: no record with id: %d", common.ErrorNotFound, id)
	}
	return id, nil
}
