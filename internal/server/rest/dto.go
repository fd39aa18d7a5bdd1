package rest

import (
	"time"

	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
	"github.com/dmitrijs2005/consentkeeper/internal/server/services"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
}

func newAuthResponse(p *services.TokenPair) authResponse {
	return authResponse{
		Token:        p.AccessToken,
		RefreshToken: p.RefreshToken,
		Email:        p.Email,
		Name:         p.Name,
		Role:         string(p.Role),
	}
}

type templateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	IsActive    *bool  `json:"isActive"`
}

func (r templateRequest) input() services.TemplateInput {
	return services.TemplateInput{
		Title:       r.Title,
		Description: r.Description,
		Content:     r.Content,
		IsActive:    r.IsActive,
	}
}

type templateResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Content     string    `json:"content"`
	IsActive    bool      `json:"isActive"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newTemplateResponse(t *models.ConsentTemplate) templateResponse {
	r := templateResponse{
		ID:        t.ID,
		Title:     t.Title,
		Content:   t.Content,
		IsActive:  t.IsActive,
		CreatedBy: t.CreatedByEmail,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.Description != "" {
		r.Description = &t.Description
	}
	return r
}

func newTemplateResponses(ts []*models.ConsentTemplate) []templateResponse {
	out := make([]templateResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, newTemplateResponse(t))
	}
	return out
}

type consentResponse struct {
	ID            int64     `json:"id"`
	TemplateID    int64     `json:"templateId"`
	UserID        int64     `json:"userId"`
	SignedAt      time.Time `json:"signedAt"`
	IPAddress     *string   `json:"ipAddress"`
	Status        string    `json:"status"`
	SignatureHash string    `json:"signatureHash"`
	AuditLog      string    `json:"auditLog"`
	ContentHash   string    `json:"contentHash"`
}

func newConsentResponse(r *models.ConsentRecord) consentResponse {
	out := consentResponse{
		ID:            r.ID,
		TemplateID:    r.TemplateID,
		UserID:        r.UserID,
		SignedAt:      r.SignedAt,
		Status:        string(r.Status),
		SignatureHash: r.SignatureHash,
		AuditLog:      r.AuditLog,
		ContentHash:   r.ContentHash,
	}
	if r.IPAddress != "" {
		out.IPAddress = &r.IPAddress
	}
	return out
}

func newConsentResponses(rs []*models.ConsentRecord) []consentResponse {
	out := make([]consentResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, newConsentResponse(r))
	}
	return out
}

type verificationResponse struct {
	Consent          consentResponse `json:"consent"`
	FingerprintValid bool            `json:"fingerprintValid"`
	ContentUnchanged bool            `json:"contentUnchanged"`
}
