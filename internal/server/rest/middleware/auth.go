// Package middleware holds the echo middleware that identifies the caller
// and gates routes by capability.
package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/consentkeeper/internal/common"
	"github.com/dmitrijs2005/consentkeeper/internal/server/auth"
	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("auth")

type ctxKey string

const principalCtxKey ctxKey = "principal"

// authErrorKey holds the token error seen by IdentifyPrincipal, if any.
const authErrorKey = "auth_error"

// Principal is the authenticated caller of a request.
type Principal struct {
	Email string
	Role  models.Role
}

// PrincipalFrom returns the principal stored by IdentifyPrincipal.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey).(Principal)
	return p, ok
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

type AuthMiddleware struct {
	secret []byte
}

func NewAuthMiddleware(secretKey string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secretKey)}
}

// IdentifyPrincipal reads a bearer token and, when it verifies, stores the
// principal in the request context. Requests without a valid token pass
// through anonymously; RequireCapability rejects them.
func (m *AuthMiddleware) IdentifyPrincipal(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.IdentifyPrincipal")
		defer span.End()

		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)

		if authHeader != "" {
			authType, token, ok := strings.Cut(authHeader, " ")
			switch {
			case !ok || token == "":
				span.RecordError(fmt.Errorf("invalid authentication header"))
			case authType != "Bearer":
				span.RecordError(fmt.Errorf("only Bearer is acceptable"))
			default:
				claims, err := auth.ParseToken(token, m.secret)
				if err != nil {
					span.RecordError(errors.Wrap(err, "AuthMiddleware.IdentifyPrincipal: auth.ParseToken failed"))
					c.Set(authErrorKey, err)
					break
				}
				ctx = WithPrincipal(ctx, Principal{Email: claims.Email, Role: claims.Role})
				span.SetAttributes(attribute.String("principal.email", claims.Email), attribute.String("principal.role", string(claims.Role)))
			}
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// RequireCapability rejects anonymous callers with 401 and callers whose role
// lacks op with 403.
func RequireCapability(op auth.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c.Request().Context())
			if !ok {
				if err, _ := c.Get(authErrorKey).(error); err != nil {
					return err
				}
				return fmt.Errorf("%w: full authentication is required to access this resource", common.ErrorUnauthorized)
			}
			if !auth.Allowed(p.Role, op) {
				return fmt.Errorf("%w: access denied", common.ErrorForbidden)
			}
			return next(c)
		}
	}
}
