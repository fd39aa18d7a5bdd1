package presenter

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/consentkeeper/internal/common"
	"github.com/labstack/echo/v4"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
	RequestID string    `json:"request_id"`
}

type kind struct {
	target error
	status int
}

var kinds = []kind{
	{common.ErrorValidation, http.StatusBadRequest},
	{common.ErrorInvalidState, http.StatusBadRequest},
	{common.ErrorNotFound, http.StatusNotFound},
	{common.ErrorConflict, http.StatusConflict},
	{common.ErrorUnauthorized, http.StatusUnauthorized},
	{common.ErrInvalidToken, http.StatusUnauthorized},
	{common.ErrTokenExpired, http.StatusUnauthorized},
	{common.ErrRefreshTokenExpired, http.StatusUnauthorized},
	{common.ErrorForbidden, http.StatusForbidden},
}

const internalMessage = "an unexpected error occurred"

// StatusFor maps err to an HTTP status and a client-facing message. Errors of
// no known kind become 500 and their text is not exposed.
func StatusFor(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	}
	for _, k := range kinds {
		if errors.Is(err, k.target) {
			return k.status, message(err, k.target)
		}
	}
	return http.StatusInternalServerError, internalMessage
}

// message drops the leading sentinel text so "not found: template not found
// with id: 3" reads "template not found with id: 3".
func message(err, target error) string {
	msg := err.Error()
	if trimmed := strings.TrimPrefix(msg, target.Error()+": "); trimmed != "" {
		return trimmed
	}
	return msg
}

// Error writes err as an ErrorBody.
func Error(c echo.Context, err error) error {
	status, msg := StatusFor(err)
	return c.JSON(status, ErrorBody{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   msg,
		Path:      c.Request().URL.Path,
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
	})
}

func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func Created(c echo.Context, payload any) error {
	return c.JSON(http.StatusCreated, payload)
}

func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}
