package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"signaware-client/internal/gateway"
	"signaware-client/internal/session"
	"signaware-client/internal/shared/server/respond"
)

// authStatus maps an authentication failure kind to an HTTP status.
func authStatus(kind session.ErrorKind) int {
	switch kind {
	case session.KindInvalidCredentials, session.KindUnauthenticated:
		return http.StatusUnauthorized
	case session.KindDuplicateAccount:
		return http.StatusConflict
	case session.KindProviderCancelled:
		return http.StatusBadRequest
	case session.KindProviderBlocked, session.KindProviderUnauthorized:
		return http.StatusForbidden
	case session.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func authError(c *gin.Context, err error) {
	kind := session.KindOf(err)
	respond.Error(c, authStatus(kind), string(kind), err.Error(), nil)
}

// gatewayError reports a backend failure. The backend's message is kept
// verbatim; its status is passed through for 4xx responses.
func gatewayError(c *gin.Context, err error) {
	if gateway.IsValidation(err) {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	status := gateway.StatusCode(err)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		respond.Error(c, status, "unauthenticated", err.Error(), nil)
	case status >= 400 && status < 500:
		respond.Error(c, status, "backend_rejected", err.Error(), nil)
	case c.Request.Context().Err() != nil:
		respond.Error(c, http.StatusRequestTimeout, "cancelled", err.Error(), nil)
	default:
		respond.Error(c, http.StatusBadGateway, "backend_unavailable", err.Error(), map[string]any{"status": status})
	}
}
