package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// shouldRetry reports whether a failed idempotent call is worth one more attempt.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var tErr *TransportError
	if errors.As(err, &tErr) && tErr.StatusCode != 0 {
		switch tErr.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}
	if tErr != nil && tErr.Err != nil {
		inner := strings.ToLower(tErr.Err.Error())
		return strings.Contains(inner, "connection reset") ||
			strings.Contains(inner, "connection refused") ||
			strings.Contains(inner, "eof")
	}
	return false
}
