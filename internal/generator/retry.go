package generator

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
)

// isTransient reports whether a model call failure is worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errNoJSON) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var lmErr *llmsdk.LanguageModelError
	if errors.As(err, &lmErr) {
		switch lmErr.Kind {
		case llmsdk.Transport:
			return true
		case llmsdk.StatusCode:
			return lmErr.Status == http.StatusTooManyRequests || lmErr.Status >= 500
		case llmsdk.InvalidInput, llmsdk.Unsupported, llmsdk.NotImplemented, llmsdk.Refusal:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection reset",
		"connection refused",
		"connection closed",
		"broken pipe",
		"tls handshake timeout",
		"unexpected eof",
		"server_error",
		"rate limit",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
