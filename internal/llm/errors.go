package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Errors reported by clients. Provider errors are wrapped so the original
// cause stays reachable with errors.As.
var (
	// ErrConnection means the provider could not be reached.
	ErrConnection = errors.New("failed to connect to the LLM provider; check BASE_URL and the network")

	// ErrInvalidAPIKey means the provider rejected the credentials.
	ErrInvalidAPIKey = errors.New("the LLM provider rejected the API key")

	// ErrRateLimited means the provider throttled the request.
	ErrRateLimited = errors.New("the LLM provider rate limited the request; try again later")

	// ErrEmptyResponse means the reply carried no text.
	ErrEmptyResponse = errors.New("the LLM provider returned no usable response")

	// ErrUnknownProvider is returned by New for unsupported provider names.
	ErrUnknownProvider = errors.New("unknown LLM provider")
)

// classify maps a provider error onto the package sentinels.
// status is the HTTP status when the provider reported one, or zero.
func classify(provider string, status int, err error) error {
	if err == nil {
		return nil
	}

	var sentinel error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		sentinel = ErrInvalidAPIKey
	case status == http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	case status == 0 && isConnectionError(err):
		sentinel = ErrConnection
	default:
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "api key"):
			sentinel = ErrInvalidAPIKey
		case strings.Contains(msg, "too many requests"):
			sentinel = ErrRateLimited
		}
	}

	if sentinel == nil {
		return fmt.Errorf("%s: %w", provider, err)
	}
	return fmt.Errorf("%s: %w: %w", provider, sentinel, err)
}

func isConnectionError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connect")
}
