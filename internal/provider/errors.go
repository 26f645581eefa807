package provider

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
)

var (
	// ErrProvider covers every failed embedding or generation call:
	// unreachable endpoint, auth failure, content-policy rejection, malformed output.
	ErrProvider = errors.New("model provider error")

	// ErrRateLimited is a provider error caused by HTTP 429.
	ErrRateLimited = fmt.Errorf("%w: rate limited", ErrProvider)

	// ErrUnauthorized is a provider error caused by HTTP 401/403.
	ErrUnauthorized = fmt.Errorf("%w: unauthorized", ErrProvider)
)

// Classify wraps err from the OpenAI SDK into the provider taxonomy.
// The original error stays reachable through errors.As.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w: %w", op, ErrRateLimited, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrProvider, err)
}

// IsRateLimited reports whether err was caused by provider rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
