package eth

import (
	"net/http"
	"strings"
	"time"
)

// NewProvider constructs a JSON-RPC Provider for the given endpoint and wraps
// it with a rate limiter. Validation stays in NewHTTPProvider (after trimming
// whitespace) so there is a single source of truth.
func NewProvider(endpoint string, rateLimit int, retries int, backoff time.Duration) (Provider, error) {
	base, err := NewHTTPProvider(strings.TrimSpace(endpoint), &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		return nil, err
	}
	if hp, ok := base.(*httpProvider); ok {
		if retries > 0 {
			hp.maxRetries = retries
		}
		if backoff > 0 {
			hp.backoffBase = backoff
		}
	}
	return WrapWithLimiter(base, NewLimiter(rateLimit)), nil
}
