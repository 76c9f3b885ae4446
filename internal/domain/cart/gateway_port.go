// internal/domain/cart/gateway_port.go
package cart

import (
	"context"
	"net/http"
	"strings"
)

// Result is what a gateway operation hands back: the canonical cart state,
// any Set-Cookie headers the upstream issued (the host page's next request
// must carry the updated cart session; tokens are never minted locally),
// and optional theme section fragments.
type Result struct {
	Cart       *State
	SetCookies []string
	Sections   Sections
}

// Gateway normalizes and executes cart operations against the upstream
// commerce backend.
//
// AddLine is not idempotent at the upstream boundary: calling it twice adds
// two lines. Implementations must not auto-retry it on ambiguous failures;
// callers re-fetch via GetCart to learn whether the mutation applied.
type Gateway interface {
	// AddLine adds quantity of the referenced variant to the shopper's
	// cart. sessionCookies is the raw Cookie header from the host page.
	AddLine(ctx context.Context, variantRef string, quantity int, sessionCookies string) (*Result, error)

	// GetCart reads current cart state. Pure read; safe to retry.
	GetCart(ctx context.Context, sessionCookies string) (*Result, error)

	// CreateCart creates a token-addressed cart on the GraphQL path for
	// callers that have no cart cookie yet.
	CreateCart(ctx context.Context) (*Result, error)
}

// WriteSetCookies forwards upstream Set-Cookie values onto a response.
func WriteSetCookies(h http.Header, cookies []string) {
	for _, c := range cookies {
		if c != "" {
			h.Add("Set-Cookie", c)
		}
	}
}

// MergeCookies appends freshly issued Set-Cookie pairs onto an inbound
// Cookie header so a follow-up request sees the updated cart session.
// Attributes (Path, Secure, ...) are stripped; only name=value is carried.
func MergeCookies(cookieHeader string, setCookies []string) string {
	merged := strings.TrimSpace(cookieHeader)
	for _, sc := range setCookies {
		pair, _, _ := strings.Cut(sc, ";")
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		if merged == "" {
			merged = pair
		} else {
			merged += "; " + pair
		}
	}
	return merged
}
