// internal/domain/cart/errors.go
package cart

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidVariantRef means the caller-supplied variant ref has no
	// extractable numeric id. No upstream call is made.
	ErrInvalidVariantRef = errors.New("cart: invalid variant ref")

	// ErrUpstreamUnavailable covers network failures and upstream 5xx.
	// Retryable for reads only; AddLine is never auto-retried because the
	// upstream does not deduplicate lines.
	ErrUpstreamUnavailable = errors.New("cart: upstream unavailable")
)

// RejectedError is a permanent upstream rejection for this attempt
// (sold out, invalid quantity). Reason carries the upstream's
// human-readable message; it is logged but never shown raw to the shopper.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("cart: upstream rejected: %s", e.Reason)
}

// IsRejected reports whether err is an upstream rejection and returns the
// upstream reason if so.
func IsRejected(err error) (string, bool) {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}
