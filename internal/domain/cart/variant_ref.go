// internal/domain/cart/variant_ref.go
package cart

import (
	"strconv"
	"strings"
)

// NormalizeVariantRef reduces a variant ref to the numeric id the AJAX
// cart endpoint expects. Refs arrive in two shapes:
//
//   - raw numeric:  "987"
//   - compound:     "gid://shopify/ProductVariant/987"
//
// Any "/"-suffixed path whose last segment is numeric is accepted, so the
// function is idempotent: a normalized ref normalizes to itself.
// Returns ErrInvalidVariantRef when no numeric suffix can be extracted.
func NormalizeVariantRef(ref string) (int64, error) {
	r := strings.TrimSpace(ref)
	if r == "" {
		return 0, ErrInvalidVariantRef
	}

	if i := strings.LastIndex(r, "/"); i >= 0 {
		r = r[i+1:]
	}
	// Compound refs may carry a query suffix (variant deep links).
	if i := strings.IndexByte(r, '?'); i >= 0 {
		r = r[:i]
	}

	id, err := strconv.ParseInt(r, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidVariantRef
	}
	return id, nil
}
