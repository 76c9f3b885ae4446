// internal/domain/cart/entity.go
package cart

// Line is one (variant, quantity) pair within the upstream cart.
type Line struct {
	VariantID           string `json:"variantId"`
	Quantity            int    `json:"quantity"`
	UnitPriceMinorUnits int64  `json:"unitPriceMinorUnits"`
	Title               string `json:"title"`
}

// State is the canonical cart shape this service exposes, regardless of
// whether the upstream served the request over the AJAX path or the
// Storefront GraphQL path.
//
// State is a cached mirror of upstream truth. It is always re-fetched or
// reconciled after a mutation, never incremented locally: the upstream may
// reject, merge, or coalesce lines.
type State struct {
	CartID        string `json:"cartId"`
	Lines         []Line `json:"lines"`
	TotalQuantity int    `json:"totalQuantity"`
	CheckoutURL   string `json:"checkoutUrl"`
	Currency      string `json:"currency"`
}

// Sections holds theme section fragments fetched alongside a cart
// operation, keyed by section id. Empty unless section fetching is enabled.
type Sections map[string]string

// EmptyState is the stable payload served when the upstream cart cannot be
// read: the widget shows an empty cart instead of an error screen.
func EmptyState(checkoutURL, currency string) *State {
	return &State{
		Lines:         []Line{},
		TotalQuantity: 0,
		CheckoutURL:   checkoutURL,
		Currency:      currency,
	}
}
