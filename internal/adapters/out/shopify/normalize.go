// internal/adapters/out/shopify/normalize.go
package shopify

import (
	"strconv"
	"strings"

	cartdom "chatbridge/internal/domain/cart"
)

// Two historical integration paths serve cart objects in different shapes:
// the AJAX path returns a restCart, the Storefront GraphQL path a gqlCart.
// Both normalize here, at the ingress boundary, into the one canonical
// cart.State; nothing deeper in the service branches on upstream shape.

// restCart is the cart.js wire shape (the fields this service reads).
type restCart struct {
	Token      string         `json:"token"`
	ItemCount  int            `json:"item_count"`
	Currency   string         `json:"currency"`
	TotalPrice int64          `json:"total_price"`
	Items      []restCartItem `json:"items"`
}

type restCartItem struct {
	ID        int64  `json:"id"`
	VariantID int64  `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"` // minor units
	Title     string `json:"title"`
}

// normalizeRestCart maps a cart.js payload onto the canonical shape.
// checkoutURL is synthesized because the AJAX path has no checkoutUrl
// field; the storefront's /cart page is the checkout entry.
func normalizeRestCart(rc *restCart, shopDomain string) *cartdom.State {
	if rc == nil {
		return nil
	}

	lines := make([]cartdom.Line, 0, len(rc.Items))
	for _, it := range rc.Items {
		vid := it.VariantID
		if vid == 0 {
			vid = it.ID
		}
		lines = append(lines, cartdom.Line{
			VariantID:           strconv.FormatInt(vid, 10),
			Quantity:            it.Quantity,
			UnitPriceMinorUnits: it.Price,
			Title:               it.Title,
		})
	}

	return &cartdom.State{
		CartID:        rc.Token,
		Lines:         lines,
		TotalQuantity: rc.ItemCount,
		CheckoutURL:   "https://" + shopDomain + "/cart",
		Currency:      rc.Currency,
	}
}

// gqlCart is the Storefront API cart shape (the fields this service reads).
type gqlCart struct {
	ID            string       `json:"id"`
	TotalQuantity int          `json:"totalQuantity"`
	CheckoutURL   string       `json:"checkoutUrl"`
	Lines         gqlCartLines `json:"lines"`
	Cost          struct {
		TotalAmount gqlMoney `json:"totalAmount"`
	} `json:"cost"`
}

type gqlCartLines struct {
	Edges []struct {
		Node gqlCartLine `json:"node"`
	} `json:"edges"`
}

type gqlCartLine struct {
	ID          string `json:"id"`
	Quantity    int    `json:"quantity"`
	Merchandise struct {
		ID    string   `json:"id"`
		Title string   `json:"title"`
		Price gqlMoney `json:"price"`
	} `json:"merchandise"`
}

type gqlMoney struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// normalizeGQLCart maps a Storefront cart onto the canonical shape.
// Variant ids stay in compound form here; they normalize to numeric only
// at the AJAX boundary, where the numeric form is actually required.
func normalizeGQLCart(gc *gqlCart) *cartdom.State {
	if gc == nil {
		return nil
	}

	currency := gc.Cost.TotalAmount.CurrencyCode
	lines := make([]cartdom.Line, 0, len(gc.Lines.Edges))
	for _, e := range gc.Lines.Edges {
		n := e.Node
		if currency == "" {
			currency = n.Merchandise.Price.CurrencyCode
		}
		lines = append(lines, cartdom.Line{
			VariantID:           n.Merchandise.ID,
			Quantity:            n.Quantity,
			UnitPriceMinorUnits: minorUnits(n.Merchandise.Price.Amount),
			Title:               n.Merchandise.Title,
		})
	}

	return &cartdom.State{
		CartID:        gc.ID,
		Lines:         lines,
		TotalQuantity: gc.TotalQuantity,
		CheckoutURL:   gc.CheckoutURL,
		Currency:      currency,
	}
}

// minorUnits converts a Storefront decimal amount ("129.50") to minor
// units (12950) without going through floats.
func minorUnits(amount string) int64 {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0
	}

	whole, frac, _ := strings.Cut(amount, ".")
	switch {
	case len(frac) > 2:
		frac = frac[:2]
	case len(frac) == 1:
		frac = frac + "0"
	case len(frac) == 0:
		frac = "00"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0
	}
	if w < 0 {
		return w*100 - f
	}
	return w*100 + f
}
