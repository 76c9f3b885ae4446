// internal/adapters/out/shopify/gateway.go
package shopify

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	cartdom "chatbridge/internal/domain/cart"
)

// DefaultSectionIDs are the theme fragments the host page re-renders after
// a cart change.
var DefaultSectionIDs = []string{
	"cart-items",
	"cart-icon-bubble",
	"cart-live-region-text",
	"cart-drawer",
}

// GatewayConfig is the small set of knobs that used to be spread across
// near-duplicate add-to-cart handlers.
type GatewayConfig struct {
	// PreferGraphQL routes cart mutations through the Storefront API
	// (token-addressed) instead of the cookie-identified AJAX path.
	PreferGraphQL bool

	// FetchSections pulls theme fragments alongside cart reads/mutations.
	FetchSections bool

	// SectionIDs overrides DefaultSectionIDs when FetchSections is on.
	SectionIDs []string
}

// Gateway implements cart.Gateway over the two upstream integration paths.
// The AJAX path is primary; GraphQL serves token-addressed carts and acts
// as fallback. Whichever path serves a request, callers see only the
// canonical cart.State.
type Gateway struct {
	shopDomain string
	ajax       *AjaxClient
	storefront *StorefrontClient
	cfg        GatewayConfig
	log        zerolog.Logger
}

func NewGateway(shopDomain string, ajax *AjaxClient, storefront *StorefrontClient, cfg GatewayConfig, log zerolog.Logger) *Gateway {
	if cfg.FetchSections && len(cfg.SectionIDs) == 0 {
		cfg.SectionIDs = DefaultSectionIDs
	}
	return &Gateway{
		shopDomain: strings.TrimRight(strings.TrimSpace(shopDomain), "/"),
		ajax:       ajax,
		storefront: storefront,
		cfg:        cfg,
		log:        log.With().Str("component", "cart_gateway").Logger(),
	}
}

// AddLine normalizes the variant ref, executes the mutation, then
// re-fetches cart state. The re-fetch is deliberate: the upstream may
// merge or coalesce lines, so local arithmetic on the previous state would
// lie. An invalid ref fails before any upstream call.
func (g *Gateway) AddLine(ctx context.Context, variantRef string, quantity int, sessionCookies string) (*cartdom.Result, error) {
	numericID, err := cartdom.NormalizeVariantRef(variantRef)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		quantity = 1
	}

	if g.cfg.PreferGraphQL {
		return g.addLineGraphQL(ctx, numericID, quantity, sessionCookies)
	}

	setCookies, err := g.ajax.AddLine(ctx, numericID, quantity, sessionCookies)
	if err != nil {
		return nil, err
	}

	// The mutation succeeded; read back the authoritative state. Forward
	// the mutation's cookies even if the read fails, so the shopper's next
	// request carries the right cart session.
	cookies := cartdom.MergeCookies(sessionCookies, setCookies)
	rc, moreCookies, err := g.ajax.GetCart(ctx, cookies)
	if err != nil {
		g.log.Warn().Err(err).Msg("post-add cart read failed")
		return &cartdom.Result{SetCookies: setCookies}, err
	}

	res := &cartdom.Result{
		Cart:       normalizeRestCart(rc, g.shopDomain),
		SetCookies: append(setCookies, moreCookies...),
	}
	if g.cfg.FetchSections {
		res.Sections = g.ajax.FetchSections(ctx, g.cfg.SectionIDs, cookies)
	}
	return res, nil
}

func (g *Gateway) addLineGraphQL(ctx context.Context, numericID int64, quantity int, sessionCookies string) (*cartdom.Result, error) {
	cartID := cartIDFromCookies(sessionCookies)
	if cartID == "" {
		created, err := g.storefront.CreateCart(ctx)
		if err != nil {
			return nil, err
		}
		cartID = created.ID
	}

	gc, err := g.storefront.AddLine(ctx, cartID, variantGID(numericID), quantity)
	if err != nil {
		return nil, err
	}
	return &cartdom.Result{
		Cart:       normalizeGQLCart(gc),
		SetCookies: []string{cartIDCookie(gc.ID)},
	}, nil
}

// GetCart reads current cart state. Falls back to the GraphQL path when the
// caller carries a cartId cookie but the AJAX read fails.
func (g *Gateway) GetCart(ctx context.Context, sessionCookies string) (*cartdom.Result, error) {
	rc, setCookies, err := g.ajax.GetCart(ctx, sessionCookies)
	if err == nil {
		res := &cartdom.Result{
			Cart:       normalizeRestCart(rc, g.shopDomain),
			SetCookies: setCookies,
		}
		if g.cfg.FetchSections {
			res.Sections = g.ajax.FetchSections(ctx, g.cfg.SectionIDs, sessionCookies)
		}
		return res, nil
	}

	if cartID := cartIDFromCookies(sessionCookies); cartID != "" {
		gc, gqlErr := g.storefront.GetCart(ctx, cartID)
		if gqlErr == nil {
			return &cartdom.Result{Cart: normalizeGQLCart(gc)}, nil
		}
		g.log.Debug().Err(gqlErr).Msg("graphql cart fallback failed")
	}
	return nil, err
}

// CreateCart creates a token-addressed cart and hands the caller the
// cartId cookie to persist.
func (g *Gateway) CreateCart(ctx context.Context) (*cartdom.Result, error) {
	gc, err := g.storefront.CreateCart(ctx)
	if err != nil {
		return nil, err
	}
	return &cartdom.Result{
		Cart:       normalizeGQLCart(gc),
		SetCookies: []string{cartIDCookie(gc.ID)},
	}, nil
}

// CartCookieName identifies the widget's token-addressed cart on the
// GraphQL path. The AJAX path rides the storefront's own "cart" cookie.
const CartCookieName = "cartId"

func cartIDCookie(cartID string) string {
	return CartCookieName + "=" + cartID + "; Path=/; SameSite=None; Secure"
}

func cartIDFromCookies(cookieHeader string) string {
	for _, part := range strings.Split(cookieHeader, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name == CartCookieName {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func variantGID(numericID int64) string {
	return "gid://shopify/ProductVariant/" + strconv.FormatInt(numericID, 10)
}
