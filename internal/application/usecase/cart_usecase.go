// internal/application/usecase/cart_usecase.go
package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	cartdom "chatbridge/internal/domain/cart"
)

var (
	ErrCartInvalidArgument = errors.New("cart_usecase: invalid argument")
)

// AddOutcome reports what an add-to-cart attempt did. Applied is only
// meaningful when Ambiguous is false or a reconciling re-fetch succeeded.
type AddOutcome struct {
	Result *cartdom.Result

	// Applied reports whether the line is now in the cart.
	Applied bool

	// Ambiguous means the upstream call failed in a way that leaves the
	// mutation state unknown (timeout after send). The result then holds
	// the re-fetched cart so the caller can tell the user the truth.
	Ambiguous bool

	// Reason carries the upstream's human-readable rejection, if any.
	Reason string
}

// CartUsecase coordinates cart operations against the gateway and owns the
// retry policy: GetCart is a pure read and may be retried; AddLine is
// never auto-retried because the upstream adds a second line on a second
// call. After an ambiguous failure the cart is re-fetched to check whether
// the mutation already applied.
type CartUsecase struct {
	gw  cartdom.Gateway
	log zerolog.Logger
}

func NewCartUsecase(gw cartdom.Gateway, log zerolog.Logger) *CartUsecase {
	return &CartUsecase{
		gw:  gw,
		log: log.With().Str("component", "cart_usecase").Logger(),
	}
}

// AddLine adds quantity of variantRef and reconciles the outcome.
func (uc *CartUsecase) AddLine(ctx context.Context, variantRef string, quantity int, sessionCookies string) (*AddOutcome, error) {
	ref := strings.TrimSpace(variantRef)
	if ref == "" {
		return nil, ErrCartInvalidArgument
	}
	if quantity <= 0 {
		quantity = 1
	}

	// Reject before touching the network.
	numericID, err := cartdom.NormalizeVariantRef(ref)
	if err != nil {
		return nil, err
	}

	// Snapshot the pre-mutation quantity of this variant so an ambiguous
	// failure can be reconciled by comparison.
	before := -1
	if pre, preErr := uc.gw.GetCart(ctx, sessionCookies); preErr == nil && pre.Cart != nil {
		before = variantQuantity(pre.Cart, numericID)
	}

	res, err := uc.gw.AddLine(ctx, ref, quantity, sessionCookies)
	if err == nil {
		return &AddOutcome{Result: res, Applied: true}, nil
	}

	if reason, rejected := cartdom.IsRejected(err); rejected {
		uc.log.Info().Str("reason", reason).Msg("upstream rejected add")
		return &AddOutcome{Result: res, Applied: false, Reason: reason}, nil
	}

	if !errors.Is(err, cartdom.ErrUpstreamUnavailable) {
		return nil, err
	}

	// Ambiguous: the request may or may not have reached the upstream.
	// Re-fetch (pure read, safe) instead of retrying the mutation. The
	// mutation may still have issued session cookies (a freshly minted
	// cart); they must ride the reconciling read and reach the caller, or
	// the shopper's next request silently starts a second cart.
	uc.log.Warn().Err(err).Msg("ambiguous add failure, re-fetching cart")
	var mutationCookies []string
	if res != nil {
		mutationCookies = res.SetCookies
	}
	cookies := cartdom.MergeCookies(sessionCookies, mutationCookies)
	after, refetchErr := uc.gw.GetCart(ctx, cookies)
	if refetchErr != nil || after == nil || after.Cart == nil {
		return &AddOutcome{Result: res, Ambiguous: true}, err
	}

	after.SetCookies = append(mutationCookies, after.SetCookies...)
	applied := before >= 0 && variantQuantity(after.Cart, numericID) > before
	return &AddOutcome{Result: after, Applied: applied, Ambiguous: !applied}, nil
}

// GetCart reads current cart state.
func (uc *CartUsecase) GetCart(ctx context.Context, sessionCookies string) (*cartdom.Result, error) {
	return uc.gw.GetCart(ctx, sessionCookies)
}

// CreateCart creates a token-addressed cart for callers without a cart
// cookie.
func (uc *CartUsecase) CreateCart(ctx context.Context) (*cartdom.Result, error) {
	return uc.gw.CreateCart(ctx)
}

func variantQuantity(c *cartdom.State, numericID int64) int {
	for _, l := range c.Lines {
		id, err := cartdom.NormalizeVariantRef(l.VariantID)
		if err == nil && id == numericID {
			return l.Quantity
		}
	}
	return 0
}
