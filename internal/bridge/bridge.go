// internal/bridge/bridge.go
package bridge

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	cartdom "chatbridge/internal/domain/cart"
)

// DefaultPollInterval is how often the host cookie jar is inspected.
// Cookie writes raise no event in a browser-hosted script, so a bounded
// poll is the only observation mechanism.
const DefaultPollInterval = 2 * time.Second

// Poster delivers an envelope to the other side of a message channel.
type Poster interface {
	Post(env Envelope) error
}

// CookieJar reads the host page's cookie jar. The bridge only reads and
// forwards cookies, never mints them.
type CookieJar interface {
	Get(name string) (string, bool)
	// Header returns the full Cookie header to forward upstream.
	Header() string
}

// CartClient is the cart gateway's client-facing contract as the bridge
// sees it.
type CartClient interface {
	AddLine(ctx context.Context, variantRef string, quantity int, sessionCookies string) (*cartdom.Result, error)
	GetCart(ctx context.Context, sessionCookies string) (*cartdom.Result, error)
}

// Geometry is the presentation box the host page applies to the iframe.
type Geometry struct {
	Width  string
	Height string
	Bottom string
	Right  string
}

// Config is the host-script bootstrap input: iframe source, sizes per
// visibility state, position offsets, and the security allow-list.
type Config struct {
	IframeBaseURL  string
	ButtonSize     string
	ExpandedWidth  string
	ExpandedHeight string
	// Mobile variants; fall back to the desktop sizes when empty.
	MobileExpandedWidth  string
	MobileExpandedHeight string
	PositionBottom       string
	PositionRight        string

	// Mobile selects the mobile expanded sizes. The host script sets it
	// from its viewport at bootstrap.
	Mobile bool

	// AllowedOrigins is the operator-configured origin allow-list.
	// Messages from any other origin are dropped silently.
	AllowedOrigins []string

	// CartCookieName is the cart-identity cookie to watch. Name and
	// format are owned by the upstream backend.
	CartCookieName string

	PollInterval time.Duration

	ShopDomain string
}

// AllowsOrigin reports whether origin is on the allow-list. Comparison
// is case-insensitive and tolerates a trailing slash; an empty origin is
// never allowed.
func (c Config) AllowsOrigin(origin string) bool {
	o := strings.TrimRight(strings.TrimSpace(origin), "/")
	if o == "" {
		return false
	}
	for _, allowed := range c.AllowedOrigins {
		if strings.EqualFold(o, strings.TrimRight(strings.TrimSpace(allowed), "/")) {
			return true
		}
	}
	return false
}

// Bridge mediates between the embedding page and the iframe widget: it
// owns the visibility state machine, validates message origins, relays
// cart intents to the gateway, and watches the cart cookie.
type Bridge struct {
	cfg   Config
	inner Poster // to the iframe
	outer Poster // to the embedding context when nested one level deeper
	jar   CookieJar
	carts CartClient
	log   zerolog.Logger

	mu           sync.Mutex
	session      Session
	lastCartSeen string

	applyGeometry func(Geometry)
}

// New builds a bridge. outer and applyGeometry may be nil; poll interval
// and cookie name default when unset.
func New(cfg Config, inner, outer Poster, jar CookieJar, carts CartClient, applyGeometry func(Geometry), log zerolog.Logger) *Bridge {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.CartCookieName == "" {
		cfg.CartCookieName = "cart"
	}
	return &Bridge{
		cfg:   cfg,
		inner: inner,
		outer: outer,
		jar:   jar,
		carts: carts,
		log:   log.With().Str("component", "session_bridge").Logger(),
		session: Session{
			Visibility: VisibilityHidden,
			ShopDomain: cfg.ShopDomain,
		},
		applyGeometry: applyGeometry,
	}
}

// Boot moves the widget from hidden to minimized and sends the iframe its
// initial session copy.
func (b *Bridge) Boot() {
	b.mu.Lock()
	b.session.Visibility = VisibilityMinimized
	if token, ok := b.jar.Get(b.cfg.CartCookieName); ok {
		b.session.CartToken = token
		b.lastCartSeen = token
	}
	snapshot := b.session
	b.mu.Unlock()

	b.setGeometry(VisibilityMinimized)
	b.post(MsgInitSession, snapshot)
}

// Session returns a copy of the current bridge session.
func (b *Bridge) Session() Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

// HandleInbound processes one message from the channel. Unknown origins
// and unknown types are dropped without surfacing an error to the user;
// nothing here panics on malformed payloads.
func (b *Bridge) HandleInbound(ctx context.Context, origin string, raw []byte) {
	if !b.cfg.AllowsOrigin(origin) {
		b.log.Debug().Str("origin", origin).Msg("dropping message from unrecognized origin")
		return
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		b.log.Debug().Err(err).Msg("dropping malformed message")
		return
	}

	// Single dispatch table; the enum is closed.
	switch env.Type {
	case MsgExpand:
		b.setVisibility(VisibilityExpanded)
	case MsgMinimize:
		b.setVisibility(VisibilityMinimized)
	case MsgRequestSession:
		b.post(MsgSessionUpdate, b.Session())
	case MsgAddToCart:
		b.handleAddToCart(ctx, env.Payload)
	default:
		b.log.Debug().Str("type", string(env.Type)).Msg("ignoring unknown message type")
	}
}

// setVisibility runs a geometry-only transition. No network I/O happens
// here; when the widget is itself embedded a level deeper, the transition
// is re-posted outward.
func (b *Bridge) setVisibility(v Visibility) {
	b.mu.Lock()
	if b.session.Visibility == v {
		b.mu.Unlock()
		return
	}
	b.session.Visibility = v
	b.mu.Unlock()

	b.setGeometry(v)

	if b.outer != nil {
		t := MsgMinimize
		if v == VisibilityExpanded {
			t = MsgExpand
		}
		if env, err := NewEnvelope(t, nil); err == nil {
			if err := b.outer.Post(env); err != nil {
				b.log.Debug().Err(err).Msg("outer post failed")
			}
		}
	}
}

func (b *Bridge) setGeometry(v Visibility) {
	if b.applyGeometry == nil {
		return
	}
	g := Geometry{
		Width:  b.cfg.ButtonSize,
		Height: b.cfg.ButtonSize,
		Bottom: b.cfg.PositionBottom,
		Right:  b.cfg.PositionRight,
	}
	if v == VisibilityExpanded {
		g.Width = b.cfg.ExpandedWidth
		g.Height = b.cfg.ExpandedHeight
		if b.cfg.Mobile {
			if b.cfg.MobileExpandedWidth != "" {
				g.Width = b.cfg.MobileExpandedWidth
			}
			if b.cfg.MobileExpandedHeight != "" {
				g.Height = b.cfg.MobileExpandedHeight
			}
		}
	}
	b.applyGeometry(g)
}

func (b *Bridge) handleAddToCart(ctx context.Context, payload json.RawMessage) {
	var req AddToCartPayload
	if err := json.Unmarshal(payload, &req); err != nil || strings.TrimSpace(req.VariantRef) == "" {
		b.post(MsgAddToCartError, AddToCartErrorPayload{Message: "invalid add-to-cart request"})
		return
	}

	res, err := b.carts.AddLine(ctx, req.VariantRef, req.Quantity, b.jar.Header())
	if err != nil {
		b.log.Error().Err(err).Str("variantRef", req.VariantRef).Msg("add to cart failed")
		b.post(MsgAddToCartError, AddToCartErrorPayload{Message: "could not add to cart"})
		return
	}

	b.post(MsgAddToCartSuccess, nil)
	b.broadcastCart(res.Cart)
	b.post(MsgSessionUpdate, b.Session())
}

func (b *Bridge) broadcastCart(c *cartdom.State) {
	if c == nil {
		return
	}

	b.mu.Lock()
	b.session.CartToken = c.CartID
	b.session.LastSyncedAt = time.Now()
	b.mu.Unlock()

	b.post(MsgCartUpdate, CartUpdatePayload{
		CartID:        c.CartID,
		TotalQuantity: c.TotalQuantity,
		CheckoutURL:   c.CheckoutURL,
		Currency:      c.Currency,
	})
}

// WatchCookies polls the cart-identity cookie until ctx is cancelled and
// emits a CART_UPDATE only when the observed value changes, bounding
// redundant upstream fetches. The comparison function is injectable for
// tests; nil means plain equality.
func (b *Bridge) WatchCookies(ctx context.Context, changed func(prev, cur string) bool) {
	if changed == nil {
		changed = func(prev, cur string) bool { return prev != cur }
	}

	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.pollOnce(ctx, changed)
		}
	}
}

func (b *Bridge) pollOnce(ctx context.Context, changed func(prev, cur string) bool) {
	cur, _ := b.jar.Get(b.cfg.CartCookieName)

	b.mu.Lock()
	prev := b.lastCartSeen
	if !changed(prev, cur) {
		b.mu.Unlock()
		return
	}
	b.lastCartSeen = cur
	b.session.CartToken = cur
	b.mu.Unlock()

	b.log.Debug().Msg("cart cookie changed, syncing")
	res, err := b.carts.GetCart(ctx, b.jar.Header())
	if err != nil {
		b.log.Warn().Err(err).Msg("cart sync fetch failed")
		return
	}
	b.broadcastCart(res.Cart)
}

func (b *Bridge) post(t MessageType, payload any) {
	env, err := NewEnvelope(t, payload)
	if err != nil {
		b.log.Error().Err(err).Str("type", string(t)).Msg("envelope marshal failed")
		return
	}
	if b.inner == nil {
		return
	}
	if err := b.inner.Post(env); err != nil {
		b.log.Debug().Err(errors.Wrap(err, "post failed")).Str("type", string(t)).Send()
	}
}
