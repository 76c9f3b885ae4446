// internal/bridge/bridge_test.go
package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartdom "chatbridge/internal/domain/cart"
)

type capturePoster struct {
	mu   sync.Mutex
	envs []Envelope
}

func (p *capturePoster) Post(env Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envs = append(p.envs, env)
	return nil
}

func (p *capturePoster) types() []MessageType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]MessageType, 0, len(p.envs))
	for _, e := range p.envs {
		out = append(out, e.Type)
	}
	return out
}

func (p *capturePoster) last(t MessageType) (Envelope, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.envs) - 1; i >= 0; i-- {
		if p.envs[i].Type == t {
			return p.envs[i], true
		}
	}
	return Envelope{}, false
}

type mapJar struct {
	mu      sync.Mutex
	cookies map[string]string
}

func (j *mapJar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	v, ok := j.cookies[name]
	return v, ok
}

func (j *mapJar) Header() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	h := ""
	for k, v := range j.cookies {
		if h != "" {
			h += "; "
		}
		h += k + "=" + v
	}
	return h
}

func (j *mapJar) set(name, value string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies[name] = value
}

type fakeCarts struct {
	mu       sync.Mutex
	addErr   error
	addCalls int
	getCalls int
	cart     *cartdom.State
}

func (c *fakeCarts) AddLine(_ context.Context, _ string, _ int, _ string) (*cartdom.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addCalls++
	if c.addErr != nil {
		return nil, c.addErr
	}
	return &cartdom.Result{Cart: c.cart}, nil
}

func (c *fakeCarts) GetCart(_ context.Context, _ string) (*cartdom.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getCalls++
	return &cartdom.Result{Cart: c.cart}, nil
}

func testConfig() Config {
	return Config{
		AllowedOrigins: []string{"https://shop.example.com"},
		CartCookieName: "cart",
		ShopDomain:     "shop.example.com",
		PollInterval:   10 * time.Millisecond,
	}
}

func newTestBridge(cfg Config) (*Bridge, *capturePoster, *mapJar, *fakeCarts) {
	inner := &capturePoster{}
	jar := &mapJar{cookies: map[string]string{}}
	carts := &fakeCarts{cart: &cartdom.State{CartID: "tok", TotalQuantity: 1, Currency: "EUR"}}
	b := New(cfg, inner, nil, jar, carts, nil, zerolog.Nop())
	return b, inner, jar, carts
}

func mustRaw(t *testing.T, msgType MessageType, payload any) []byte {
	t.Helper()
	env, err := NewEnvelope(msgType, payload)
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return raw
}

func TestBootGoesMinimizedAndInitsSession(t *testing.T) {
	b, inner, jar, _ := newTestBridge(testConfig())
	jar.set("cart", "tok_1")

	b.Boot()

	assert.Equal(t, VisibilityMinimized, b.Session().Visibility)
	assert.Equal(t, "tok_1", b.Session().CartToken)

	env, ok := inner.last(MsgInitSession)
	require.True(t, ok)
	var s Session
	require.NoError(t, json.Unmarshal(env.Payload, &s))
	assert.Equal(t, "shop.example.com", s.ShopDomain)
}

func TestInboundFromUnknownOriginIsDropped(t *testing.T) {
	b, inner, _, _ := newTestBridge(testConfig())
	b.Boot()
	before := b.Session().Visibility

	b.HandleInbound(context.Background(), "https://evil.example.com", mustRaw(t, MsgExpand, nil))

	assert.Equal(t, before, b.Session().Visibility)
	_, sent := inner.last(MsgSessionUpdate)
	assert.False(t, sent)
}

func TestInboundMalformedIsDropped(t *testing.T) {
	b, _, _, _ := newTestBridge(testConfig())
	b.Boot()

	assert.NotPanics(t, func() {
		b.HandleInbound(context.Background(), "https://shop.example.com", []byte("{not json"))
		b.HandleInbound(context.Background(), "https://shop.example.com", nil)
	})
	assert.Equal(t, VisibilityMinimized, b.Session().Visibility)
}

func TestInboundUnknownTypeIsIgnored(t *testing.T) {
	b, _, _, _ := newTestBridge(testConfig())
	b.Boot()

	b.HandleInbound(context.Background(), "https://shop.example.com", []byte(`{"type":"SOMETHING_ELSE"}`))
	assert.Equal(t, VisibilityMinimized, b.Session().Visibility)
}

func TestExpandMinimizeTransitions(t *testing.T) {
	b, _, _, carts := newTestBridge(testConfig())
	b.Boot()

	b.HandleInbound(context.Background(), "https://shop.example.com", mustRaw(t, MsgExpand, nil))
	assert.Equal(t, VisibilityExpanded, b.Session().Visibility)

	b.HandleInbound(context.Background(), "https://shop.example.com", mustRaw(t, MsgMinimize, nil))
	assert.Equal(t, VisibilityMinimized, b.Session().Visibility)

	// Presentation transitions never touch the cart upstream.
	assert.Zero(t, carts.addCalls)
	assert.Zero(t, carts.getCalls)
}

func TestVisibilityTransitionRepostsOutward(t *testing.T) {
	cfg := testConfig()
	inner := &capturePoster{}
	outer := &capturePoster{}
	jar := &mapJar{cookies: map[string]string{}}
	b := New(cfg, inner, outer, jar, &fakeCarts{}, nil, zerolog.Nop())
	b.Boot()

	b.HandleInbound(context.Background(), "https://shop.example.com", mustRaw(t, MsgExpand, nil))

	env, ok := outer.last(MsgExpand)
	require.True(t, ok)
	assert.Equal(t, MsgExpand, env.Type)
}

func TestExpandAppliesConfiguredGeometry(t *testing.T) {
	cfg := testConfig()
	cfg.ButtonSize = "60px"
	cfg.ExpandedWidth = "400px"
	cfg.ExpandedHeight = "600px"
	cfg.MobileExpandedWidth = "100vw"
	cfg.MobileExpandedHeight = "100vh"

	var got Geometry
	jar := &mapJar{cookies: map[string]string{}}
	b := New(cfg, &capturePoster{}, nil, jar, &fakeCarts{}, func(g Geometry) { got = g }, zerolog.Nop())
	b.Boot()

	assert.Equal(t, "60px", got.Width)

	b.HandleInbound(context.Background(), "https://shop.example.com", mustRaw(t, MsgExpand, nil))
	assert.Equal(t, "400px", got.Width)
	assert.Equal(t, "600px", got.Height)

	b.HandleInbound(context.Background(), "https://shop.example.com", mustRaw(t, MsgMinimize, nil))
	assert.Equal(t, "60px", got.Width)
}

func TestExpandUsesMobileSizesWhenMobile(t *testing.T) {
	cfg := testConfig()
	cfg.ButtonSize = "60px"
	cfg.ExpandedWidth = "400px"
	cfg.ExpandedHeight = "600px"
	cfg.MobileExpandedWidth = "100vw"
	cfg.MobileExpandedHeight = "100vh"
	cfg.Mobile = true

	var got Geometry
	jar := &mapJar{cookies: map[string]string{}}
	b := New(cfg, &capturePoster{}, nil, jar, &fakeCarts{}, func(g Geometry) { got = g }, zerolog.Nop())
	b.Boot()

	b.HandleInbound(context.Background(), "https://shop.example.com", mustRaw(t, MsgExpand, nil))
	assert.Equal(t, "100vw", got.Width)
	assert.Equal(t, "100vh", got.Height)

	// Minimized geometry is shared between viewports.
	b.HandleInbound(context.Background(), "https://shop.example.com", mustRaw(t, MsgMinimize, nil))
	assert.Equal(t, "60px", got.Width)
}

func TestExpandMobileFallsBackToDesktopSizes(t *testing.T) {
	cfg := testConfig()
	cfg.ExpandedWidth = "400px"
	cfg.ExpandedHeight = "600px"
	cfg.Mobile = true

	var got Geometry
	jar := &mapJar{cookies: map[string]string{}}
	b := New(cfg, &capturePoster{}, nil, jar, &fakeCarts{}, func(g Geometry) { got = g }, zerolog.Nop())
	b.Boot()

	b.HandleInbound(context.Background(), "https://shop.example.com", mustRaw(t, MsgExpand, nil))
	assert.Equal(t, "400px", got.Width)
	assert.Equal(t, "600px", got.Height)
}

func TestConfigAllowsOrigin(t *testing.T) {
	cfg := Config{AllowedOrigins: []string{"https://shop.example.com/", " https://Other.example.com "}}

	assert.True(t, cfg.AllowsOrigin("https://shop.example.com"))
	assert.True(t, cfg.AllowsOrigin("https://shop.example.com/"))
	assert.True(t, cfg.AllowsOrigin("HTTPS://OTHER.EXAMPLE.COM"))

	assert.False(t, cfg.AllowsOrigin(""))
	assert.False(t, cfg.AllowsOrigin("https://evil.example.com"))
	assert.False(t, cfg.AllowsOrigin("https://shop.example.com.evil.com"))
}

func TestAddToCartSuccessFlow(t *testing.T) {
	b, inner, _, carts := newTestBridge(testConfig())
	b.Boot()

	payload := AddToCartPayload{VariantRef: "gid://shopify/ProductVariant/987", Quantity: 1}
	b.HandleInbound(context.Background(), "https://shop.example.com", mustRaw(t, MsgAddToCart, payload))

	assert.Equal(t, 1, carts.addCalls)

	types := inner.types()
	assert.Contains(t, types, MsgAddToCartSuccess)
	assert.Contains(t, types, MsgCartUpdate)
	assert.Contains(t, types, MsgSessionUpdate)

	env, ok := inner.last(MsgCartUpdate)
	require.True(t, ok)
	var cu CartUpdatePayload
	require.NoError(t, json.Unmarshal(env.Payload, &cu))
	assert.Equal(t, "tok", cu.CartID)
	assert.Equal(t, 1, cu.TotalQuantity)
}

func TestAddToCartFailureFlow(t *testing.T) {
	b, inner, _, carts := newTestBridge(testConfig())
	carts.addErr = errors.New("upstream down")
	b.Boot()

	payload := AddToCartPayload{VariantRef: "987", Quantity: 1}
	b.HandleInbound(context.Background(), "https://shop.example.com", mustRaw(t, MsgAddToCart, payload))

	_, ok := inner.last(MsgAddToCartError)
	assert.True(t, ok)
	_, ok = inner.last(MsgAddToCartSuccess)
	assert.False(t, ok)
}

func TestAddToCartEmptyRefRejectedLocally(t *testing.T) {
	b, inner, _, carts := newTestBridge(testConfig())
	b.Boot()

	b.HandleInbound(context.Background(), "https://shop.example.com", mustRaw(t, MsgAddToCart, AddToCartPayload{}))

	assert.Zero(t, carts.addCalls)
	_, ok := inner.last(MsgAddToCartError)
	assert.True(t, ok)
}

func TestRequestSessionEchoesState(t *testing.T) {
	b, inner, _, _ := newTestBridge(testConfig())
	b.Boot()

	b.HandleInbound(context.Background(), "https://shop.example.com", mustRaw(t, MsgRequestSession, nil))

	env, ok := inner.last(MsgSessionUpdate)
	require.True(t, ok)
	var s Session
	require.NoError(t, json.Unmarshal(env.Payload, &s))
	assert.Equal(t, VisibilityMinimized, s.Visibility)
}

func TestWatchCookiesEmitsOnChangeOnly(t *testing.T) {
	b, inner, jar, carts := newTestBridge(testConfig())
	carts.cart = &cartdom.State{CartID: "tok_2", TotalQuantity: 2, Currency: "EUR"}
	b.Boot()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.WatchCookies(ctx, nil)

	// Unchanged cookie: no sync traffic.
	time.Sleep(50 * time.Millisecond)
	carts.mu.Lock()
	gets := carts.getCalls
	carts.mu.Unlock()
	assert.Zero(t, gets)

	jar.set("cart", "tok_2")
	require.Eventually(t, func() bool {
		_, ok := inner.last(MsgCartUpdate)
		return ok
	}, time.Second, 10*time.Millisecond)

	// The re-fetched cart, not the raw cookie, is the session's truth.
	assert.Equal(t, "tok_2", b.Session().CartToken)
}

func TestSessionMergeLastWriteWins(t *testing.T) {
	s := Session{Visibility: VisibilityHidden, CartToken: "a"}

	v := VisibilityExpanded
	tok := "b"
	s.Merge(SessionUpdate{Visibility: &v, CartToken: &tok})

	assert.Equal(t, VisibilityExpanded, s.Visibility)
	assert.Equal(t, "b", s.CartToken)

	// Unset fields leave prior values intact.
	s.Merge(SessionUpdate{})
	assert.Equal(t, "b", s.CartToken)
}
