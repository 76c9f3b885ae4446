// internal/adapters/in/http/handler/handlers_test.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbridge/internal/adapters/out/memory"
	"chatbridge/internal/application/usecase"
	cartdom "chatbridge/internal/domain/cart"
	"chatbridge/internal/domain/catalog"
)

type fakeGateway struct {
	addErr error
	getErr error
	cart   *cartdom.State
}

func (g *fakeGateway) AddLine(_ context.Context, _ string, _ int, _ string) (*cartdom.Result, error) {
	if g.addErr != nil {
		return nil, g.addErr
	}
	return &cartdom.Result{Cart: g.cart, SetCookies: []string{"cart=tok; Path=/"}}, nil
}

func (g *fakeGateway) GetCart(_ context.Context, _ string) (*cartdom.Result, error) {
	if g.getErr != nil {
		return nil, g.getErr
	}
	return &cartdom.Result{Cart: g.cart}, nil
}

func (g *fakeGateway) CreateCart(_ context.Context) (*cartdom.Result, error) {
	return &cartdom.Result{Cart: g.cart, SetCookies: []string{"cartId=gid; Path=/"}}, nil
}

func newCartHandler(gw *fakeGateway) *CartHandler {
	uc := usecase.NewCartUsecase(gw, zerolog.Nop())
	return NewCartHandler(uc, "https://shop.example.com/cart", "EUR", zerolog.Nop())
}

func TestGetCartServesEmptyCartOnUpstreamFailure(t *testing.T) {
	h := newCartHandler(&fakeGateway{getErr: errors.Wrap(cartdom.ErrUpstreamUnavailable, "down")})

	rec := httptest.NewRecorder()
	h.GetCart(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Cart *cartdom.State `json:"cart"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Cart)
	assert.Zero(t, body.Cart.TotalQuantity)
	assert.Empty(t, body.Cart.Lines)
	assert.Equal(t, "https://shop.example.com/cart", body.Cart.CheckoutURL)
}

func TestGetCartPassesThroughState(t *testing.T) {
	h := newCartHandler(&fakeGateway{cart: &cartdom.State{
		CartID:        "tok",
		TotalQuantity: 2,
		Lines:         []cartdom.Line{{VariantID: "987", Quantity: 2}},
	}})

	rec := httptest.NewRecorder()
	h.GetCart(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Cart *cartdom.State `json:"cart"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Cart.TotalQuantity)
}

func TestAddLineValidation(t *testing.T) {
	h := newCartHandler(&fakeGateway{})

	rec := httptest.NewRecorder()
	h.AddLine(rec, httptest.NewRequest(http.MethodPost, "/api/cart/add", strings.NewReader(`{"quantity":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.AddLine(rec, httptest.NewRequest(http.MethodPost, "/api/cart/add", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.AddLine(rec, httptest.NewRequest(http.MethodPost, "/api/cart/add", strings.NewReader(`{"variantRef":"junk","quantity":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddLineForwardsSetCookies(t *testing.T) {
	h := newCartHandler(&fakeGateway{cart: &cartdom.State{
		CartID:        "tok",
		TotalQuantity: 1,
		Lines:         []cartdom.Line{{VariantID: "987", Quantity: 1}},
	}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/cart/add", strings.NewReader(`{"variantId":"987","quantity":1}`))
	h.AddLine(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Values("Set-Cookie"))

	var body addLineResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Applied)
}

func TestAddLineUpstreamRejection(t *testing.T) {
	h := newCartHandler(&fakeGateway{addErr: &cartdom.RejectedError{Reason: "sold out"}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/cart/add", strings.NewReader(`{"variantRef":"987","quantity":1}`))
	h.AddLine(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["applied"])
	assert.Equal(t, "sold out", body["error"])
}

func TestCreateCartForwardsCookie(t *testing.T) {
	h := newCartHandler(&fakeGateway{cart: &cartdom.State{CartID: "gid"}})

	rec := httptest.NewRecorder()
	h.CreateCart(rec, httptest.NewRequest(http.MethodPost, "/api/cart/create", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Values("Set-Cookie"))
}

// --- chat handler ---

type scriptedClassifier struct {
	intent usecase.Intent
}

func (c *scriptedClassifier) Classify(_ context.Context, _ string) (usecase.Intent, error) {
	return c.intent, nil
}

type staticSnapshot struct{}

func (staticSnapshot) Get(_ context.Context) (*catalog.Snapshot, error) {
	return &catalog.Snapshot{
		FetchedAt: time.Now(),
		Entries:   []catalog.Entry{{ID: "1", Title: "Day Cream", Available: true}},
	}, nil
}

func newChatHandler(intent usecase.Intent) *ChatHandler {
	repo := memory.NewConversationRepositoryMem(30 * time.Minute)
	cartUC := usecase.NewCartUsecase(&fakeGateway{cart: &cartdom.State{}}, zerolog.Nop())
	uc := usecase.NewChatUsecase(&scriptedClassifier{intent: intent}, staticSnapshot{}, repo, cartUC, "https://book.example.com", zerolog.Nop())
	return NewChatHandler(uc, zerolog.Nop())
}

func TestChatMintsSessionIDWhenAbsent(t *testing.T) {
	h := newChatHandler(usecase.Intent{Kind: usecase.IntentSmallTalk, Reply: "hi"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hello"}`))
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		SessionID string `json:"sessionId"`
		Kind      string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.SessionID)
	assert.Equal(t, string(usecase.ResultPlainText), body.Kind)
}

func TestChatKeepsClientSessionID(t *testing.T) {
	h := newChatHandler(usecase.Intent{Kind: usecase.IntentBooking})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"sessionId":"s-42","message":"book"}`))
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		SessionID  string `json:"sessionId"`
		Kind       string `json:"kind"`
		BookingURL string `json:"bookingUrl"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "s-42", body.SessionID)
	assert.Equal(t, string(usecase.ResultBooking), body.Kind)
	assert.Equal(t, "https://book.example.com", body.BookingURL)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	h := newChatHandler(usecase.Intent{Kind: usecase.IntentSmallTalk})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"  "}`))
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
