// internal/adapters/in/http/handler/cart_handler.go
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"chatbridge/internal/application/usecase"
	cartdom "chatbridge/internal/domain/cart"
)

// CartHandler serves the storefront cart endpoints.
// Intended mounts (router side):
// - POST /api/cart/add
// - GET  /api/cart
// - POST /api/cart/create
type CartHandler struct {
	uc *usecase.CartUsecase

	// Fallbacks for the graceful empty-cart response when the upstream
	// has no cart for the session yet.
	checkoutURL string
	currency    string

	log zerolog.Logger
}

func NewCartHandler(uc *usecase.CartUsecase, checkoutURL, currency string, log zerolog.Logger) *CartHandler {
	return &CartHandler{
		uc:          uc,
		checkoutURL: checkoutURL,
		currency:    currency,
		log:         log.With().Str("component", "cart_handler").Logger(),
	}
}

type addLineReq struct {
	VariantRef string `json:"variantRef"`
	// VariantID is accepted as an alias for clients that send the raw
	// numeric ID field name.
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

type addLineResp struct {
	Applied   bool             `json:"applied"`
	Ambiguous bool             `json:"ambiguous,omitempty"`
	Cart      *cartdom.State   `json:"cart,omitempty"`
	Sections  cartdom.Sections `json:"sections,omitempty"`
}

func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req addLineReq
	if err := readJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json body")
		return
	}

	ref := strings.TrimSpace(req.VariantRef)
	if ref == "" {
		ref = strings.TrimSpace(req.VariantID)
	}
	if ref == "" {
		writeErr(w, http.StatusBadRequest, "variantRef is required")
		return
	}

	outcome, err := h.uc.AddLine(r.Context(), ref, req.Quantity, r.Header.Get("Cookie"))
	if err != nil {
		if errors.Is(err, cartdom.ErrInvalidVariantRef) || errors.Is(err, usecase.ErrCartInvalidArgument) {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("add line failed")
		writeErr(w, http.StatusBadGateway, "cart upstream unavailable")
		return
	}

	resp := addLineResp{Applied: outcome.Applied, Ambiguous: outcome.Ambiguous}
	if outcome.Result != nil {
		cartdom.WriteSetCookies(w.Header(), outcome.Result.SetCookies)
		resp.Cart = outcome.Result.Cart
		resp.Sections = outcome.Result.Sections
	}
	if outcome.Reason != "" {
		// Upstream rejected the line (sold out, unknown variant). Not a
		// transport failure, so the cart state still renders.
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"applied": false,
			"error":   outcome.Reason,
			"cart":    resp.Cart,
		})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	res, err := h.uc.GetCart(r.Context(), r.Header.Get("Cookie"))
	if err != nil {
		// A shopper with no cart yet is the normal first-visit case, and
		// upstream hiccups on a pure read should not break the widget:
		// both render as an empty cart.
		h.log.Warn().Err(err).Msg("cart fetch failed, serving empty cart")
		writeJSON(w, http.StatusOK, map[string]any{
			"cart": cartdom.EmptyState(h.checkoutURL, h.currency),
		})
		return
	}

	cartdom.WriteSetCookies(w.Header(), res.SetCookies)
	cart := res.Cart
	if cart == nil {
		cart = cartdom.EmptyState(h.checkoutURL, h.currency)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cart":     cart,
		"sections": res.Sections,
	})
}

func (h *CartHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	res, err := h.uc.CreateCart(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("cart create failed")
		writeErr(w, http.StatusBadGateway, "cart upstream unavailable")
		return
	}

	cartdom.WriteSetCookies(w.Header(), res.SetCookies)
	writeJSON(w, http.StatusOK, map[string]any{"cart": res.Cart})
}
