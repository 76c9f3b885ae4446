// internal/adapters/out/shopify/ajax_client.go
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	cartdom "chatbridge/internal/domain/cart"
)

// AjaxClient talks to the store's AJAX cart endpoints (cart/add.js,
// cart.js). This is the primary integration path: it shares the shopper's
// cookie-identified cart, so the storefront's own badge and drawer stay in
// sync with what the widget adds.
type AjaxClient struct {
	shopDomain string
	client     *http.Client
	log        zerolog.Logger
}

func NewAjaxClient(shopDomain string, log zerolog.Logger) *AjaxClient {
	return &AjaxClient{
		shopDomain: strings.TrimRight(strings.TrimSpace(shopDomain), "/"),
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log.With().Str("component", "shopify_ajax").Logger(),
	}
}

type ajaxAddRequest struct {
	Items []ajaxAddItem `json:"items"`
}

type ajaxAddItem struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// ajaxError is the error body cart/add.js returns on rejection
// (out of stock, unknown variant).
type ajaxError struct {
	Status      int    `json:"status"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

// AddLine posts the numeric variant id to cart/add.js. Never retried here
// or above: the endpoint has no idempotency key and a second call adds a
// second line.
func (c *AjaxClient) AddLine(ctx context.Context, variantID int64, quantity int, sessionCookies string) ([]string, error) {
	if c == nil || c.shopDomain == "" {
		return nil, errors.New("shopify_ajax: shop domain is empty")
	}

	body, _ := json.Marshal(ajaxAddRequest{Items: []ajaxAddItem{{ID: variantID, Quantity: quantity}}})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://"+c.shopDomain+"/cart/add.js", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if sessionCookies != "" {
		req.Header.Set("Cookie", sessionCookies)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(cartdom.ErrUpstreamUnavailable, err.Error())
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	setCookies := res.Header.Values("Set-Cookie")

	if res.StatusCode >= 500 {
		c.log.Error().Int("status", res.StatusCode).Msg("cart/add.js server error")
		return nil, errors.Wrapf(cartdom.ErrUpstreamUnavailable, "cart/add.js status=%d", res.StatusCode)
	}
	if res.StatusCode >= 400 {
		var ae ajaxError
		reason := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &ae) == nil && ae.Description != "" {
			reason = ae.Description
		}
		c.log.Warn().Int("status", res.StatusCode).Str("reason", reason).Msg("cart/add.js rejected")
		return setCookies, &cartdom.RejectedError{Reason: reason}
	}

	// cart/add.js echoes only the added items; callers re-fetch cart.js for
	// the authoritative post-mutation state. The body is still parsed so a
	// garbled response surfaces as an upstream failure, not a silent success.
	var ignored map[string]any
	if err := json.Unmarshal(raw, &ignored); err != nil {
		return setCookies, errors.Wrap(cartdom.ErrUpstreamUnavailable, "cart/add.js returned non-JSON body")
	}
	return setCookies, nil
}

// GetCart reads the cookie-identified cart via cart.js. Pure read.
func (c *AjaxClient) GetCart(ctx context.Context, sessionCookies string) (*restCart, []string, error) {
	if c == nil || c.shopDomain == "" {
		return nil, nil, errors.New("shopify_ajax: shop domain is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+c.shopDomain+"/cart.js", nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if sessionCookies != "" {
		req.Header.Set("Cookie", sessionCookies)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, nil, errors.Wrap(cartdom.ErrUpstreamUnavailable, err.Error())
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, nil, errors.Wrapf(cartdom.ErrUpstreamUnavailable, "cart.js status=%d", res.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, nil, errors.Wrap(cartdom.ErrUpstreamUnavailable, err.Error())
	}

	var rc restCart
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil, nil, errors.Wrap(cartdom.ErrUpstreamUnavailable, "cart.js returned non-JSON body")
	}
	return &rc, res.Header.Values("Set-Cookie"), nil
}

// FetchSections pulls rendered theme fragments so the host page can update
// its cart UI without a reload. Best-effort: a failed section comes back
// empty rather than failing the cart operation.
func (c *AjaxClient) FetchSections(ctx context.Context, sectionIDs []string, sessionCookies string) cartdom.Sections {
	out := cartdom.Sections{}
	for _, id := range sectionIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out[id] = c.fetchSection(ctx, id, sessionCookies)
	}
	return out
}

func (c *AjaxClient) fetchSection(ctx context.Context, id, sessionCookies string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+c.shopDomain+"/?section_id="+id, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Accept", "text/html")
	if sessionCookies != "" {
		req.Header.Set("Cookie", sessionCookies)
	}

	res, err := c.client.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("section", id).Msg("section fetch failed")
		return ""
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return ""
	}
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	return string(raw)
}
