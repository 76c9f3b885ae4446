// internal/adapters/out/shopify/storefront_client.go
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

const storefrontAPIVersion = "2023-10"

// StorefrontClient talks to the Storefront GraphQL API. It is the fallback
// cart path (token-addressed carts for callers without a cart cookie) and
// the catalog source.
type StorefrontClient struct {
	shopDomain  string
	accessToken string
	client      *http.Client
	log         zerolog.Logger
}

func NewStorefrontClient(shopDomain, accessToken string, log zerolog.Logger) *StorefrontClient {
	return &StorefrontClient{
		shopDomain:  strings.TrimRight(strings.TrimSpace(shopDomain), "/"),
		accessToken: strings.TrimSpace(accessToken),
		client:      &http.Client{Timeout: 15 * time.Second},
		log:         log.With().Str("component", "shopify_storefront").Logger(),
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlUserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// execute posts one GraphQL document and decodes data into out.
func (c *StorefrontClient) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	if c == nil || c.shopDomain == "" {
		return errors.New("shopify_storefront: shop domain is empty")
	}
	if c.accessToken == "" {
		return errors.New("shopify_storefront: access token is empty")
	}

	body, _ := json.Marshal(gqlRequest{Query: query, Variables: variables})

	url := "https://" + c.shopDomain + "/api/" + storefrontAPIVersion + "/graphql.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Storefront-Access-Token", c.accessToken)

	res, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(cartdom.ErrUpstreamUnavailable, err.Error())
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		c.log.Error().Int("status", res.StatusCode).Str("body", strings.TrimSpace(string(raw))).Msg("graphql transport error")
		return errors.Wrapf(cartdom.ErrUpstreamUnavailable, "graphql status=%d", res.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return errors.Wrap(cartdom.ErrUpstreamUnavailable, err.Error())
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return errors.Wrap(cartdom.ErrUpstreamUnavailable, "graphql returned non-JSON body")
	}
	if len(envelope.Errors) > 0 {
		return &cartdom.RejectedError{Reason: envelope.Errors[0].Message}
	}
	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return errors.Wrap(cartdom.ErrUpstreamUnavailable, "graphql data shape mismatch")
		}
	}
	return nil
}

const cartFields = `
  id
  totalQuantity
  checkoutUrl
  lines(first: 100) {
    edges {
      node {
        id
        quantity
        merchandise {
          ... on ProductVariant {
            id
            title
            price {
              amount
              currencyCode
            }
          }
        }
      }
    }
  }
  cost {
    totalAmount {
      amount
      currencyCode
    }
  }
`

// CreateCart runs cartCreate and returns the new token-addressed cart.
func (c *StorefrontClient) CreateCart(ctx context.Context) (*gqlCart, error) {
	query := `
mutation cartCreate($input: CartInput!) {
  cartCreate(input: $input) {
    cart {` + cartFields + `}
    userErrors { field message }
  }
}`

	var data struct {
		CartCreate struct {
			Cart       *gqlCart       `json:"cart"`
			UserErrors []gqlUserError `json:"userErrors"`
		} `json:"cartCreate"`
	}
	if err := c.execute(ctx, query, map[string]any{"input": map[string]any{}}, &data); err != nil {
		return nil, err
	}
	if len(data.CartCreate.UserErrors) > 0 {
		return nil, &cartdom.RejectedError{Reason: data.CartCreate.UserErrors[0].Message}
	}
	if data.CartCreate.Cart == nil {
		return nil, errors.Wrap(cartdom.ErrUpstreamUnavailable, "cartCreate returned no cart")
	}
	return data.CartCreate.Cart, nil
}

// GetCart reads a token-addressed cart.
func (c *StorefrontClient) GetCart(ctx context.Context, cartID string) (*gqlCart, error) {
	cid := strings.TrimSpace(cartID)
	if cid == "" {
		return nil, errors.New("shopify_storefront: cartID is empty")
	}

	query := `
query getCart($cartId: ID!) {
  cart(id: $cartId) {` + cartFields + `}
}`

	var data struct {
		Cart *gqlCart `json:"cart"`
	}
	if err := c.execute(ctx, query, map[string]any{"cartId": cid}, &data); err != nil {
		return nil, err
	}
	if data.Cart == nil {
		return nil, errors.Wrap(cartdom.ErrUpstreamUnavailable, "cart not found upstream")
	}
	return data.Cart, nil
}

// AddLine adds quantity of variantGID to the cart. When the variant is
// already a line, the existing line's quantity is raised via
// cartLinesUpdate instead, matching upstream merge behavior.
func (c *StorefrontClient) AddLine(ctx context.Context, cartID, variantGID string, quantity int) (*gqlCart, error) {
	existing, err := c.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	for _, e := range existing.Lines.Edges {
		if e.Node.Merchandise.ID == variantGID {
			return c.updateLine(ctx, cartID, e.Node.ID, e.Node.Quantity+quantity)
		}
	}

	query := `
mutation cartLinesAdd($cartId: ID!, $lines: [CartLineInput!]!) {
  cartLinesAdd(cartId: $cartId, lines: $lines) {
    cart {` + cartFields + `}
    userErrors { field message }
  }
}`

	variables := map[string]any{
		"cartId": cartID,
		"lines": []map[string]any{
			{"merchandiseId": variantGID, "quantity": quantity},
		},
	}

	var data struct {
		CartLinesAdd struct {
			Cart       *gqlCart       `json:"cart"`
			UserErrors []gqlUserError `json:"userErrors"`
		} `json:"cartLinesAdd"`
	}
	if err := c.execute(ctx, query, variables, &data); err != nil {
		return nil, err
	}
	if len(data.CartLinesAdd.UserErrors) > 0 {
		return nil, &cartdom.RejectedError{Reason: data.CartLinesAdd.UserErrors[0].Message}
	}
	if data.CartLinesAdd.Cart == nil {
		return nil, errors.Wrap(cartdom.ErrUpstreamUnavailable, "cartLinesAdd returned no cart")
	}
	return data.CartLinesAdd.Cart, nil
}

func (c *StorefrontClient) updateLine(ctx context.Context, cartID, lineID string, quantity int) (*gqlCart, error) {
	query := `
mutation cartLinesUpdate($cartId: ID!, $lines: [CartLineUpdateInput!]!) {
  cartLinesUpdate(cartId: $cartId, lines: $lines) {
    cart {` + cartFields + `}
    userErrors { field message }
  }
}`

	variables := map[string]any{
		"cartId": cartID,
		"lines": []map[string]any{
			{"id": lineID, "quantity": quantity},
		},
	}

	var data struct {
		CartLinesUpdate struct {
			Cart       *gqlCart       `json:"cart"`
			UserErrors []gqlUserError `json:"userErrors"`
		} `json:"cartLinesUpdate"`
	}
	if err := c.execute(ctx, query, variables, &data); err != nil {
		return nil, err
	}
	if len(data.CartLinesUpdate.UserErrors) > 0 {
		return nil, &cartdom.RejectedError{Reason: data.CartLinesUpdate.UserErrors[0].Message}
	}
	if data.CartLinesUpdate.Cart == nil {
		return nil, errors.Wrap(cartdom.ErrUpstreamUnavailable, "cartLinesUpdate returned no cart")
	}
	return data.CartLinesUpdate.Cart, nil
}
