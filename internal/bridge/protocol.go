// internal/bridge/protocol.go
package bridge

import "encoding/json"

// MessageType is the closed enum of bridge messages. Anything outside the
// enum is ignored, not an error: the postMessage channel is shared with
// whatever else the host page runs.
type MessageType string

const (
	// iframe → host
	MsgExpand         MessageType = "expand"
	MsgMinimize       MessageType = "minimize"
	MsgRequestSession MessageType = "REQUEST_SESSION"
	MsgAddToCart      MessageType = "ADD_TO_CART"

	// host → iframe
	MsgInitSession      MessageType = "INIT_SESSION"
	MsgSessionUpdate    MessageType = "SESSION_UPDATE"
	MsgCartUpdate       MessageType = "CART_UPDATE"
	MsgAddToCartSuccess MessageType = "ADD_TO_CART_SUCCESS"
	MsgAddToCartError   MessageType = "ADD_TO_CART_ERROR"
)

// Envelope is the wire shape of every bridge message: an explicit type
// discriminator plus an optional payload.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload into an Envelope. A nil payload yields a
// bare typed message.
func NewEnvelope(t MessageType, payload any) (Envelope, error) {
	env := Envelope{Type: t}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, err
		}
		env.Payload = raw
	}
	return env, nil
}

// AddToCartPayload is the ADD_TO_CART request body.
type AddToCartPayload struct {
	VariantRef string `json:"variantRef"`
	Quantity   int    `json:"quantity"`
}

// AddToCartErrorPayload is sent on ADD_TO_CART_ERROR. Message is neutral;
// upstream error bodies stay in the logs.
type AddToCartErrorPayload struct {
	Message string `json:"message"`
}

// CartUpdatePayload is the CART_UPDATE summary the iframe renders.
type CartUpdatePayload struct {
	CartID        string `json:"cartId"`
	TotalQuantity int    `json:"totalQuantity"`
	CheckoutURL   string `json:"checkoutUrl"`
	Currency      string `json:"currency"`
}
