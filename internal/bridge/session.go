// internal/bridge/session.go
package bridge

import "time"

// Visibility is the widget's presentation state.
type Visibility string

const (
	VisibilityHidden    Visibility = "hidden"
	VisibilityMinimized Visibility = "minimized"
	VisibilityExpanded  Visibility = "expanded"
)

// Session is the bridge's in-memory session: created when the bridge
// boots, destroyed on page unload. The bridge is the only component that
// reads host-page cookies, so the cart token observed here is the one the
// iframe learns about.
type Session struct {
	Visibility   Visibility `json:"widgetVisibility"`
	CartToken    string     `json:"cartToken,omitempty"`
	ShopDomain   string     `json:"shopDomain,omitempty"`
	LastSyncedAt time.Time  `json:"lastSyncedAt"`
}

// SessionUpdate carries partial session fields. Updates are idempotent
// merges applied last-write-wins per field, because the message channel
// guarantees nothing beyond delivery order.
type SessionUpdate struct {
	Visibility   *Visibility `json:"widgetVisibility,omitempty"`
	CartToken    *string     `json:"cartToken,omitempty"`
	ShopDomain   *string     `json:"shopDomain,omitempty"`
	LastSyncedAt *time.Time  `json:"lastSyncedAt,omitempty"`
}

// Merge applies u onto s, field by field.
func (s *Session) Merge(u SessionUpdate) {
	if u.Visibility != nil {
		s.Visibility = *u.Visibility
	}
	if u.CartToken != nil {
		s.CartToken = *u.CartToken
	}
	if u.ShopDomain != nil {
		s.ShopDomain = *u.ShopDomain
	}
	if u.LastSyncedAt != nil {
		s.LastSyncedAt = *u.LastSyncedAt
	}
}
