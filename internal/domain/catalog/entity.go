// internal/domain/catalog/entity.go
package catalog

import "time"

// CollectionRef identifies a collection an entry belongs to.
type CollectionRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Entry is one product in the catalog snapshot.
// Entries are immutable once fetched; a refresh replaces the whole snapshot.
type Entry struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Vendor           string          `json:"vendor"`
	ProductType      string          `json:"productType"`
	Tags             []string        `json:"tags"`
	Collections      []CollectionRef `json:"collections"`
	PriceMinorUnits  int64           `json:"priceMinorUnits"`
	Currency         string          `json:"currency"`
	Available        bool            `json:"available"`
	PrimaryVariantID string          `json:"primaryVariantId"`
	ImageURL         string          `json:"imageUrl,omitempty"`
}

// Snapshot is the full catalog as of FetchedAt.
// Readers receive it by reference and must treat it as read-only;
// it is either fully present or fully absent, never partially refreshed.
type Snapshot struct {
	Entries   []Entry
	FetchedAt time.Time
}
