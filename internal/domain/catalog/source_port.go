// internal/domain/catalog/source_port.go
package catalog

import "context"

// Source is the outbound port for fetching the full catalog from the
// upstream commerce backend. Implemented by the Storefront adapter.
type Source interface {
	// FetchAll returns every entry the store exposes.
	// A failed fetch must not return a partial slice.
	FetchAll(ctx context.Context) ([]Entry, error)
}
