// internal/domain/catalog/search.go
package catalog

import (
	"sort"
	"strings"
)

// Score weights. Vendor dominates so that brand queries ("thalgo")
// surface the brand's products ahead of incidental title matches.
const (
	scoreTitle       = 10
	scoreDescription = 5
	scoreVendor      = 15
	scoreProductType = 8
	scoreTag         = 5
	scoreCollection  = 8
)

// DefaultSearchLimit is the number of entries a search returns unless the
// caller asks for more.
const DefaultSearchLimit = 3

// ScoredEntry pairs an entry with its relevance score. Transient; produced
// per search call and never persisted.
type ScoredEntry struct {
	Entry Entry `json:"entry"`
	Score int   `json:"score"`
}

// Filler picks up to n entries from candidates to pad a result that has
// fewer than limit scored hits. candidates are available, non-excluded
// entries in catalog order. Implementations must be deterministic for
// reproducible behavior; production may swap in randomness.
type Filler func(candidates []Entry, n int) []Entry

// CatalogOrderFiller returns the first n candidates in catalog order.
func CatalogOrderFiller(candidates []Entry, n int) []Entry {
	if n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n]
}

// Search scores snapshot entries against phrase and returns up to limit
// results ordered by non-increasing score. Unavailable entries and entries
// in exclude are dropped before scoring. Ties keep catalog order, so the
// same snapshot, phrase and exclusion set always yield the same output.
// When fewer than limit entries score above zero the remainder is filled
// by fill (CatalogOrderFiller when nil).
func Search(phrase string, snap *Snapshot, exclude map[string]struct{}, limit int, fill Filler) []ScoredEntry {
	if snap == nil || len(snap.Entries) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if fill == nil {
		fill = CatalogOrderFiller
	}

	needle := strings.ToLower(strings.TrimSpace(phrase))

	scored := make([]ScoredEntry, 0, limit)
	var zeros []Entry

	for _, e := range snap.Entries {
		if !e.Available {
			continue
		}
		if _, skip := exclude[e.ID]; skip {
			continue
		}

		s := scoreEntry(needle, e)
		if s > 0 {
			scored = append(scored, ScoredEntry{Entry: e, Score: s})
		} else {
			zeros = append(zeros, e)
		}
	}

	// Stable sort keyed on score only, so equal scores keep catalog order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		return scored[:limit]
	}

	for _, e := range fill(zeros, limit-len(scored)) {
		scored = append(scored, ScoredEntry{Entry: e, Score: 0})
	}
	return scored
}

func scoreEntry(needle string, e Entry) int {
	if needle == "" {
		return 0
	}

	s := 0
	if strings.Contains(strings.ToLower(e.Title), needle) {
		s += scoreTitle
	}
	if strings.Contains(strings.ToLower(e.Description), needle) {
		s += scoreDescription
	}
	if strings.Contains(strings.ToLower(e.Vendor), needle) {
		s += scoreVendor
	}
	if strings.Contains(strings.ToLower(e.ProductType), needle) {
		s += scoreProductType
	}
	for _, t := range e.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			s += scoreTag
			break
		}
	}
	for _, c := range e.Collections {
		if strings.Contains(strings.ToLower(c.Title), needle) {
			s += scoreCollection
			break
		}
	}
	return s
}
