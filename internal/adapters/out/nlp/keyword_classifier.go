// internal/adapters/out/nlp/keyword_classifier.go
package nlp

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"chatbridge/internal/application/usecase"
)

// productRequestMarker is the structured signal an upstream language model
// embeds in its reply when it recognizes a product request. Utterances that
// already carry the marker (model-relayed input) are honored directly.
const productRequestMarker = "PRODUCT_REQUEST:"

// KeywordClassifier is the default, deterministic Classifier: it matches
// the utterance against action words and the live catalog's vendors,
// product types and tags. A model-backed classifier can replace it behind
// the same interface.
type KeywordClassifier struct {
	cache        usecase.SnapshotProvider
	actionTerms  []string
	bookingTerms []string
	defaultReply string
	log          zerolog.Logger
}

func NewKeywordClassifier(cache usecase.SnapshotProvider, log zerolog.Logger) *KeywordClassifier {
	return &KeywordClassifier{
		cache:        cache,
		actionTerms:  []string{"show", "see", "buy", "order", "more", "product", "cream"},
		bookingTerms: []string{"book", "booking", "appointment", "reserve"},
		defaultReply: "I can help you find products, book an appointment, or answer questions about our range.",
		log:          log.With().Str("component", "keyword_classifier").Logger(),
	}
}

func (c *KeywordClassifier) Classify(ctx context.Context, utterance string) (usecase.Intent, error) {
	text := strings.ToLower(strings.TrimSpace(utterance))

	if i := strings.Index(utterance, productRequestMarker); i >= 0 {
		keywords := strings.TrimSpace(utterance[i+len(productRequestMarker):])
		return usecase.Intent{Kind: usecase.IntentProductQuery, Keywords: keywords}, nil
	}

	for _, t := range c.bookingTerms {
		if strings.Contains(text, t) {
			return usecase.Intent{Kind: usecase.IntentBooking}, nil
		}
	}

	if c.isProductRequest(ctx, text) {
		return usecase.Intent{Kind: usecase.IntentProductQuery, Keywords: text}, nil
	}

	return usecase.Intent{Kind: usecase.IntentSmallTalk, Reply: c.defaultReply}, nil
}

// isProductRequest checks the utterance against action words plus the
// store's own vocabulary (vendors, product types, tags) from the current
// snapshot, so a brand name alone counts as a product request.
func (c *KeywordClassifier) isProductRequest(ctx context.Context, text string) bool {
	for _, t := range c.actionTerms {
		if strings.Contains(text, t) {
			return true
		}
	}

	snap, err := c.cache.Get(ctx)
	if err != nil {
		// Without a catalog the action-term check above is the best we
		// can do.
		c.log.Debug().Err(err).Msg("catalog unavailable for term matching")
		return false
	}

	for _, e := range snap.Entries {
		if termMatch(text, e.Vendor) || termMatch(text, e.ProductType) {
			return true
		}
		for _, tag := range e.Tags {
			if termMatch(text, tag) {
				return true
			}
		}
	}
	return false
}

func termMatch(text, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	return term != "" && strings.Contains(text, term)
}
