// internal/application/usecase/chat_usecase.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatbridge/internal/domain/catalog"
	cartdom "chatbridge/internal/domain/cart"
	convdom "chatbridge/internal/domain/conversation"
)

var (
	ErrChatInvalidArgument = errors.New("chat_usecase: invalid argument")
)

// IntentKind classifies what the shopper wants from an utterance.
type IntentKind string

const (
	IntentProductQuery IntentKind = "product_query"
	IntentAddToCart    IntentKind = "add_to_cart"
	IntentBooking      IntentKind = "booking"
	IntentSmallTalk    IntentKind = "small_talk"
)

// Intent is the classifier's verdict. Keywords is the search phrase for
// product queries; Reply is the conversational answer for small talk.
type Intent struct {
	Kind       IntentKind
	Keywords   string
	Reply      string
	VariantRef string
	Quantity   int
}

// Classifier is the NLP collaborator's contract. The model call itself is
// out of scope; a deterministic keyword classifier ships as the default.
type Classifier interface {
	Classify(ctx context.Context, utterance string) (Intent, error)
}

// ResultKind discriminates the structured payload handed to the chat
// surface.
type ResultKind string

const (
	ResultBooking      ResultKind = "booking"
	ResultProducts     ResultKind = "products"
	ResultPlainText    ResultKind = "plain_text"
	ResultCartMutation ResultKind = "cart_mutation"
)

const (
	msgProductsIntro = "Here are some products that might suit you:"
	msgAdded         = "Added to your cart."
	msgAddUnknown    = "I could not confirm the item was added. Your cart is shown as it is now."
	msgWentWrong     = "Sorry, something went wrong. Please try again."
)

// Result is what the orchestrator returns to the (out-of-scope) UI layer.
// Upstream error bodies never appear here; they are logged instead.
type Result struct {
	Kind       ResultKind            `json:"kind"`
	Content    string                `json:"content"`
	Products   []catalog.ScoredEntry `json:"products,omitempty"`
	BookingURL string                `json:"bookingUrl,omitempty"`
	Cart       *cartdom.State        `json:"cart,omitempty"`
	SetCookies []string              `json:"-"`
}

// ChatUsecase is the conversation orchestrator: it classifies the
// utterance, runs search or cart mutations, tracks shown products per
// session, and returns a structured payload. It holds no network clients;
// all I/O goes through the injected collaborators.
type ChatUsecase struct {
	classifier Classifier
	cache      SnapshotProvider
	convRepo   convdom.Repository
	cartUC     *CartUsecase
	bookingURL string
	limit      int
	clock      Clock
	log        zerolog.Logger
}

// SnapshotProvider is the catalog cache's client-facing contract.
type SnapshotProvider interface {
	Get(ctx context.Context) (*catalog.Snapshot, error)
}

// Clock provides current time (for testability).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func NewChatUsecase(classifier Classifier, cache SnapshotProvider, convRepo convdom.Repository, cartUC *CartUsecase, bookingURL string, log zerolog.Logger) *ChatUsecase {
	return &ChatUsecase{
		classifier: classifier,
		cache:      cache,
		convRepo:   convRepo,
		cartUC:     cartUC,
		bookingURL: bookingURL,
		limit:      catalog.DefaultSearchLimit,
		clock:      systemClock{},
		log:        log.With().Str("component", "chat_usecase").Logger(),
	}
}

// NewChatUsecaseWithClock is useful for tests.
func NewChatUsecaseWithClock(classifier Classifier, cache SnapshotProvider, convRepo convdom.Repository, cartUC *CartUsecase, bookingURL string, clock Clock, log zerolog.Logger) *ChatUsecase {
	uc := NewChatUsecase(classifier, cache, convRepo, cartUC, bookingURL, log)
	if clock != nil {
		uc.clock = clock
	}
	return uc
}

// Respond handles one utterance for one session.
func (uc *ChatUsecase) Respond(ctx context.Context, sessionID, utterance, sessionCookies string) (*Result, error) {
	sid := strings.TrimSpace(sessionID)
	text := strings.TrimSpace(utterance)
	if sid == "" || text == "" {
		return nil, ErrChatInvalidArgument
	}

	intent, err := uc.classifier.Classify(ctx, text)
	if err != nil {
		uc.log.Error().Err(err).Str("sessionId", sid).Msg("classify failed")
		return &Result{Kind: ResultPlainText, Content: msgWentWrong}, nil
	}

	switch intent.Kind {
	case IntentProductQuery:
		return uc.respondProducts(ctx, sid, intent.Keywords)
	case IntentAddToCart:
		return uc.respondAddToCart(ctx, intent, sessionCookies)
	case IntentBooking:
		return &Result{Kind: ResultBooking, BookingURL: uc.bookingURL}, nil
	default:
		return &Result{Kind: ResultPlainText, Content: intent.Reply}, nil
	}
}

func (uc *ChatUsecase) respondProducts(ctx context.Context, sessionID, keywords string) (*Result, error) {
	snap, err := uc.cache.Get(ctx)
	if err != nil {
		uc.log.Error().Err(err).Msg("catalog unavailable")
		return &Result{Kind: ResultPlainText, Content: msgWentWrong}, nil
	}

	now := uc.clock.Now()
	state, err := uc.convRepo.Get(ctx, sessionID)
	if err != nil {
		uc.log.Error().Err(err).Str("sessionId", sessionID).Msg("conversation load failed")
		return &Result{Kind: ResultPlainText, Content: msgWentWrong}, nil
	}
	if state == nil {
		state = convdom.NewState(sessionID, now)
	}

	hits := catalog.Search(keywords, snap, state.ShownEntryIDs, uc.limit, nil)

	shown := make([]string, 0, len(hits))
	for _, h := range hits {
		shown = append(shown, h.Entry.ID)
	}
	state.MarkShown(shown, now)
	if err := uc.convRepo.Upsert(ctx, state); err != nil {
		// Losing the exclusion set only risks repeating a suggestion.
		uc.log.Warn().Err(err).Str("sessionId", sessionID).Msg("conversation save failed")
	}

	return &Result{Kind: ResultProducts, Content: msgProductsIntro, Products: hits}, nil
}

func (uc *ChatUsecase) respondAddToCart(ctx context.Context, intent Intent, sessionCookies string) (*Result, error) {
	outcome, err := uc.cartUC.AddLine(ctx, intent.VariantRef, intent.Quantity, sessionCookies)
	if err != nil {
		if errors.Is(err, cartdom.ErrInvalidVariantRef) || errors.Is(err, ErrCartInvalidArgument) {
			return nil, err
		}
		uc.log.Error().Err(err).Msg("add to cart failed")
		res := &Result{Kind: ResultCartMutation, Content: msgWentWrong}
		if outcome != nil && outcome.Result != nil {
			res.Cart = outcome.Result.Cart
			res.SetCookies = outcome.Result.SetCookies
		}
		return res, nil
	}

	res := &Result{Kind: ResultCartMutation}
	if outcome.Result != nil {
		res.Cart = outcome.Result.Cart
		res.SetCookies = outcome.Result.SetCookies
	}
	switch {
	case outcome.Applied:
		res.Content = msgAdded
	case outcome.Reason != "":
		// A failed add never reads as success; the upstream reason is
		// logged but not leaked.
		res.Content = msgWentWrong
	default:
		res.Content = msgAddUnknown
	}
	return res, nil
}
