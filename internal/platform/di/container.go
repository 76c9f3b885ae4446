// internal/platform/di/container.go
package di

import (
	"context"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	inhttp "chatbridge/internal/adapters/in/http"
	"chatbridge/internal/adapters/in/http/handler"
	"chatbridge/internal/adapters/in/http/middleware"
	fsrepo "chatbridge/internal/adapters/out/firestore"
	"chatbridge/internal/adapters/out/memory"
	"chatbridge/internal/adapters/out/nlp"
	"chatbridge/internal/adapters/out/shopify"
	"chatbridge/internal/application/usecase"
	"chatbridge/internal/bridge"
	convdom "chatbridge/internal/domain/conversation"
	"chatbridge/internal/platform/cache"
	"chatbridge/internal/platform/config"
)

// sweepInterval is how often the in-memory session store drops expired
// conversations.
const sweepInterval = 5 * time.Minute

// Container is the bundle of wired dependencies main.go serves.
type Container struct {
	Router http.Handler

	fs        *firestore.Client
	cleanupFn []func()
}

// Close releases underlying resources. Safe to call once on shutdown.
func (c *Container) Close() {
	for _, fn := range c.cleanupFn {
		fn()
	}
	if c.fs != nil {
		_ = c.fs.Close()
	}
}

// Build wires clients, repositories, usecases and handlers.
//
// Strictness policy: the shop domain and storefront token are required,
// everything else degrades. Firestore falling over means in-memory
// sessions; Secret Manager falling over means the env token.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	if cfg.ShopDomain == "" {
		return nil, errors.New("di: SHOP_DOMAIN is required")
	}

	c := &Container{}

	token, err := resolveStorefrontToken(ctx, cfg, c, log)
	if err != nil {
		return nil, err
	}

	// Upstream clients and the gateway over them.
	ajax := shopify.NewAjaxClient(cfg.ShopDomain, log)
	storefront := shopify.NewStorefrontClient(cfg.ShopDomain, token, log)
	gateway := shopify.NewGateway(cfg.ShopDomain, ajax, storefront, shopify.GatewayConfig{
		PreferGraphQL: cfg.PreferGraphQL,
		FetchSections: cfg.FetchSections,
	}, log)

	catalogCache := cache.NewCatalogCache(storefront, cfg.CatalogTTL, log)
	convRepo := buildConversationRepo(ctx, cfg, c, log)

	cartUC := usecase.NewCartUsecase(gateway, log)
	classifier := nlp.NewKeywordClassifier(catalogCache, log)
	chatUC := usecase.NewChatUsecase(classifier, catalogCache, convRepo, cartUC, cfg.BookingURL, log)

	wsHandler := bridge.NewWSHandler(bridge.Config{
		AllowedOrigins: cfg.AllowedOrigins,
		CartCookieName: shopify.CartCookieName,
		ShopDomain:     cfg.ShopDomain,
	}, nil, gateway, log)

	checkoutURL := "https://" + cfg.ShopDomain + "/cart"
	c.Router = inhttp.NewRouter(inhttp.Deps{
		Chat:           handler.NewChatHandler(chatUC, log),
		Cart:           handler.NewCartHandler(cartUC, checkoutURL, "", log),
		BridgeWS:       wsHandler,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimiter:    middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, log),
		Log:            log,
	})

	return c, nil
}

func resolveStorefrontToken(ctx context.Context, cfg *config.Config, c *Container, log zerolog.Logger) (string, error) {
	if cfg.StorefrontTokenName != "" {
		sm, err := secretmanager.NewClient(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("secret manager unavailable, falling back to env token")
		} else {
			c.cleanupFn = append(c.cleanupFn, func() { _ = sm.Close() })
			provider := &storefrontTokenSM{sm: sm}
			token, err := provider.Fetch(ctx, cfg.StorefrontTokenName)
			if err == nil {
				return token, nil
			}
			log.Warn().Err(err).Msg("secret fetch failed, falling back to env token")
		}
	}
	if cfg.StorefrontToken == "" {
		return "", errors.New("di: storefront access token is required")
	}
	return cfg.StorefrontToken, nil
}

// buildConversationRepo prefers Firestore when a project is configured and
// degrades to the in-memory store (with its own sweeper) otherwise.
func buildConversationRepo(ctx context.Context, cfg *config.Config, c *Container, log zerolog.Logger) convdom.Repository {
	if cfg.FirestoreProjectID != "" {
		client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			log.Warn().Err(err).Msg("firestore unavailable, using in-memory sessions")
		} else {
			c.fs = client
			return fsrepo.NewConversationRepositoryFS(client, cfg.SessionTTL)
		}
	}

	repo := memory.NewConversationRepositoryMem(cfg.SessionTTL)
	sweepCtx, cancel := context.WithCancel(context.Background())
	c.cleanupFn = append(c.cleanupFn, cancel)
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n := repo.Sweep(); n > 0 {
					log.Debug().Int("evicted", n).Msg("session sweep")
				}
			}
		}
	}()
	return repo
}
