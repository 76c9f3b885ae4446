// internal/platform/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the whole application's environment configuration.
type Config struct {
	Port string

	// Upstream store.
	ShopDomain          string
	StorefrontToken     string
	StorefrontTokenName string // Secret Manager resource name; wins over StorefrontToken when set
	PreferGraphQL       bool
	FetchSections       bool

	// Conversation layer.
	BookingURL     string
	AllowedOrigins []string
	CatalogTTL     time.Duration
	SessionTTL     time.Duration

	// Firestore-backed session store; empty project means in-memory.
	FirestoreProjectID string

	// Abuse controls.
	RateLimit  int
	RateWindow time.Duration
}

// Load reads the environment and returns the Config.
func Load() *Config {
	return &Config{
		Port: getenvDefault("PORT", "8080"),

		ShopDomain:          os.Getenv("SHOP_DOMAIN"),
		StorefrontToken:     os.Getenv("STOREFRONT_ACCESS_TOKEN"),
		StorefrontTokenName: os.Getenv("STOREFRONT_ACCESS_TOKEN_SECRET"),
		PreferGraphQL:       getenvBool("PREFER_GRAPHQL", false),
		FetchSections:       getenvBool("FETCH_CART_SECTIONS", true),

		BookingURL:     os.Getenv("BOOKING_URL"),
		AllowedOrigins: splitCSV(os.Getenv("ALLOWED_ORIGINS")),
		CatalogTTL:     getenvDuration("CATALOG_TTL", 5*time.Minute),
		SessionTTL:     getenvDuration("SESSION_TTL", 30*time.Minute),

		FirestoreProjectID: os.Getenv("FIRESTORE_PROJECT_ID"),

		RateLimit:  getenvInt("RATE_LIMIT", 10),
		RateWindow: getenvDuration("RATE_WINDOW", time.Minute),
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
