package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults for the shopping list engine tunables. Each can be overridden
// via environment variables.
const (
	DefaultFallbackUnitPrice     = 2.99
	DefaultSnapshotMaxAge        = 10 * time.Minute
	DefaultSnapshotWriteInterval = 1 * time.Second
	DefaultSnapshotBuster        = "v2"
)

// Config holds the configuration for the application.
type Config struct {
	// LLM providers. At least one key must be set.
	OpenAIAPIKey string
	GeminiAPIKey string
	LLMProvider  string // "openai" or "gemini"

	PromotionsDir string
	DatabasePath  string
	StoreName     string
	FlyerIndexURL string

	// Secret used to sign and verify admin tokens for the scrape trigger.
	// When empty the scrape endpoint is disabled.
	AdminAPISecret string

	// Shopping list engine tunables.
	FallbackUnitPrice     float64
	SnapshotMaxAge        time.Duration
	SnapshotWriteInterval time.Duration
	SnapshotBuster        string

	// Telegram Config (optional for CLI and server, required for Bot)
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	openaiKey := os.Getenv("OPENAI_API_KEY")
	geminiKey := os.Getenv("GEMINI_API_KEY")
	if openaiKey == "" && geminiKey == "" {
		return nil, fmt.Errorf("neither OPENAI_API_KEY nor GEMINI_API_KEY environment variable is set")
	}

	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		// Pick whichever provider has a key, preferring OpenAI.
		if openaiKey != "" {
			provider = "openai"
		} else {
			provider = "gemini"
		}
	}
	if provider != "openai" && provider != "gemini" {
		return nil, fmt.Errorf("LLM_PROVIDER must be \"openai\" or \"gemini\", got %q", provider)
	}

	promotionsDir := os.Getenv("PROMOTIONS_DIR")
	if promotionsDir == "" {
		promotionsDir = "promotion_results"
	}

	databasePath := os.Getenv("DATABASE_PATH")
	if databasePath == "" {
		databasePath = "data/lazyrecipes.db"
	}

	storeName := os.Getenv("STORE_NAME")
	if storeName == "" {
		storeName = "metro"
	}

	fallbackPrice := DefaultFallbackUnitPrice
	if v := os.Getenv("FALLBACK_UNIT_PRICE"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid FALLBACK_UNIT_PRICE %q", v)
		}
		fallbackPrice = parsed
	}

	maxAge := DefaultSnapshotMaxAge
	if v := os.Getenv("SNAPSHOT_MAX_AGE"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid SNAPSHOT_MAX_AGE %q", v)
		}
		maxAge = parsed
	}

	writeInterval := DefaultSnapshotWriteInterval
	if v := os.Getenv("SNAPSHOT_WRITE_INTERVAL"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid SNAPSHOT_WRITE_INTERVAL %q", v)
		}
		writeInterval = parsed
	}

	buster := os.Getenv("SNAPSHOT_BUSTER")
	if buster == "" {
		buster = DefaultSnapshotBuster
	}

	flyerIndexURL := os.Getenv("FLYER_INDEX_URL")
	if flyerIndexURL == "" {
		flyerIndexURL = "https://www.redflagdeals.com/flyers/"
	}

	var allowedIDs []int64
	if v := os.Getenv("TELEGRAM_ALLOWED_USER_IDS"); v != "" {
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS entry %q", part)
			}
			allowedIDs = append(allowedIDs, id)
		}
	}

	return &Config{
		OpenAIAPIKey:           openaiKey,
		GeminiAPIKey:           geminiKey,
		LLMProvider:            provider,
		PromotionsDir:          promotionsDir,
		DatabasePath:           databasePath,
		StoreName:              storeName,
		FlyerIndexURL:          flyerIndexURL,
		AdminAPISecret:         os.Getenv("ADMIN_API_SECRET"),
		FallbackUnitPrice:      fallbackPrice,
		SnapshotMaxAge:         maxAge,
		SnapshotWriteInterval:  writeInterval,
		SnapshotBuster:         buster,
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowedIDs,
	}, nil
}
