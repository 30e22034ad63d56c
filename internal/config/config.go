package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultWriteTimeout  = 15 * time.Second
	writeTimeoutHeadroom = 5 * time.Second
)

type Config struct {
	Addr   string
	AppEnv string

	CORSAllowedOrigins []string

	StripeSecretKey      string
	StripeWebhookSecret  string
	StripePublishableKey string
	PriceIDs             map[string]string

	CheckoutSuccessURL string
	CheckoutCancelURL  string
	PortalReturnURL    string

	// StoreURL is either a sqlite path (or file: DSN) or a postgres:// URL.
	StoreURL        string
	StoreServiceKey string

	AuthRequired bool
	JWTSecret    string
	JWTIssuer    string
	JWTTTL       time.Duration

	WebhookHandlerTimeout time.Duration
}

// ServerWriteTimeout is the HTTP write deadline. It always leaves headroom
// past the webhook handler timeout so a slow store write still gets its
// acknowledgment out.
func (c Config) ServerWriteTimeout() time.Duration {
	return max(defaultWriteTimeout, c.WebhookHandlerTimeout+writeTimeoutHeadroom)
}

// StripeConfigured reports whether outbound processor calls can be made.
func (c Config) StripeConfigured() bool { return c.StripeSecretKey != "" }

// WebhookConfigured reports whether inbound webhooks can be verified.
func (c Config) WebhookConfigured() bool { return c.StripeWebhookSecret != "" }

// LoadDotEnv loads variables from the given .env files, skipping files that
// don't exist. Variables already present in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func LoadFromEnv() (Config, error) {
	ttlMinutes := int64(60)
	if v := os.Getenv("JWT_TTL_MINUTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			ttlMinutes = n
		} else {
			fmt.Fprintf(os.Stderr, "WARNING: invalid JWT_TTL_MINUTES=%q, using default %d\n", v, ttlMinutes)
		}
	}

	handlerTimeout := 10 * time.Second
	if v := os.Getenv("WEBHOOK_HANDLER_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			handlerTimeout = time.Duration(n) * time.Second
		} else {
			fmt.Fprintf(os.Stderr, "WARNING: invalid WEBHOOK_HANDLER_TIMEOUT_SECONDS=%q, using default %s\n", v, handlerTimeout)
		}
	}

	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "billing-relay"
	}

	cfg := Config{
		Addr:   os.Getenv("BACKEND_ADDR"),
		AppEnv: strings.TrimSpace(os.Getenv("APP_ENV")),

		StripeSecretKey:      strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		StripeWebhookSecret:  strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET")),
		StripePublishableKey: strings.TrimSpace(os.Getenv("STRIPE_PUBLISHABLE_KEY")),
		PriceIDs:             map[string]string{},

		CheckoutSuccessURL: os.Getenv("CHECKOUT_SUCCESS_URL"),
		CheckoutCancelURL:  os.Getenv("CHECKOUT_CANCEL_URL"),
		PortalReturnURL:    os.Getenv("PORTAL_RETURN_URL"),

		StoreURL:        strings.TrimSpace(os.Getenv("STORE_URL")),
		StoreServiceKey: os.Getenv("STORE_SERVICE_KEY"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: issuer,
		JWTTTL:    time.Duration(ttlMinutes) * time.Minute,

		WebhookHandlerTimeout: handlerTimeout,
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, p)
			}
		}
	}

	for _, plan := range []string{"standard", "premium"} {
		if v := strings.TrimSpace(os.Getenv("STRIPE_PRICE_" + strings.ToUpper(plan))); v != "" {
			cfg.PriceIDs[plan] = v
		}
	}

	if v := strings.TrimSpace(os.Getenv("AUTH_REQUIRED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AUTH_REQUIRED=%q: %w", v, err)
		}
		cfg.AuthRequired = b
	}

	if cfg.CheckoutSuccessURL == "" {
		cfg.CheckoutSuccessURL = "http://localhost:5173/success?session_id={CHECKOUT_SESSION_ID}"
	}
	if cfg.CheckoutCancelURL == "" {
		cfg.CheckoutCancelURL = "http://localhost:5173/cancel"
	}
	if cfg.PortalReturnURL == "" {
		cfg.PortalReturnURL = "http://localhost:5173/account"
	}

	var missing []string
	if cfg.StoreURL == "" {
		missing = append(missing, "STORE_URL")
	}
	if cfg.AuthRequired && cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET (required when AUTH_REQUIRED=true)")
	}
	// BACKEND_ADDR is optional if PORT is set by the hosting environment.
	if cfg.Addr == "" {
		if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
			if strings.Contains(port, ":") {
				cfg.Addr = port
			} else {
				cfg.Addr = ":" + port
			}
		}
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing/invalid env: %s", strings.Join(missing, ", "))
	}

	// Stripe credentials are optional at boot so the config endpoint can
	// report what is missing; the affected endpoints fail with a config error.
	if !cfg.StripeConfigured() {
		log.Printf("config: STRIPE_SECRET_KEY not set; checkout, portal and verify will fail")
	}
	if !cfg.WebhookConfigured() {
		log.Printf("config: STRIPE_WEBHOOK_SECRET not set; webhooks will be rejected")
	}

	return cfg, nil
}
