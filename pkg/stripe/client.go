package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/restaurant-backend/pkg/config"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	maxNetworkRetriesCap = 5
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client holds the Stripe environment and webhook signing secret. Creating
// one configures the process-wide API backend used by the paymentintent and
// refund resource packages.
type Client struct {
	environment   string
	signingSecret string
	retries       int64
}

// NewClient validates the key against the environment, then installs the API
// key and a backend with bounded network retries that logs through logg.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	signingSecret := strings.TrimSpace(cfg.Secret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	retries := clampRetries(cfg.MaxNetworkRetries)
	backendCfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(retries),
	}
	if logg != nil {
		backendCfg.LeveledLogger = &leveledLogger{logg: logg, ctx: logg.WithField(ctx, "component", "stripe")}
	}
	stripe.Key = apiKey
	stripe.SetAppInfo(&stripe.AppInfo{Name: "restaurant-backend"})
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg))

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"stripe_env": env, "max_network_retries": retries}), "stripe client initialized")
	}

	return &Client{
		environment:   env,
		signingSecret: signingSecret,
		retries:       retries,
	}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func clampRetries(n int) int64 {
	switch {
	case n < 0:
		return 0
	case n > maxNetworkRetriesCap:
		return maxNetworkRetriesCap
	default:
		return int64(n)
	}
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}

// leveledLogger forwards stripe-go output to the service logger. Per-request
// info lines are demoted to debug.
type leveledLogger struct {
	logg *logger.Logger
	ctx  context.Context
}

func (l *leveledLogger) Debugf(format string, v ...interface{}) {
	l.logg.Debug(l.ctx, fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Infof(format string, v ...interface{}) {
	l.logg.Debug(l.ctx, fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Warnf(format string, v ...interface{}) {
	l.logg.Warn(l.ctx, fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Errorf(format string, v ...interface{}) {
	l.logg.Error(l.ctx, "stripe client error", fmt.Errorf(format, v...))
}
