package stripe

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const defaultCurrency = "usd"

// keyPrefixes lists the secret and restricted key prefixes each Stripe mode
// accepts.
var keyPrefixes = map[string][]string{
	"test": {"sk_test", "rk_test"},
	"live": {"sk_live", "rk_live"},
}

var currencyRe = regexp.MustCompile(`^[a-z]{3}$`)

var (
	errAPIKeyRequired  = errors.New("stripe api key is required")
	errSecretRequired  = errors.New("stripe webhook secret is required")
	errInvalidCurrency = errors.New("stripe currency must be a three-letter ISO code")
)

// Client holds the validated Stripe settings. Creating one sets the
// stripe-go package key used by the checkout/session calls.
type Client struct {
	environment   string
	signingSecret string
	currency      string
}

func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return nil, fmt.Errorf("stripe environment must be test or live, got %q", env)
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	secret := strings.TrimSpace(cfg.Secret)
	switch {
	case apiKey == "":
		return nil, errAPIKeyRequired
	case secret == "":
		return nil, errSecretRequired
	case !hasAnyPrefix(apiKey, prefixes):
		return nil, fmt.Errorf("stripe %s mode requires a %s key", env, strings.Join(prefixes, "/"))
	}

	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if !currencyRe.MatchString(currency) {
		return nil, errInvalidCurrency
	}

	stripe.Key = apiKey

	if logg != nil {
		logg.Info(logg.WithFields(ctx, logger.Fields{
			"stripe_env": env,
			"currency":   currency,
		}), "stripe client initialized")
	}
	return &Client{environment: env, signingSecret: secret, currency: currency}, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret verifies webhook payloads.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// Currency is the lowercase ISO code used for Checkout line items.
func (c *Client) Currency() string {
	if c == nil || c.currency == "" {
		return defaultCurrency
	}
	return c.currency
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
