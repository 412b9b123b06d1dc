package cart

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

var cartTokenSigningMethod = jwt.SigningMethodHS256

// TokenManager signs and verifies the cart tokens carried by anonymous shoppers.
// The token subject is the cart id.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager validates the cart config and builds a manager.
func NewTokenManager(cfg config.CartConfig) (*TokenManager, error) {
	if strings.TrimSpace(cfg.TokenSecret) == "" {
		return nil, fmt.Errorf("cart token secret required")
	}
	if strings.TrimSpace(cfg.TokenIssuer) == "" {
		return nil, fmt.Errorf("cart token issuer required")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("cart token ttl must be positive")
	}
	return &TokenManager{
		secret: []byte(cfg.TokenSecret),
		issuer: cfg.TokenIssuer,
		ttl:    cfg.TokenTTL,
		now:    time.Now,
	}, nil
}

// NewCartID returns a fresh random cart id.
func NewCartID() string {
	return uuid.NewString()
}

// Issue mints a token bound to cartID.
func (m *TokenManager) Issue(cartID string) (string, error) {
	if _, err := uuid.Parse(cartID); err != nil {
		return "", fmt.Errorf("invalid cart id %q", cartID)
	}
	now := m.now()
	claims := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   cartID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	signed, err := jwt.NewWithClaims(cartTokenSigningMethod, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing cart token: %w", err)
	}
	return signed, nil
}

// Parse verifies the token and returns the cart id it carries.
func (m *TokenManager) Parse(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("cart token required")
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != cartTokenSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", t.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{cartTokenSigningMethod.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", err
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("cart token subject is not a cart id")
	}
	return claims.Subject, nil
}
