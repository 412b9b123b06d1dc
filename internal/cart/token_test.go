package cart

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func testCartConfig() config.CartConfig {
	return config.CartConfig{
		TokenSecret: "cart-secret",
		TokenIssuer: "storefront",
		TokenTTL:    time.Hour,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	manager, err := NewTokenManager(testCartConfig())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	cartID := NewCartID()
	token, err := manager.Issue(cartID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := manager.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != cartID {
		t.Fatalf("expected %s, got %s", cartID, got)
	}
}

func TestTokenRejectsTamperingAndExpiry(t *testing.T) {
	manager, _ := NewTokenManager(testCartConfig())
	token, _ := manager.Issue(NewCartID())

	other := testCartConfig()
	other.TokenSecret = "different"
	otherManager, _ := NewTokenManager(other)
	if _, err := otherManager.Parse(token); err == nil {
		t.Fatalf("expected signature mismatch")
	}

	manager.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := manager.Parse(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}

	if _, err := manager.Parse(""); err == nil {
		t.Fatalf("expected empty token to be rejected")
	}
}

func TestTokenRejectsNonCartSubject(t *testing.T) {
	cfg := testCartConfig()
	manager, _ := NewTokenManager(cfg)
	claims := jwt.RegisteredClaims{
		Issuer:    cfg.TokenIssuer,
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.TokenSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.Parse(signed); err == nil {
		t.Fatalf("expected non-uuid subject to be rejected")
	}
	if _, err := manager.Issue("not-a-uuid"); err == nil {
		t.Fatalf("expected issue to reject non-uuid cart id")
	}
}

func TestNewTokenManagerValidates(t *testing.T) {
	cfg := testCartConfig()
	cfg.TokenSecret = " "
	if _, err := NewTokenManager(cfg); err == nil {
		t.Fatalf("expected missing secret error")
	}
	cfg = testCartConfig()
	cfg.TokenTTL = 0
	if _, err := NewTokenManager(cfg); err == nil {
		t.Fatalf("expected ttl error")
	}
}
