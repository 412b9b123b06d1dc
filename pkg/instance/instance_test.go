package instance

import "testing"

func TestGetIDPrefersExplicitInstanceID(t *testing.T) {
	t.Setenv("STOREFRONT_INSTANCE_ID", "api-1")
	t.Setenv("DYNO", "web.1")
	if got := GetID(); got != "api-1" {
		t.Fatalf("expected api-1, got %q", got)
	}
}

func TestGetIDFallsBackThroughPlatformVars(t *testing.T) {
	t.Setenv("STOREFRONT_INSTANCE_ID", "")
	t.Setenv("DYNO", " web.2 ")
	if got := GetID(); got != "web.2" {
		t.Fatalf("expected web.2, got %q", got)
	}

	t.Setenv("DYNO", "")
	t.Setenv("HOSTNAME", "")
	if got := GetID(); got != "local" {
		t.Fatalf("expected local, got %q", got)
	}
}
