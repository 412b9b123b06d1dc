package instance

import "github.com/angelmondragon/storefront-backend/pkg/env"

// GetID identifies the running process in logs and lock ownership.
// An explicit STOREFRONT_INSTANCE_ID wins over platform-provided names.
func GetID() string {
	return env.First("local", "STOREFRONT_INSTANCE_ID", "DYNO", "HOSTNAME")
}
