package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvTest = "test"
	AppEnvProd = "prod"

	EnvAppEnv = "STOREFRONT_APP_ENV"
	EnvPort   = "STOREFRONT_APP_PORT"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvCartTokenSecret = "STOREFRONT_CART_TOKEN_SECRET"

	EnvPricingThreshold    = "STOREFRONT_PRICING_FREE_SHIPPING_THRESHOLD"
	EnvPricingFlatShipping = "STOREFRONT_PRICING_FLAT_SHIPPING_RATE"
	EnvPricingTaxRate      = "STOREFRONT_PRICING_TAX_RATE"

	EnvCORSOrigins = "STOREFRONT_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
