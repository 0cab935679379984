package config

const (
	EnvPrefix = "RESTAURANT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "RESTAURANT_APP_ENV"
	EnvPort         = "RESTAURANT_APP_PORT"
	EnvLogLevel     = "RESTAURANT_LOG_LEVEL"
	EnvLogWarnStack = "RESTAURANT_LOG_WARN_STACK"

	EnvDBDSN      = "RESTAURANT_DB_DSN"
	EnvDBHost     = "RESTAURANT_DB_HOST"
	EnvDBPort     = "RESTAURANT_DB_PORT"
	EnvDBUser     = "RESTAURANT_DB_USER"
	EnvDBPassword = "RESTAURANT_DB_PASSWORD"
	EnvDBName     = "RESTAURANT_DB_NAME"

	EnvRedisURL = "RESTAURANT_REDIS_URL"

	EnvJWTSecret  = "RESTAURANT_JWT_SECRET"
	EnvJWTIssuer  = "RESTAURANT_JWT_ISSUER"
	EnvJWTExpMins = "RESTAURANT_JWT_EXPIRATION_MINUTES"

	EnvStripeAPIKey            = "RESTAURANT_STRIPE_API_KEY"
	EnvStripeSecret            = "RESTAURANT_STRIPE_SECRET"
	EnvStripeEnv               = "RESTAURANT_STRIPE_ENV"
	EnvStripeMaxNetworkRetries = "RESTAURANT_STRIPE_MAX_NETWORK_RETRIES"

	EnvPaymentsCurrency = "RESTAURANT_PAYMENTS_CURRENCY"
	EnvPaymentsTimeout  = "RESTAURANT_PAYMENTS_GATEWAY_TIMEOUT"

	EnvEventsBroker = "RESTAURANT_EVENTS_BROKER"

	EnvGCPProjectID        = "RESTAURANT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic   = "RESTAURANT_PUBSUB_ORDERS_TOPIC"
	EnvRabbitMQURL         = "RESTAURANT_RABBITMQ_URL"
	EnvRabbitMQExchange    = "RESTAURANT_RABBITMQ_EXCHANGE"
	EnvKafkaBrokers        = "RESTAURANT_KAFKA_BROKERS"
	EnvKafkaOrdersTopic    = "RESTAURANT_KAFKA_ORDERS_TOPIC"
	EnvUseSQLite           = "RESTAURANT_USE_SQLITE"
	EnvAutoMigrate         = "RESTAURANT_AUTO_MIGRATE"
	EnvCronInterval        = "RESTAURANT_CRON_INTERVAL"
	EnvCatalogCacheTTL     = "RESTAURANT_CATALOG_CACHE_TTL"
	EnvWebhookIdemTTL      = "RESTAURANT_EVENTING_WEBHOOK_IDEMPOTENCY_TTL"
	EnvReconcilePendingAge = "RESTAURANT_PAYMENTS_RECONCILE_PENDING_AGE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
