package config

// EnvPrefix is passed to envconfig. Tagged fields are also looked up by their bare tag.
const EnvPrefix = "STORYPRINT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "STORYPRINT_APP_ENV"
	EnvPort     = "STORYPRINT_APP_PORT"
	EnvLogLevel = "STORYPRINT_LOG_LEVEL"

	EnvDBDSN  = "STORYPRINT_DB_DSN"
	EnvDBHost = "STORYPRINT_DB_HOST"
	EnvDBUser = "STORYPRINT_DB_USER"
	EnvDBName = "STORYPRINT_DB_NAME"

	EnvRedisURL = "STORYPRINT_REDIS_URL"

	EnvJWTSecret  = "STORYPRINT_JWT_SECRET"
	EnvJWTIssuer  = "STORYPRINT_JWT_ISSUER"
	EnvJWTExpMins = "STORYPRINT_JWT_EXPIRATION_MINUTES"

	EnvMixamBaseURL  = "STORYPRINT_MIXAM_BASE_URL"
	EnvMixamAPIToken = "STORYPRINT_MIXAM_API_TOKEN"
	EnvMixamUsername = "STORYPRINT_MIXAM_USERNAME"
	EnvMixamPassword = "STORYPRINT_MIXAM_PASSWORD"
	EnvMixamTimeout  = "STORYPRINT_MIXAM_TIMEOUT"

	EnvGCPProjectID           = "STORYPRINT_GCP_PROJECT_ID"
	EnvPubSubPrintOrdersTopic = "STORYPRINT_PUBSUB_PRINT_ORDERS_TOPIC"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
