package config

const EnvPrefix = "SAFIPAY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	MPesaEnvSandbox    = "sandbox"
	MPesaEnvProduction = "production"
	MPesaSandboxURL    = "https://sandbox.safaricom.co.ke"
	MPesaProductionURL = "https://api.safaricom.co.ke"
)

const (
	EnvAppEnv = "SAFIPAY_APP_ENV"
	EnvPort   = "SAFIPAY_APP_PORT"

	EnvDBDSN  = "SAFIPAY_DB_DSN"
	EnvDBHost = "SAFIPAY_DB_HOST"
	EnvDBUser = "SAFIPAY_DB_USER"
	EnvDBName = "SAFIPAY_DB_NAME"

	EnvRedisURL  = "SAFIPAY_REDIS_URL"
	EnvJWTSecret = "SAFIPAY_JWT_SECRET"

	EnvMPesaEnv            = "SAFIPAY_MPESA_ENV"
	EnvMPesaConsumerKey    = "SAFIPAY_MPESA_CONSUMER_KEY"
	EnvMPesaConsumerSecret = "SAFIPAY_MPESA_CONSUMER_SECRET"
	EnvMPesaShortcode      = "SAFIPAY_MPESA_SHORTCODE"
	EnvMPesaPasskey        = "SAFIPAY_MPESA_PASSKEY"
	EnvMPesaCallbackURL    = "SAFIPAY_MPESA_CALLBACK_URL"
	EnvMPesaTimeout        = "SAFIPAY_MPESA_TIMEOUT"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
