package config

// EnvPrefix is the namespace passed to envconfig.Process.
const EnvPrefix = "AUCTIONHOUSE"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// First-bid policy values accepted by BiddingConfig.
const (
	FirstBidAtLeastFirstPrice  = "at_least_first_price"
	FirstBidFirstPricePlusStep = "first_price_plus_step"
)

// Environment variable names referenced outside struct tags (tests, error
// messages).
const (
	EnvAppEnv                = "AUCTIONHOUSE_APP_ENV"
	EnvPort                  = "AUCTIONHOUSE_APP_PORT"
	EnvDBDSN                 = "AUCTIONHOUSE_DB_DSN"
	EnvDBHost                = "AUCTIONHOUSE_DB_HOST"
	EnvDBUser                = "AUCTIONHOUSE_DB_USER"
	EnvDBName                = "AUCTIONHOUSE_DB_NAME"
	EnvRedisURL              = "AUCTIONHOUSE_REDIS_URL"
	EnvJWTSecret             = "AUCTIONHOUSE_JWT_SECRET"
	EnvJWTIssuer             = "AUCTIONHOUSE_JWT_ISSUER"
	EnvJWTExpMins            = "AUCTIONHOUSE_JWT_EXPIRATION_MINUTES"
	EnvGCPProjectID          = "AUCTIONHOUSE_GCP_PROJECT_ID"
	EnvPubSubDomainSub       = "AUCTIONHOUSE_PUBSUB_DOMAIN_SUBSCRIPTION"
	EnvPubSubNotificationSub = "AUCTIONHOUSE_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvBiddingFirstBidPolicy = "AUCTIONHOUSE_BIDDING_FIRST_BID_POLICY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
