package params

import "time"

const (
	ServerBodyLimit        = 10 * 1024 // 10 KiB
	ServerIdleTimeout      = 30 * time.Second
	ServerReadTimeout      = 10 * time.Second
	ServerWriteTimeout     = 10 * time.Second
	RiskProfileKeyPrefix   = "r:"             // redis hash holding score, tier and version of a user
	TrustedDeviceKeyPrefix = "d:"             // redis hash of trusted fingerprints of a user
	RiskScoreIndexKey      = "rs:index"       // redis sorted set of user IDs by score
	RateLimitKeyPrefix     = "rl:"            // limiter storage prefix
	RiskUpdateMaxRetries   = 8                // compare-and-swap attempts per risk update before giving up
	SessionTokenExpiration = 1 * time.Hour    // lifetime of the session token cookie
	SessionCookieName      = "token"          // default session cookie name
	RateLimitMax           = 1000             // requests per window per client address
	RateLimitWindow        = 15 * time.Minute // global rate limit window
	AdminEventsLimit       = 50               // events returned by the admin feed
	AdminRiskUsersLimit    = 20               // users returned by the admin risk listing
	AdminHighRiskScore     = 50               // score above which a user counts as high risk in stats
	HealthCheckServerAddr  = ":3001"          // health check server address
)
