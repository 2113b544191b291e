package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays configuration from environment variables. The refresh
// lifetime is taken in whole days (REFRESH_TTL_DAYS), matching how the
// service is deployed.
func parseEnv(config *Config) {
	if v, ok := os.LookupEnv("ADDRESS"); ok {
		config.EndpointAddrHTTP = v
	}
	if v, ok := os.LookupEnv("DATABASE_DSN"); ok {
		config.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv("JWT_ACCESS_SECRET"); ok {
		config.AccessTokenSecret = v
	}
	if v, ok := os.LookupEnv("JWT_REFRESH_SECRET"); ok {
		config.RefreshTokenSecret = v
	}
	if v, ok := os.LookupEnv("REFRESH_TTL_DAYS"); ok {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			panic("REFRESH_TTL_DAYS must be a positive integer")
		}
		config.RefreshTokenValidityDuration = time.Duration(days) * 24 * time.Hour
	}
}
