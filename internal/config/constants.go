package config

import "time"

// Database pool defaults
const (
	DefaultDBMaxConns        = 20
	DefaultDBMaxConnIdleTime = 5 * time.Minute
	DefaultDBMaxConnLifetime = 30 * time.Minute
)

// Sync behavior defaults
const (
	DefaultReconcileTimeout       = 30 * time.Second
	DefaultCacheMaxAge            = 7 * 24 * time.Hour
	DefaultEvictionInterval       = time.Hour
	DefaultSessionCleanupInterval = 6 * time.Hour
)

// Local store defaults
const (
	DefaultLocalStorePath = "data/sitesync.db"
)
