package config

import "time"

// CacheConfig defines settings for the response cache middleware. When
// Enabled is false or no Redis client is configured, caching is disabled.
// KeyStrategy determines which parts of the request contribute to the cache
// key. Prefix namespaces the keys so a mutation can drop them all at once.
type CacheConfig struct {
	Enabled      bool          `env:"ENABLED,default=false"`
	TTL          time.Duration `env:"TTL,default=30s"`
	KeyStrategy  string        `env:"KEY_STRATEGY,default=path_query"`
	Prefix       string        `env:"PREFIX,default=cache"`
	MaxBodyBytes int           `env:"MAX_BODY_BYTES,default=1048576"`
}
