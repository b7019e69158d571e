package btmdump

import (
	"log"

	"github.com/pbnjay/memory"

	"github.com/denismitr/btmdump/internal/store"
)

const (
	defaultCacheShards   = 8
	minCacheBytes        = 1 << 20
	maxCacheBytes        = 64 << 20
	fallbackCacheBytes   = 8 << 20
	cacheShareOfPhysical = 256
)

type Config struct {
	// StoreDir is searched for the newest store when no path is given.
	StoreDir string

	CacheShards   int
	CacheMaxBytes uint64
	DisableCache  bool

	// Logger receives projection warnings and cache activity. Nil discards.
	Logger *log.Logger

	// RootKey names the root entry of the archive's $top dictionary.
	RootKey string

	// AllowUnknownClasses lets archives carry classes the projector does
	// not know about, as long as they are never projected.
	AllowUnknownClasses bool
}

func (cfg *Config) applyDefaults() {
	if cfg.StoreDir == "" {
		cfg.StoreDir = store.DefaultDir
	}

	if cfg.CacheShards == 0 {
		cfg.CacheShards = defaultCacheShards
	}

	if cfg.CacheMaxBytes == 0 {
		cfg.CacheMaxBytes = defaultCacheBytes(memory.TotalMemory())
	}

	if cfg.Logger == nil {
		cfg.Logger = discardLogger
	}

	if cfg.RootKey == "" {
		cfg.RootKey = "root"
	}
}

// defaultCacheBytes takes a small share of physical memory, within bounds.
func defaultCacheBytes(total uint64) uint64 {
	if total == 0 {
		return fallbackCacheBytes
	}

	n := total / cacheShareOfPhysical
	switch {
	case n < minCacheBytes:
		return minCacheBytes
	case n > maxCacheBytes:
		return maxCacheBytes
	default:
		return n
	}
}
