package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/denismitr/btmdump"
	"github.com/denismitr/btmdump/internal/store"
)

// fileConfig mirrors the TOML settings file. Zero values keep the library
// defaults.
type fileConfig struct {
	StoreDir      string `toml:"store_dir"`
	CacheMaxBytes int64  `toml:"cache_max_bytes"`
	CacheShards   int    `toml:"cache_shards"`
	Verbose       bool   `toml:"verbose"`
	RootKey       string `toml:"root_key"`
}

func loadConfig(path string) (*fileConfig, error) {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return nil, err
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown settings %s", path, strings.Join(keys, ", "))
	}

	if fc.CacheMaxBytes < 0 {
		return nil, fmt.Errorf("%s: cache_max_bytes must not be negative", path)
	}
	if fc.CacheShards < 0 {
		return nil, fmt.Errorf("%s: cache_shards must not be negative", path)
	}

	return &fc, nil
}

func (fc *fileConfig) storeDir() string {
	if fc.StoreDir == "" {
		return store.DefaultDir
	}
	return fc.StoreDir
}

func (fc *fileConfig) decoderConfig(logger *log.Logger) *btmdump.Config {
	return &btmdump.Config{
		StoreDir:      fc.StoreDir,
		CacheShards:   fc.CacheShards,
		CacheMaxBytes: uint64(fc.CacheMaxBytes),
		Logger:        logger,
		RootKey:       fc.RootKey,
	}
}
