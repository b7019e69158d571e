// Package btmdump decodes the keyed archive in which macOS background task
// management keeps login items, launch agents and daemons.
package btmdump

import (
	"encoding/json"
	"fmt"
	"iter"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/denismitr/btmdump/internal/archive"
	"github.com/denismitr/btmdump/internal/lru"
	"github.com/denismitr/btmdump/internal/plist"
	"github.com/denismitr/btmdump/internal/store"
	"github.com/denismitr/btmdump/options"
)

var ErrDecoderClosed = errors.New("decoder is closed")

type Closer func() error

func NullCloser() error { return nil }

// Result is a decoded store and the path it came from, if any.
type Result struct {
	Path    string
	Storage *Storage
}

func (r *Result) Mapping(opts ...*options.ListOptions) *Mapping {
	m := ToMapping(r.Storage, opts...)
	if r.Path != "" {
		m.prepend(KeyPath, r.Path)
	}
	return m
}

func (r *Result) Text(opts ...*options.ListOptions) iter.Seq[string] {
	lines := ToText(r.Storage, opts...)
	if r.Path == "" {
		return lines
	}

	return func(yield func(string) bool) {
		if !yield(fmt.Sprintf("%s: %s", KeyPath, r.Path)) {
			return
		}
		for l := range lines {
			if !yield(l) {
				return
			}
		}
	}
}

func (r *Result) JSON(opts ...*options.ListOptions) ([]byte, error) {
	b, err := json.Marshal(r.Mapping(opts...))
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal storage")
	}
	return b, nil
}

func (r *Result) Document(opts ...*options.ListOptions) (*Document, error) {
	b, err := r.JSON(opts...)
	if err != nil {
		return nil, err
	}
	return NewDocument(b), nil
}

// Decoder turns store bytes into a Storage. It is safe for concurrent use;
// the rendered-document cache is its only shared state.
type Decoder struct {
	cfg    *Config
	cache  lru.Cache
	mu     sync.RWMutex
	closed bool
}

func NewDecoder(cfg *Config) (*Decoder, Closer, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.applyDefaults()

	var cache lru.Cache = lru.Null{}
	if !cfg.DisableCache {
		c, err := lru.NewSharded(cfg.CacheShards, cfg.CacheMaxBytes, func(k uint64, v []byte) {
			cfg.Logger.Printf("document cache: evicted %016x (%d bytes)", k, len(v))
		})
		if err != nil {
			return nil, NullCloser, errors.Wrap(err, "could not create document cache")
		}
		cache = c
	}

	d := Decoder{cfg: cfg, cache: cache}

	return &d, d.close, nil
}

func (d *Decoder) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDecoderClosed
	}

	d.cache.Purge()
	d.closed = true
	return nil
}

func (d *Decoder) resolveOptions() []archive.Option {
	opts := []archive.Option{archive.WithRootKey(d.cfg.RootKey)}
	if !d.cfg.AllowUnknownClasses {
		opts = append(opts, archive.WithClasses(SchemaClassNames()...))
	}
	return opts
}

// Decode runs the whole pipeline over the bytes of one store file. Any error
// is fatal and no partial Storage is returned; field-level problems are
// reported through Storage.Warnings instead.
func (d *Decoder) Decode(data []byte) (*Storage, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, ErrDecoderClosed
	}

	return d.decode(data)
}

func (d *Decoder) decode(data []byte) (*Storage, error) {
	tree, err := plist.Decode(data)
	if err != nil {
		return nil, err
	}

	g, err := archive.Resolve(tree, d.resolveOptions()...)
	if err != nil {
		return nil, err
	}

	return project(g, d.cfg.Logger)
}

// DecodeFile decodes the store at path, or the newest store in the
// configured directory when path is empty.
func (d *Decoder) DecodeFile(path string) (*Result, error) {
	if path == "" {
		latest, err := store.Latest(d.cfg.StoreDir)
		if err != nil {
			return nil, err
		}
		path = latest
	}

	data, err := store.Read(path)
	if err != nil {
		return nil, err
	}

	s, err := d.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode %s", path)
	}

	return &Result{Path: path, Storage: s}, nil
}

// Document returns the JSON document of data, reusing an earlier rendering
// of the same path, bytes and options when the cache still holds one.
func (d *Decoder) Document(path string, data []byte, opts ...*options.ListOptions) (*Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, ErrDecoderClosed
	}

	key := documentKey(path, data, options.Merge(opts...))
	if b, ok := d.cache.Get(key); ok {
		d.cfg.Logger.Printf("document cache: hit %016x", key)
		return NewDocument(b), nil
	}

	s, err := d.decode(data)
	if err != nil {
		return nil, err
	}

	r := Result{Path: path, Storage: s}
	b, err := r.JSON(opts...)
	if err != nil {
		return nil, err
	}

	d.cache.Add(key, b)
	return NewDocument(b), nil
}

func (d *Decoder) CacheStats() lru.Stats {
	return d.cache.Stats()
}

func documentKey(path string, data []byte, lo *options.ListOptions) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(path)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(data)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(lo.Key())
	return h.Sum64()
}

// Parse decodes the bytes of a store file with the default configuration.
func Parse(data []byte) (*Result, error) {
	d, closer, err := NewDecoder(&Config{DisableCache: true})
	if err != nil {
		return nil, err
	}
	defer closer()

	s, err := d.Decode(data)
	if err != nil {
		return nil, err
	}

	return &Result{Storage: s}, nil
}

// ParseFile decodes the store at path, or the newest one in the default
// directory when path is empty.
func ParseFile(path string) (*Result, error) {
	d, closer, err := NewDecoder(&Config{DisableCache: true})
	if err != nil {
		return nil, err
	}
	defer closer()

	return d.DecodeFile(path)
}
