package sqlmap

import (
	"fmt"
	"sync"
)

var (
	buildMu   sync.Mutex
	factories = make(map[string]*Factory)
)

// Build returns the factory for the config file at key, building it on first
// use. Later calls with the same key return the same *Factory without opening
// another pool. A failed build is not cached.
func Build(key string, opts ...Option) (*Factory, error) {
	buildMu.Lock()
	defer buildMu.Unlock()

	if f, ok := factories[key]; ok {
		return f, nil
	}
	cfg, err := LoadConfig(key)
	if err != nil {
		return nil, err
	}
	f, err := Open(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("sqlmap: build %s: %w", key, err)
	}
	factories[key] = f
	return f, nil
}

// Open builds a factory from cfg: it discovers cfg.Package, opens a pool for
// cfg.Driver and registers every discovered interface. opts are applied after
// the ones derived from cfg.
func Open(cfg Config, opts ...Option) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ifaces, err := Discover(cfg.Package)
	if err != nil {
		return nil, err
	}

	base := []Option{WithStrict(cfg.Strict)}
	if cfg.LogLevel != "" {
		base = append(base, WithLogger(NewLogger(cfg.LogLevel)))
	}
	opts = append(base, opts...)
	o := buildOptions(opts)

	pool, err := OpenPool(cfg.Driver, cfg.DSN(), o.log)
	if err != nil {
		return nil, err
	}
	f, err := NewFactory(pool, cfg.Driver, ifaces, opts...)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}
	o.log.Info("sqlmap: factory ready", "driver", cfg.Driver, "package", cfg.Package, "mappers", len(f.mappers))
	return f, nil
}

// forget drops a cached factory; tests use it to rebuild after a config change.
func forget(key string) {
	buildMu.Lock()
	defer buildMu.Unlock()
	delete(factories, key)
}
