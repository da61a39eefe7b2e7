package sqlmap

import (
	"fmt"
	"sort"
)

// Factory is the composition root: one registry, one pool and one Mapper per
// declared interface. It is immutable once built.
type Factory struct {
	pool       *Pool
	registry   *Registry
	dispatcher *Dispatcher
	mappers    map[string]*Mapper
}

// NewFactory registers every interface and returns a factory whose mappers
// share pool. driverName selects the placeholder style unless WithPlaceholder
// is given. A registration failure aborts construction; pool is left open.
func NewFactory(pool *Pool, driverName string, ifaces []Interface, opts ...Option) (*Factory, error) {
	o := buildOptions(opts)
	if !o.phSet {
		opts = append(opts, WithPlaceholder(PlaceholderFor(driverName)))
	}

	reg := NewRegistry()
	for _, iface := range ifaces {
		if iface.Name == "" {
			return nil, fmt.Errorf("sqlmap: interface with %d operations has no name", len(iface.Operations))
		}
		if err := reg.Register(iface); err != nil {
			return nil, err
		}
	}

	d := NewDispatcher(reg, pool, opts...)
	f := &Factory{
		pool:       pool,
		registry:   reg,
		dispatcher: d,
		mappers:    make(map[string]*Mapper, len(ifaces)),
	}
	for _, iface := range ifaces {
		if _, dup := f.mappers[iface.Name]; dup {
			return nil, fmt.Errorf("sqlmap: interface %q declared twice", iface.Name)
		}
		f.mappers[iface.Name] = newMapper(iface, d)
	}
	o.log.Debug("sqlmap: factory built", "interfaces", len(ifaces), "operations", len(reg.ops))
	return f, nil
}

// Mapper returns the mapper serving the named interface.
func (f *Factory) Mapper(name string) (*Mapper, error) {
	m, ok := f.mappers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMapper, name)
	}
	return m, nil
}

// Mappers returns the names of all interfaces, sorted.
func (f *Factory) Mappers() []string {
	names := make([]string, 0, len(f.mappers))
	for n := range f.mappers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Registry exposes the operation descriptors.
func (f *Factory) Registry() *Registry { return f.registry }

// Dispatcher exposes the shared dispatcher.
func (f *Factory) Dispatcher() *Dispatcher { return f.dispatcher }

// Pool exposes the shared connection pool.
func (f *Factory) Pool() *Pool { return f.pool }

// Close closes the pool. A factory obtained from Build is dropped from its
// cache, so the next Build for the same key opens a new one.
func (f *Factory) Close() error {
	buildMu.Lock()
	for key, cached := range factories {
		if cached == f {
			delete(factories, key)
		}
	}
	buildMu.Unlock()
	return f.pool.Close()
}
