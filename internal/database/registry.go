package database

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
)

type registration struct {
	driver Driver
	config Config
}

// slot guards one driver's session. mu is held while the session is opened
// and for the duration of Do.
type slot struct {
	mu      sync.Mutex
	session *Session
}

// Registry holds at most one Session per driver name.
//
// Sessions are opened lazily on first use and share one Collector and one
// AuditLog. A failed open is returned to the caller and not cached, so the
// next call retries. Opening one driver's session never blocks lookups for
// another. Safe for concurrent use; the sessions it hands out are not, so
// concurrent callers should go through Do.
type Registry struct {
	mu        sync.Mutex
	entries   map[string]registration
	slots     map[string]*slot
	collector *Collector
	audit     AuditLog
	opts      []Option
}

// NewRegistry creates an empty registry. Options are applied to every session
// it opens; WithCollector and WithAudit set the shared instances.
func NewRegistry(opts ...Option) *Registry {
	o := newOptions(opts)
	collector := o.collector
	if collector == nil {
		collector = NewCollector()
	}
	audit := o.audit
	if audit == nil {
		audit = NewRingAudit(DefaultAuditCapacity)
	}
	return &Registry{
		entries:   make(map[string]registration),
		slots:     make(map[string]*slot),
		collector: collector,
		audit:     audit,
		opts:      opts,
	}
}

// Register makes drv available under drv.Name() with the given configuration.
// Registering a name again replaces its configuration for sessions not yet opened.
func (r *Registry) Register(drv Driver, cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[drv.Name()] = registration{driver: drv, config: cfg}
}

// Session returns the session for name, opening it on first use.
// The caller must not use it concurrently with Do on the same name.
func (r *Registry) Session(ctx context.Context, name string) (*Session, error) {
	sl, reg, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return r.open(ctx, sl, reg)
}

// Do runs fn with exclusive use of the session for name, opening it on first
// use. Calls for the same name are serialized; fn's error is returned as is.
func (r *Registry) Do(ctx context.Context, name string, fn func(*Session) error) error {
	sl, reg, err := r.lookup(name)
	if err != nil {
		return err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	s, err := r.open(ctx, sl, reg)
	if err != nil {
		return err
	}
	return fn(s)
}

func (r *Registry) lookup(name string) (*slot, registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.entries[name]
	if !ok {
		return nil, registration{}, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
	}
	sl, ok := r.slots[name]
	if !ok {
		sl = &slot{}
		r.slots[name] = sl
	}
	return sl, reg, nil
}

// open must be called with sl.mu held.
func (r *Registry) open(ctx context.Context, sl *slot, reg registration) (*Session, error) {
	if sl.session != nil {
		return sl.session, nil
	}

	opts := make([]Option, 0, len(r.opts)+2)
	opts = append(opts, r.opts...)
	opts = append(opts, WithCollector(r.collector), WithAudit(r.audit))

	s, err := Open(ctx, reg.driver, reg.config, opts...)
	if err != nil {
		return nil, err
	}
	sl.session = s
	return s, nil
}

// Drivers returns the registered driver names in sorted order.
func (r *Registry) Drivers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Collector returns the Collector shared by every session.
func (r *Registry) Collector() *Collector {
	return r.collector
}

// Audit returns the AuditLog shared by every session.
func (r *Registry) Audit() AuditLog {
	return r.audit
}

// Close closes every open session, waiting for any Do in progress. The
// registry can be reused afterwards; sessions are reopened on demand.
func (r *Registry) Close() error {
	r.mu.Lock()
	slots := make(map[string]*slot, len(r.slots))
	maps.Copy(slots, r.slots)
	r.mu.Unlock()

	var errs []error
	for name, sl := range slots {
		sl.mu.Lock()
		if sl.session != nil {
			if err := sl.session.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s session: %w", name, err))
			}
			sl.session = nil
		}
		sl.mu.Unlock()
	}
	return errors.Join(errs...)
}
