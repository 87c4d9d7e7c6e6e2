// Package registry provides the process-wide keyed store of one
// Container per data type.
//
// Keys are case-insensitive and may be resolved through an alias table.
// Each key holds exactly one Container behind a Handle; stash merges an
// incoming batch into a snapshot of the prior state and publishes the
// result atomically, so arbitrarily many readers never observe a
// partially-merged Container. There is exactly one writer path (Stash /
// Clear), serialized by an internal mutex; reads are lock-free.
package registry

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/xtxerr/seriesstore/internal/errors"
	"github.com/xtxerr/seriesstore/internal/logging"
	"github.com/xtxerr/seriesstore/internal/merge"
	"github.com/xtxerr/seriesstore/internal/series"
	"github.com/xtxerr/seriesstore/internal/window"
)

// TypeSpec declares a data type's identity and stash policy.
type TypeSpec struct {
	// Name is the canonical identifier. Matching is case-insensitive.
	Name string

	// Aliases are alternate identifiers resolving to Name.
	Aliases []string

	// Replace selects the stash policy: when true, a stash replaces the
	// stored Container outright instead of merging history. Static
	// lookup tables (orbit/position data) declare this. The zero value
	// is the default for newly registered types: mergeable.
	Replace bool
}

// Stats holds registry statistics.
type Stats struct {
	Stashes    atomic.Int64
	Replaces   atomic.Int64
	Merged     atomic.Int64
	Rejected   atomic.Int64
	Clears     atomic.Int64
	GrabMisses atomic.Int64
}

// Registry maps canonical type identifiers to Containers.
type Registry struct {
	// mu serializes the writer path. Readers never take it: they go
	// through the xsync maps and the handles' atomic snapshots.
	mu sync.Mutex

	entries *xsync.MapOf[string, *Handle]
	aliases *xsync.MapOf[string, string]   // alias -> canonical
	specs   *xsync.MapOf[string, TypeSpec] // canonical -> declared spec

	engine *merge.Engine
	log    *slog.Logger

	stats Stats
}

// New creates a registry backed by the given merge engine. A nil engine
// gets default options.
func New(engine *merge.Engine) *Registry {
	if engine == nil {
		engine = merge.New(merge.DefaultOptions())
	}
	return &Registry{
		entries: xsync.NewMapOf[string, *Handle](),
		aliases: xsync.NewMapOf[string, string](),
		specs:   xsync.NewMapOf[string, TypeSpec](),
		engine:  engine,
		log:     logging.Component("registry"),
	}
}

// Engine returns the registry's merge engine.
func (r *Registry) Engine() *merge.Engine { return r.engine }

// normalize canonicalizes an identifier: trimmed and lowercased.
func normalize(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", errors.ErrInvalidKey
	}
	return key, nil
}

// resolve normalizes key and follows the alias table.
func (r *Registry) resolve(key string) (string, error) {
	k, err := normalize(key)
	if err != nil {
		return "", err
	}
	if canonical, ok := r.aliases.Load(k); ok {
		return canonical, nil
	}
	return k, nil
}

// RegisterType declares a type ahead of its first stash: its canonical
// name, aliases, and stash policy. An empty Container is seeded
// immediately so consumers can grab a handle before data arrives.
// Re-registering an existing type updates its spec and aliases without
// touching stored data.
func (r *Registry) RegisterType(spec TypeSpec) (*Handle, error) {
	canonical, err := normalize(spec.Name)
	if err != nil {
		return nil, errors.Wrap(err, "register type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	spec.Name = canonical
	r.specs.Store(canonical, spec)
	for _, alias := range spec.Aliases {
		a, err := normalize(alias)
		if err != nil {
			return nil, errors.Wrapf(err, "alias for '%s'", canonical)
		}
		r.aliases.Store(a, canonical)
	}

	h, _ := r.entries.LoadOrStore(canonical, newHandle(canonical, series.NewContainer(canonical)))
	return h, nil
}

// Stash merges a batch into the Container registered under key,
// creating the Container on first use. Unregistered keys are implicitly
// registered with the default (mergeable) policy.
//
// Stash is transactional: a rejected batch leaves the stored Container
// untouched and the caller may retry. An empty batch is a no-op, not an
// error. On success the merged Container is published atomically and
// the key's Handle is returned.
func (r *Registry) Stash(key string, batch *series.Batch) (*Handle, error) {
	canonical, err := r.resolve(key)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := batch.Validate(); err != nil {
		r.stats.Rejected.Add(1)
		return nil, errors.Wrapf(err, "stash '%s'", canonical)
	}

	h, loaded := r.entries.LoadOrStore(canonical, newHandle(canonical, series.NewContainer(canonical)))
	if !loaded {
		if _, ok := r.specs.Load(canonical); !ok {
			r.specs.Store(canonical, TypeSpec{Name: canonical})
		}
	}
	if batch.IsEmpty() {
		return h, nil
	}

	spec, _ := r.specs.Load(canonical)
	cur, _ := h.Snapshot()

	var next *series.Container
	if spec.Replace {
		next = series.FromBatch(canonical, batch)
		r.stats.Replaces.Add(1)
	} else {
		res, err := r.engine.MergeBatch(cur, batch)
		if err != nil {
			r.stats.Rejected.Add(1)
			return nil, errors.Wrapf(err, "stash '%s'", canonical)
		}
		if res == nil {
			return h, nil
		}
		next = &series.Container{Key: canonical, Times: res.Times, Fields: res.Fields}
		r.stats.Merged.Add(1)
	}

	h.publish(next)
	r.stats.Stashes.Add(1)
	r.log.Debug("container stored",
		"key", canonical, "rows", next.Len(), "fields", len(next.Fields),
		"generation", h.Generation())
	return h, nil
}

// StashKeyed stashes under a composite "type/secondary" key. The
// secondary key distinguishes per-probe or per-component records of one
// type; the composite inherits the type's declared stash policy. An
// empty secondary key is equivalent to Stash.
func (r *Registry) StashKeyed(typeKey, secondaryKey string, batch *series.Batch) (*Handle, error) {
	if strings.TrimSpace(secondaryKey) == "" {
		return r.Stash(typeKey, batch)
	}
	canonical, err := r.resolve(typeKey)
	if err != nil {
		return nil, err
	}
	sub, err := normalize(secondaryKey)
	if err != nil {
		return nil, err
	}
	composite := canonical + "/" + sub

	r.mu.Lock()
	if _, ok := r.specs.Load(composite); !ok {
		if parent, ok := r.specs.Load(canonical); ok {
			r.specs.Store(composite, TypeSpec{Name: composite, Replace: parent.Replace})
		}
	}
	r.mu.Unlock()

	return r.Stash(composite, batch)
}

// Grab looks up a key case-insensitively across the primary table and
// the alias table. It returns false rather than an error when absent.
func (r *Registry) Grab(key string) (*Handle, bool) {
	canonical, err := r.resolve(key)
	if err != nil {
		return nil, false
	}
	h, ok := r.entries.Load(canonical)
	if !ok {
		r.stats.GrabMisses.Add(1)
	}
	return h, ok
}

// GrabComponent returns a windowed view over one field of a stored
// Container, or false if either the key or the field is unknown.
func (r *Registry) GrabComponent(typeKey, fieldKey string) (*window.View, bool) {
	h, ok := r.Grab(typeKey)
	if !ok {
		return nil, false
	}
	if _, ok := h.Container().Field(fieldKey); !ok {
		r.stats.GrabMisses.Add(1)
		return nil, false
	}
	return window.NewView(h, fieldKey), true
}

// Clear wipes all stored data while keeping type registrations and
// aliases: every previously-known key is re-seeded with a fresh empty
// Container. Handles stay valid; their generation bumps so views drop
// stale caches.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries.Range(func(key string, h *Handle) bool {
		h.publish(series.NewContainer(key))
		return true
	})
	r.stats.Clears.Add(1)
	r.log.Info("registry cleared", "keys", r.entries.Size())
}

// Keys returns the canonical keys currently registered.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, r.entries.Size())
	r.entries.Range(func(key string, _ *Handle) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Spec returns the declared TypeSpec for a key, if any.
func (r *Registry) Spec(key string) (TypeSpec, bool) {
	canonical, err := r.resolve(key)
	if err != nil {
		return TypeSpec{}, false
	}
	return r.specs.Load(canonical)
}

// StatsSnapshot returns a copy of the registry counters.
func (r *Registry) StatsSnapshot() StatsSnapshot {
	return StatsSnapshot{
		Stashes:    r.stats.Stashes.Load(),
		Replaces:   r.stats.Replaces.Load(),
		Merged:     r.stats.Merged.Load(),
		Rejected:   r.stats.Rejected.Load(),
		Clears:     r.stats.Clears.Load(),
		GrabMisses: r.stats.GrabMisses.Load(),
	}
}

// StatsSnapshot holds a point-in-time copy of registry counters.
type StatsSnapshot struct {
	Stashes    int64
	Replaces   int64
	Merged     int64
	Rejected   int64
	Clears     int64
	GrabMisses int64
}
