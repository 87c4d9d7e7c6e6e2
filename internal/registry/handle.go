package registry

import (
	"sync/atomic"

	"github.com/xtxerr/seriesstore/internal/series"
)

// snapshot pairs a published container with its generation so readers
// always observe a consistent (container, generation) couple.
type snapshot struct {
	container *series.Container
	gen       uint64
}

// Handle is a stable reference to one data type's slot in the registry.
//
// Containers are replaced wholesale on every successful stash; the
// Handle is the long-lived indirection that lets holders observe the
// latest committed state without re-grabbing. The generation counter
// increments on every publication, which windowed views use to
// invalidate their caches.
//
// Handles are safe for concurrent readers; publication happens only on
// the registry's single writer path.
type Handle struct {
	key string
	cur atomic.Pointer[snapshot]
}

func newHandle(key string, c *series.Container) *Handle {
	h := &Handle{key: key}
	h.cur.Store(&snapshot{container: c, gen: 1})
	return h
}

// Key returns the canonical key this handle is registered under.
func (h *Handle) Key() string { return h.key }

// Snapshot returns the current container and its generation.
func (h *Handle) Snapshot() (*series.Container, uint64) {
	s := h.cur.Load()
	return s.container, s.gen
}

// Container returns the current container.
func (h *Handle) Container() *series.Container {
	return h.cur.Load().container
}

// Generation returns the current generation. It increments every time a
// new container is published for this key.
func (h *Handle) Generation() uint64 {
	return h.cur.Load().gen
}

// publish swaps in a fully-built container and bumps the generation.
// Caller must hold the registry write lock.
func (h *Handle) publish(c *series.Container) {
	prev := h.cur.Load()
	h.cur.Store(&snapshot{container: c, gen: prev.gen + 1})
}
