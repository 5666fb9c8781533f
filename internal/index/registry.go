package index

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/54b3r/rolerag/internal/logging"
)

// Registry caches one Handle per role for the lifetime of the process.
// The first Get for a role invokes the Loader; concurrent first requests for
// the same role share a single load and receive the same *Handle. Failed
// loads are not cached, so a partition built after startup becomes visible
// on the next request.
type Registry struct {
	// loader reads partitions from storage.
	loader Loader
	// mu guards handles.
	mu sync.RWMutex
	// handles maps role to its loaded partition.
	handles map[string]*Handle
	// group collapses concurrent loads of the same role.
	group singleflight.Group
	// loads counts Loader invocations.
	loads atomic.Int64
}

// NewRegistry returns an empty Registry backed by loader.
func NewRegistry(loader Loader) *Registry {
	return &Registry{
		loader:  loader,
		handles: make(map[string]*Handle),
	}
}

// Get returns the partition for role, loading it on first access.
func (r *Registry) Get(ctx context.Context, role string) (*Handle, error) {
	if err := ValidateRole(role); err != nil {
		return nil, err
	}

	if h, ok := r.cached(role); ok {
		return h, nil
	}

	v, err, _ := r.group.Do(role, func() (any, error) {
		if h, ok := r.cached(role); ok {
			return h, nil
		}

		log := logging.FromContext(ctx)
		start := time.Now()
		r.loads.Add(1)

		// The flight is shared; one caller's cancellation must not fail the rest.
		h, err := r.loader.Load(context.WithoutCancel(ctx), role)
		if err == nil {
			err = h.validate()
		}
		if err != nil {
			log.Error("index: partition load failed",
				slog.String("role", role),
				slog.Any("error", err),
			)
			return nil, err
		}

		r.mu.Lock()
		r.handles[role] = h
		r.mu.Unlock()

		log.Info("index: partition loaded",
			slog.String("role", role),
			slog.String("model", h.Model),
			slog.Int("documents", len(h.Documents)),
			slog.Duration("duration", time.Since(start)),
		)
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// cached returns the loaded handle for role, if any.
func (r *Registry) cached(role string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[role]
	return h, ok
}

// Len returns the number of loaded partitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Roles returns the loaded roles in sorted order.
func (r *Registry) Roles() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.handles))
	for role := range r.handles {
		out = append(out, role)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Loads returns the number of times the Loader has been invoked.
func (r *Registry) Loads() int64 { return r.loads.Load() }
