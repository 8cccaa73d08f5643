package entity

import (
	"context"
	"strings"
	"sync"

	"github.com/synfs/synfs/internal/logger"
)

// NameResolver resolves an entity id to its backend display name.
type NameResolver interface {
	EntityName(ctx context.Context, id string) (string, error)
}

// NameResolverFunc adapts a plain function to the NameResolver interface.
type NameResolverFunc func(ctx context.Context, id string) (string, error)

// EntityName implements NameResolver.
func (f NameResolverFunc) EntityName(ctx context.Context, id string) (string, error) {
	return f(ctx, id)
}

// nameCell is a compute-once memoizing cell for the display name.
// The mutex is held across the fetch so concurrent first access performs
// exactly one lookup per path instance.
type nameCell struct {
	mu   sync.Mutex
	name string
	done bool
}

// DisplayName returns the human-readable name of the path.
//
// Write-target paths return the final segment of the relative name
// directly, with no lookup. Entity paths resolve the name through the
// given resolver and memoize the result on this path instance.
//
// A failed lookup degrades to the entity id instead of propagating the
// error, so stringifying a path never fails. This is intentional and
// must be preserved. The failure is not memoized; a later call may
// succeed and cache the real name.
func (p *Path) DisplayName(ctx context.Context, resolver NameResolver) string {
	if p.relative != "" {
		segments := strings.Split(p.relative, "/")
		return segments[len(segments)-1]
	}

	c := &p.name
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done {
		return c.name
	}

	name, err := resolver.EntityName(ctx, p.id)
	if err != nil {
		logger.Debug("display name lookup failed for %s: %v", p.id, err)
		return p.id
	}

	c.name = name
	c.done = true
	return name
}
