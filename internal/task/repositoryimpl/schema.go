package repositoryimpl

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kazz187/taskflow/internal/task"
)

// schemaGuard runs the schema bootstrap until it succeeds once. A store that
// was unreachable at startup keeps retrying on each operation instead of
// leaving the process permanently broken.
type schemaGuard struct {
	ensure func(ctx context.Context) error
	mu     sync.Mutex
	ready  atomic.Bool
}

func newSchemaGuard(ensure func(ctx context.Context) error) *schemaGuard {
	return &schemaGuard{ensure: ensure}
}

func (g *schemaGuard) Ensure(ctx context.Context) error {
	if g.ready.Load() {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ready.Load() {
		return nil
	}
	if err := g.ensure(ctx); err != nil {
		return task.ErrStoreUnavailable(err)
	}
	g.ready.Store(true)
	return nil
}

func (g *schemaGuard) Ready() bool {
	return g.ready.Load()
}
