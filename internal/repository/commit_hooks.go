package repository

import (
	"context"
	"sync"
)

type commitHooksKey struct{}

// CommitHooks - колбэки, отложенные до успешного коммита транзакции
type CommitHooks struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

// WithCommitHooks кладет в контекст новый набор хуков для транзакции.
// Транзакторы вызывают Run после коммита и просто выбрасывают хуки при откате.
func WithCommitHooks(ctx context.Context) (context.Context, *CommitHooks) {
	hooks := &CommitHooks{}
	return context.WithValue(ctx, commitHooksKey{}, hooks), hooks
}

func (h *CommitHooks) Run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ctx)
	}
}

// AfterCommit откладывает fn до коммита; вне транзакции fn выполняется сразу
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	hooks, ok := ctx.Value(commitHooksKey{}).(*CommitHooks)
	if !ok {
		fn(ctx)
		return
	}
	hooks.mu.Lock()
	hooks.fns = append(hooks.fns, fn)
	hooks.mu.Unlock()
}
