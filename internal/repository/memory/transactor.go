package memory

import (
	"context"
	"sync"

	"github.com/St1cky1/entraide-service/internal/repository"
)

type undoKey struct{}

// undoLog - обратные операции записей, сделанных внутри транзакции
type undoLog struct {
	mu  sync.Mutex
	fns []func()
}

// onRollback регистрирует отмену записи; вне транзакции ничего не делает
func onRollback(ctx context.Context, fn func()) {
	l, ok := ctx.Value(undoKey{}).(*undoLog)
	if !ok {
		return
	}
	l.mu.Lock()
	l.fns = append(l.fns, fn)
	l.mu.Unlock()
}

func (l *undoLog) rollback() {
	l.mu.Lock()
	fns := l.fns
	l.fns = nil
	l.mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

// Transactor для памяти: при ошибке fn записи хранилищ откатываются
// в обратном порядке, хуки AfterCommit выполняются только при успехе.
// Изоляции нет: до отката промежуточное состояние видно другим читателям.
type Transactor struct{}

func (Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		return fn(ctx)
	}

	undo := &undoLog{}
	txCtx, hooks := repository.WithCommitHooks(context.WithValue(ctx, undoKey{}, undo))
	if err := fn(txCtx); err != nil {
		undo.rollback()
		return err
	}
	hooks.Run(ctx)
	return nil
}
