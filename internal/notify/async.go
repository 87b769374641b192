package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Async runs every dispatch in its own goroutine, detached from the caller's
// context, so a mutation never waits for delivery.
type Async struct {
	next   Notifier
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewAsync(next Notifier, logger *zap.Logger) *Async {
	return &Async{next: next, logger: logger}
}

// Notify schedules delivery and returns 0 immediately.
func (a *Async) Notify(_ context.Context, ev Event) int {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("notification panicked", zap.String("kind", ev.Kind), zap.Any("panic", r))
			}
		}()
		a.next.Notify(context.Background(), ev)
	}()
	return 0
}

// Wait blocks until every scheduled dispatch has finished.
func (a *Async) Wait() {
	a.wg.Wait()
}
