package chunksource

import (
	"context"
	"sync"

	"hlssource/internal/domain/ports"
)

// Loader is a reference ports.Loader: one load at a time, dispatched on
// its own goroutine so the callback never runs on the caller's
// goroutine (avoiding reentrant locking in internal/source, which calls
// StartLoading while already holding its own mutex).
type Loader struct {
	mu       sync.Mutex
	loading  bool
	loadable ports.Loadable
	cancel   context.CancelFunc
	released bool
}

func NewLoader() *Loader {
	return &Loader{}
}

func (l *Loader) StartLoading(loadable ports.Loadable, callback ports.LoadCallback) {
	l.mu.Lock()
	if l.loading || l.released {
		l.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.loading = true
	l.loadable = loadable
	l.cancel = cancel
	l.mu.Unlock()

	go func() {
		err := loadable.Load(ctx)
		l.mu.Lock()
		l.loading = false
		l.cancel = nil
		l.loadable = nil
		l.mu.Unlock()

		switch {
		case loadable.IsLoadCanceled():
			callback.OnLoadCanceled(loadable)
		case err != nil:
			callback.OnLoadError(loadable, err)
		default:
			callback.OnLoadCompleted(loadable)
		}
	}()
}

func (l *Loader) IsLoading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

func (l *Loader) CancelLoading() {
	l.mu.Lock()
	cancel, loadable := l.cancel, l.loadable
	l.mu.Unlock()
	if loadable != nil {
		loadable.Cancel()
	}
	if cancel != nil {
		cancel()
	}
}

func (l *Loader) Release() {
	l.mu.Lock()
	l.released = true
	cancel, loadable := l.cancel, l.loadable
	l.mu.Unlock()
	if loadable != nil {
		loadable.Cancel()
	}
	if cancel != nil {
		cancel()
	}
}

var _ ports.Loader = (*Loader)(nil)
