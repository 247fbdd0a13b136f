package fetch

import (
	"context"
	"fmt"
	"sync"
)

// LazyStrategy defers construction of an expensive strategy until its first
// use. The build runs at most once; a build failure is sticky, and every
// subsequent fetch reports the strategy as unavailable instead of silently
// downgrading to another strategy.
type LazyStrategy struct {
	name  string
	build func() (Strategy, error)

	once     sync.Once
	strategy Strategy
	err      error
}

// NewLazyStrategy wraps build behind first-use initialization.
func NewLazyStrategy(name string, build func() (Strategy, error)) *LazyStrategy {
	return &LazyStrategy{name: name, build: build}
}

// Name implements Strategy.
func (l *LazyStrategy) Name() string { return l.name }

// Start forces initialization. Callers that want a build failure to be fatal
// at startup call Start once; otherwise the first Fetch triggers it.
func (l *LazyStrategy) Start() error {
	l.once.Do(func() {
		l.strategy, l.err = l.build()
	})
	return l.err
}

// Fetch implements Strategy.
func (l *LazyStrategy) Fetch(ctx context.Context, req Request) (RawPage, error) {
	if err := l.Start(); err != nil {
		return RawPage{}, fmt.Errorf("%s strategy unavailable: %w", l.name, err)
	}
	return l.strategy.Fetch(ctx, req)
}

// Close releases the built strategy, if it was ever built and is closable.
func (l *LazyStrategy) Close() {
	if closer, ok := l.strategy.(interface{ Close() }); ok {
		closer.Close()
	}
}
