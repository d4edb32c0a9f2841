// Package runlock keeps two pipeline runs with the same name from
// overlapping, in one process or across hosts.
package runlock

import (
	"context"
	"errors"
)

var ErrLocked = errors.New("run already in progress")

// Release gives the lock back. It is safe to call more than once.
type Release func()

type Locker interface {
	TryLock(ctx context.Context, name string) (Release, error)
}

// Noop never blocks; used when lock.backend is none.
type Noop struct{}

func (Noop) TryLock(context.Context, string) (Release, error) { return func() {}, nil }
