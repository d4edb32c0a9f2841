package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestEveryRunsImmediatelyAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var n atomic.Int32
	done := make(chan struct{})

	go func() {
		Every(ctx, 10*time.Millisecond, "test", func(context.Context) error {
			if n.Add(1) >= 3 {
				cancel()
			}
			return errors.New("keeps going after errors")
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Every did not return after cancel")
	}
	if n.Load() < 3 {
		t.Fatalf("ran %d times, want >= 3", n.Load())
	}
}

func TestEveryDisabledInterval(t *testing.T) {
	called := false
	Every(context.Background(), 0, "off", func(context.Context) error {
		called = true
		return nil
	})
	if called {
		t.Fatal("task ran with interval 0")
	}
}
