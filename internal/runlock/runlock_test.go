package runlock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var (
	_ Locker = Noop{}
	_ Locker = File{}
	_ Locker = (*Redis)(nil)
)

func TestFileLockExcludes(t *testing.T) {
	ctx := context.Background()
	l := File{Path: filepath.Join(t.TempDir(), "iw.lock")}

	release, err := l.TryLock(ctx, "refresh")
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	if _, err := l.TryLock(ctx, "refresh"); !errors.Is(err, ErrLocked) {
		t.Fatalf("second lock err = %v, want ErrLocked", err)
	}

	other, err := l.TryLock(ctx, "search")
	if err != nil {
		t.Fatalf("different name should not conflict: %v", err)
	}
	other()

	release()
	release()

	again, err := l.TryLock(ctx, "refresh")
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	again()
}

func TestFileLockPath(t *testing.T) {
	tests := []struct{ path, name, want string }{
		{"/d/iw.lock", "refresh", "/d/iw.refresh.lock"},
		{"/d/iw", "search", "/d/iw.search.lock"},
	}
	for _, tt := range tests {
		if got := (File{Path: tt.path}).lockPath(tt.name); got != tt.want {
			t.Errorf("lockPath(%q,%q) = %q, want %q", tt.path, tt.name, got, tt.want)
		}
	}
}

func TestNoop(t *testing.T) {
	r1, err := Noop{}.TryLock(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	r2, err := Noop{}.TryLock(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	r1()
	r2()
}

// Needs a live server: INTERNWATCH_TEST_REDIS=redis://localhost:6379/15
func TestRedisLock(t *testing.T) {
	url := os.Getenv("INTERNWATCH_TEST_REDIS")
	if url == "" {
		t.Skip("INTERNWATCH_TEST_REDIS not set")
	}
	ctx := context.Background()
	client, err := DialRedis(ctx, url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	l := NewRedis(client, 5*time.Second, "internwatch:test:"+t.Name())
	release, err := l.TryLock(ctx, "refresh")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := l.TryLock(ctx, "refresh"); !errors.Is(err, ErrLocked) {
		t.Fatalf("err = %v, want ErrLocked", err)
	}
	release()
	again, err := l.TryLock(ctx, "refresh")
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	again()
}
