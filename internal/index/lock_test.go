package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLock_LockUnlock(t *testing.T) {
	dir := t.TempDir()
	lock := NewFileLock(dir)

	if err := lock.Lock(context.Background()); err != nil {
		t.Fatalf("Lock() failed: %v", err)
	}

	if _, err := os.Stat(lock.Path()); os.IsNotExist(err) {
		t.Error("Lock file was not created")
	}

	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock() failed: %v", err)
	}

	// Second unlock should not error
	if err := lock.Unlock(); err != nil {
		t.Errorf("Second Unlock() should not error: %v", err)
	}
}

func TestFileLock_TryLock_AlreadyLocked(t *testing.T) {
	dir := t.TempDir()

	lock1 := NewFileLock(dir)
	if err := lock1.Lock(context.Background()); err != nil {
		t.Fatalf("Lock() failed: %v", err)
	}
	defer func() { _ = lock1.Unlock() }()

	lock2 := NewFileLock(dir)
	acquired, err := lock2.TryLock()
	if err != nil {
		t.Fatalf("TryLock() error: %v", err)
	}
	if acquired {
		t.Error("TryLock() should return false when lock is held")
		_ = lock2.Unlock()
	}
}

func TestFileLock_Lock_WaitsForRelease(t *testing.T) {
	dir := t.TempDir()

	lock1 := NewFileLock(dir)
	if err := lock1.Lock(context.Background()); err != nil {
		t.Fatalf("Lock() failed: %v", err)
	}

	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = lock1.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lock2 := NewFileLock(dir)
	if err := lock2.Lock(ctx); err != nil {
		t.Fatalf("Lock() should succeed once released: %v", err)
	}
	_ = lock2.Unlock()
}

func TestFileLock_Path(t *testing.T) {
	dir := "/some/dir"
	lock := NewFileLock(dir)

	expected := filepath.Join(dir, LockFileName)
	if lock.Path() != expected {
		t.Errorf("Path() = %q, want %q", lock.Path(), expected)
	}
}
