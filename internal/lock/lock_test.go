package lock

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "schemacanvas.lock")

	if err := Acquire(path); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	held, pid, err := IsHeld(path)
	if err != nil || !held || pid != os.Getpid() {
		t.Errorf("IsHeld() = %v, %d, %v", held, pid, err)
	}

	// re-acquiring from the owning process is allowed
	if err := Acquire(path); err != nil {
		t.Errorf("re-Acquire() error: %v", err)
	}

	if err := Release(path); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if err := Release(path); err != nil {
		t.Errorf("second Release() error: %v", err)
	}
	if held, _, _ := IsHeld(path); held {
		t.Error("lock should be free after release")
	}
}

func TestAcquireHeldByOtherProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemacanvas.lock")
	// the parent process (the test runner) is alive and is not us
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o644); err != nil {
		t.Fatal(err)
	}
	err := Acquire(path)
	var held *HeldError
	if !errors.As(err, &held) {
		t.Fatalf("Acquire() = %v, want *HeldError", err)
	}
	if held.PID != os.Getppid() {
		t.Errorf("HeldError.PID = %d, want %d", held.PID, os.Getppid())
	}
}

func TestAcquireTakesOverDeadOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemacanvas.lock")
	// PIDs are bounded well below this on every supported platform
	if err := os.WriteFile(path, []byte("2147483000"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Acquire(path); err != nil {
		t.Fatalf("Acquire() over dead owner: %v", err)
	}
	if _, pid, _ := IsHeld(path); pid != os.Getpid() {
		t.Errorf("lock owner = %d, want %d", pid, os.Getpid())
	}
}

func TestAcquireTakesOverGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemacanvas.lock")
	if err := os.WriteFile(path, []byte("not-a-pid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Acquire(path); err != nil {
		t.Errorf("Acquire() over garbage lock: %v", err)
	}
}
