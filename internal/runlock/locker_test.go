package runlock

import (
	"errors"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	l := New()

	release, err := l.Acquire("acct-1")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	if _, err := l.Acquire("acct-1"); !errors.Is(err, ErrRunActive) {
		t.Fatalf("second acquire: want ErrRunActive, got %v", err)
	}

	// A different account is independent.
	release2, err := l.Acquire("acct-2")
	if err != nil {
		t.Fatalf("acquire other account: %v", err)
	}
	release2()

	release()
	if _, err := l.Acquire("acct-1"); err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
}
