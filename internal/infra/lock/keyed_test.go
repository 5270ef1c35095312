package lock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyed_DifferentKeysDoNotContend(t *testing.T) {
	locks := NewKeyed[string]()

	unlockA := locks.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestKeyed_SameKeyWaits(t *testing.T) {
	locks := NewKeyed[int]()

	unlock := locks.Lock(1)

	acquired := make(chan struct{})
	go func() {
		second := locks.Lock(1)
		close(acquired)
		second()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder got the lock while it was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not handed over")
	}

	assert.Eventually(t, func() bool { return locks.Len() == 0 }, time.Second, 5*time.Millisecond)
}
