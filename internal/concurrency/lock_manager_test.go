package concurrency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLock_SameKeySameMutex(t *testing.T) {
	lm := NewLockManager()

	a := lm.GetLock("biz-1")
	b := lm.GetLock("biz-1")
	c := lm.GetLock("biz-2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestTryLock(t *testing.T) {
	lm := NewLockManager()

	first, ok := lm.TryLock("biz-1")
	assert.True(t, ok)

	_, ok = lm.TryLock("biz-1")
	assert.False(t, ok, "Held lock cannot be re-acquired")

	_, ok = lm.TryLock("biz-2")
	assert.True(t, ok, "Other keys are independent")

	first.Unlock()
	_, ok = lm.TryLock("biz-1")
	assert.True(t, ok, "Released lock is acquirable again")
}

func TestGetLock_ConcurrentAccess(t *testing.T) {
	lm := NewLockManager()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock := lm.GetLock("shared")
			lock.Lock()
			counter++
			lock.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}
