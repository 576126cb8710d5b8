package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_StartsPinned(t *testing.T) {
	clock := NewManualClock(1000)
	assert.Equal(t, int64(1000), clock.Now())
	assert.Equal(t, int64(1000), clock.Now(), "reading must not advance time")
}

func TestManualClock_AdvanceAndSet(t *testing.T) {
	clock := NewManualClock(1000)

	clock.Advance(11)
	assert.Equal(t, int64(1011), clock.Now())

	clock.Set(5000)
	assert.Equal(t, int64(5000), clock.Now())
}

func TestManualClock_ConcurrentAdvance(t *testing.T) {
	clock := NewManualClock(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				clock.Advance(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5000), clock.Now())
}
