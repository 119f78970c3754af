package chat

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSaverCoalescesBurst(t *testing.T) {
	var persists atomic.Int32
	s := NewSaver(50*time.Millisecond, func() { persists.Add(1) })
	defer s.Close()

	for i := 0; i < 10; i++ {
		s.Schedule()
		time.Sleep(5 * time.Millisecond)
	}

	assert.EqualValues(t, 0, persists.Load(), "quiet period has not elapsed yet")

	assert.Eventually(t, func() bool {
		return persists.Load() == 1
	}, time.Second, 10*time.Millisecond, "a burst of mutations should persist exactly once")

	// No further writes without further mutations.
	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 1, persists.Load())
}

func TestSaverFlushPersistsImmediately(t *testing.T) {
	var persists atomic.Int32
	s := NewSaver(time.Hour, func() { persists.Add(1) })
	defer s.Close()

	s.Schedule()
	s.Flush()
	assert.EqualValues(t, 1, persists.Load())

	// The pending timer was cancelled by Flush.
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, persists.Load())
}

func TestSaverCloseCancelsPending(t *testing.T) {
	var persists atomic.Int32
	s := NewSaver(20*time.Millisecond, func() { persists.Add(1) })

	s.Schedule()
	s.Close()

	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 0, persists.Load(), "close must cancel the pending write")

	s.Schedule()
	s.Flush()
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 0, persists.Load(), "a closed saver stays closed")
}
