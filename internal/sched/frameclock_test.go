package sched

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameClock_Advance(t *testing.T) {
	var c FrameClock
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(5)
		}()
	}
	wg.Wait()

	require.Equal(t, int64(40), c.Elapsed())
	require.Equal(t, int64(8), c.Frames())
}
