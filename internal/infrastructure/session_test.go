package infrastructure

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionManagerTryStart(t *testing.T) {
	sm := NewSessionManager()

	assert.True(t, sm.TryStart("1:dm"))
	assert.False(t, sm.TryStart("1:dm"))
	assert.True(t, sm.TryStart("1:comment"))
	assert.Len(t, sm.Active(), 2)

	sm.Finish("1:dm")
	assert.True(t, sm.TryStart("1:dm"))
}

func TestSessionManagerSingleWinner(t *testing.T) {
	sm := NewSessionManager()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sm.TryStart("7:dm") {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}
