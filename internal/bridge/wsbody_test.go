package bridge

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// connectedForTest puts an undialed client into the connected state with one
// tracked task, so routing and teardown can be exercised without a socket.
func connectedForTest(taskID string) *WSBodyClient {
	c := NewWSBodyClient(DefaultWSBodyConfig("ws://body"))
	c.connected.Store(true)
	c.pending[taskID] = make(chan types.BodyFeedback, 1)
	return c
}

func TestWSBodyFeedbackRacingTeardown(t *testing.T) {
	// A feedback frame arriving while the connection is torn down must never
	// send on the closed pending channel.
	for i := 0; i < 500; i++ {
		c := connectedForTest("task")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.route(wsFrame{Type: "feedback", TaskID: "task", Status: types.TaskExecuting})
		}()
		go func() {
			defer wg.Done()
			c.dropConnection()
		}()
		wg.Wait()

		assert.False(t, c.connected.Load())
		assert.Empty(t, c.pending)
	}
}

func TestWSBodyRouteIgnoresUnknownTask(t *testing.T) {
	c := connectedForTest("known")
	c.route(wsFrame{Type: "feedback", TaskID: "stranger", Status: types.TaskCompleted})
	assert.Empty(t, c.pending["known"])
}

func TestWSBodyDropConnectionReleasesWaiters(t *testing.T) {
	c := connectedForTest("task")
	ch := c.pending["task"]

	c.dropConnection()

	_, open := <-ch
	assert.False(t, open, "waiters are released by closing their channel")

	_, ok := c.Manifest()
	assert.False(t, ok, "a dropped connection reports no manifest")

	c.dropConnection() // idempotent
}
