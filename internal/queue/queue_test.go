package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueFirstCallerMustProcess(t *testing.T) {
	m := New()
	status := m.Enqueue("t1", Message{ID: "m1", Content: "hi"})
	assert.Equal(t, "processing", status)
}

func TestEnqueueWhileProcessingIsQueued(t *testing.T) {
	m := New()
	require.Equal(t, "processing", m.Enqueue("t1", Message{ID: "m1", Content: "hi"}))
	status := m.Enqueue("t1", Message{ID: "m2", Content: "again"})
	assert.Equal(t, "queued", status)
}

func TestEnqueueDifferentThreadsAreIndependent(t *testing.T) {
	m := New()
	assert.Equal(t, "processing", m.Enqueue("t1", Message{ID: "m1"}))
	assert.Equal(t, "processing", m.Enqueue("t2", Message{ID: "m2"}))
}

func TestDrainAndMergeReturnsEnqueueOrderAndEmpties(t *testing.T) {
	m := New()
	m.Enqueue("t1", Message{ID: "m1", Content: "first"})
	m.Enqueue("t1", Message{ID: "m2", Content: "second"})

	out := m.DrainAndMerge("t1")
	assert.Equal(t, []string{"first", "second"}, out)

	assert.Nil(t, m.DrainAndMerge("t1"), "a second drain with nothing new must return nil")
}

func TestMarkDoneFalseWhenQueueEmpty(t *testing.T) {
	m := New()
	m.Enqueue("t1", Message{ID: "m1", Content: "hi"})
	m.DrainAndMerge("t1")
	assert.False(t, m.MarkDone("t1"))

	// Processing flag is now cleared: a fresh Enqueue must report
	// "processing" again, not "queued".
	assert.Equal(t, "processing", m.Enqueue("t1", Message{ID: "m2"}))
}

func TestMarkDoneTrueWhenMessagesArrivedDuringRun(t *testing.T) {
	m := New()
	m.Enqueue("t1", Message{ID: "m1", Content: "hi"})
	m.DrainAndMerge("t1")
	m.Enqueue("t1", Message{ID: "m2", Content: "more"}) // arrives mid-run
	assert.True(t, m.MarkDone("t1"))
}

func TestAtMostOneProcessingLoopPerThread(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	results := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- m.Enqueue("t1", Message{ID: "m"})
		}(i)
	}
	wg.Wait()
	close(results)

	processingCount := 0
	for r := range results {
		if r == "processing" {
			processingCount++
		}
	}
	assert.Equal(t, 1, processingCount, "exactly one concurrent Enqueue must win the processing slot")
}

func TestBroadcastDeliversToAllSubscribers(t *testing.T) {
	m := New()
	ch1, unsub1 := m.Subscribe("t1")
	defer unsub1()
	ch2, unsub2 := m.Subscribe("t1")
	defer unsub2()

	m.Broadcast("t1", Event{Type: "chunk", Content: "hello"})

	select {
	case ev := <-ch1:
		assert.Equal(t, "hello", ev.Content)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ch1")
	}
	select {
	case ev := <-ch2:
		assert.Equal(t, "hello", ev.Content)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ch2")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	m := New()
	ch, unsubscribe := m.Subscribe("t1")
	unsubscribe()

	m.Broadcast("t1", Event{Type: "chunk"})

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should not receive after unsubscribe, and stays open but unused")
	case <-time.After(50 * time.Millisecond):
		// No delivery within the window is the expected (and likely) outcome.
	}
}

func TestCleanupRemovesThreadState(t *testing.T) {
	m := New()
	m.Enqueue("t1", Message{ID: "m1"})
	m.Cleanup("t1")
	// A fresh state is created lazily, so Enqueue after Cleanup behaves
	// like a brand new thread.
	assert.Equal(t, "processing", m.Enqueue("t1", Message{ID: "m2"}))
}
