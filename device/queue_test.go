package device

import (
	"sync"
	"testing"
)

func TestQueueRunsJobsInOrder(t *testing.T) {
	q := NewQueue()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		if !q.Submit(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}) {
			t.Fatalf("submit %d rejected", i)
		}
	}
	q.Close()

	if len(got) != 100 {
		t.Fatalf("ran %d jobs, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("job %d ran at position %d", v, i)
		}
	}
}

func TestQueueSubmitAfterClose(t *testing.T) {
	q := NewQueue()
	q.Close()

	if q.Submit(func() { t.Error("job ran after close") }) {
		t.Error("Submit accepted after Close")
	}
}

func TestQueueSubmitFromWorker(t *testing.T) {
	q := NewQueue()

	ran := make(chan struct{})
	q.Submit(func() {
		// Resubmission from the worker goroutine must not deadlock.
		q.Submit(func() { close(ran) })
	})
	<-ran
	q.Close()
}

func TestQueueCloseIdempotent(t *testing.T) {
	q := NewQueue()
	q.Submit(func() {})
	q.Close()
	q.Close()
}
