package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestQueueDispatchesByName(t *testing.T) {
	queue := NewQueue(2)

	type payload struct {
		Value string `json:"value"`
	}

	var mu sync.Mutex
	received := make(map[string][]string)
	done := make(chan struct{}, 4)

	handler := func(name string) HandlerFunc {
		return func(ctx context.Context, raw []byte) error {
			var p payload
			if err := json.Unmarshal(raw, &p); err != nil {
				t.Errorf("bad payload for %s: %v", name, err)
			}
			mu.Lock()
			received[name] = append(received[name], p.Value)
			mu.Unlock()
			done <- struct{}{}
			return nil
		}
	}

	queue.Register("job.a", handler("job.a"))
	queue.Register("job.b", handler("job.b"))
	queue.Start(context.Background())

	if err := queue.Enqueue("job.a", payload{Value: "one"}); err != nil {
		t.Fatal(err)
	}
	if err := queue.Enqueue("job.b", payload{Value: "two"}); err != nil {
		t.Fatal(err)
	}
	if err := queue.Enqueue("job.a", payload{Value: "three"}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received["job.a"]) != 2 {
		t.Errorf("job.a handled %d times, want 2", len(received["job.a"]))
	}
	if len(received["job.b"]) != 1 {
		t.Errorf("job.b handled %d times, want 1", len(received["job.b"]))
	}

	queue.Stop()
}

func TestQueueUnknownJobDoesNotBlock(t *testing.T) {
	queue := NewQueue(1)

	handled := make(chan struct{}, 1)
	queue.Register("known", func(ctx context.Context, raw []byte) error {
		handled <- struct{}{}
		return nil
	})
	queue.Start(context.Background())
	defer queue.Stop()

	if err := queue.Enqueue("unknown", map[string]string{"x": "y"}); err != nil {
		t.Fatal(err)
	}
	if err := queue.Enqueue("known", map[string]string{}); err != nil {
		t.Fatal(err)
	}

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("a job after an unknown name was never handled")
	}
}

func TestQueueEnqueueFullIsAnError(t *testing.T) {
	// Workers are never started, so the channel fills up.
	queue := NewQueue(1)

	var err error
	for i := 0; i <= queueCapacity; i++ {
		err = queue.Enqueue("never.handled", struct{}{})
		if err != nil {
			break
		}
	}
	if err == nil {
		t.Fatal("enqueue into a full queue should fail rather than block")
	}
}

func TestQueueEnqueueUnserializablePayload(t *testing.T) {
	queue := NewQueue(1)

	if err := queue.Enqueue("bad", make(chan int)); err == nil {
		t.Fatal("unserializable payload should fail to enqueue")
	}
}

func TestQueueStopDrainsInFlightJobs(t *testing.T) {
	queue := NewQueue(1)

	var mu sync.Mutex
	count := 0
	queue.Register("slow", func(ctx context.Context, raw []byte) error {
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})
	queue.Start(context.Background())

	for i := 0; i < 5; i++ {
		if err := queue.Enqueue("slow", struct{}{}); err != nil {
			t.Fatal(err)
		}
	}

	queue.Stop()

	mu.Lock()
	defer mu.Unlock()
	if count != 5 {
		t.Errorf("handled %d jobs before stop returned, want 5", count)
	}
}

func TestQueueEnqueueAfterStopIsAnError(t *testing.T) {
	queue := NewQueue(1)
	queue.Register("noop", func(ctx context.Context, raw []byte) error { return nil })
	queue.Start(context.Background())
	queue.Stop()

	// A producer racing shutdown, like the sweep ticker, must get an
	// error back instead of panicking on a closed channel.
	if err := queue.Enqueue("noop", struct{}{}); err == nil {
		t.Fatal("enqueue after stop should fail")
	}

	// Stop is idempotent.
	queue.Stop()
}
