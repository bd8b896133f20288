package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	queueCapacity     = 256
	defaultJobTimeout = 2 * time.Minute
)

// Job is one unit of queued work: a registered handler name plus its
// JSON-encoded payload.
type Job struct {
	Name    string
	Payload []byte
}

// HandlerFunc processes one job. The context carries the per-job timeout.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Queue is an in-process fire-and-forget job queue: producers enqueue typed
// messages, a fixed pool of workers dispatches them by name. Jobs run to
// completion or failure; there is no mid-flight cancellation beyond the
// per-job timeout.
type Queue struct {
	jobs     chan Job
	handlers map[string]HandlerFunc
	workers  int
	timeout  time.Duration

	mu      sync.RWMutex
	wg      sync.WaitGroup
	started bool
	stopped bool
}

func NewQueue(workers int) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		jobs:     make(chan Job, queueCapacity),
		handlers: make(map[string]HandlerFunc),
		workers:  workers,
		timeout:  defaultJobTimeout,
	}
}

// Register binds a handler to a job name. Registration must finish before
// Start.
func (q *Queue) Register(name string, handler HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[name] = handler
}

// Enqueue serializes the payload and queues the job without blocking. A full
// queue is an error; callers treat it as any other dispatch failure.
func (q *Queue) Enqueue(name string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", name, err)
	}

	// The read lock holds off Stop for the duration of the send, so a
	// producer racing shutdown gets an error instead of a closed channel.
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return fmt.Errorf("job queue is stopped, dropping %s", name)
	}

	select {
	case q.jobs <- Job{Name: name, Payload: body}:
		logrus.WithField("job", name).Debug("Enqueued job")
		return nil
	default:
		return fmt.Errorf("job queue is full, dropping %s", name)
	}
}

// Start launches the worker pool. Workers drain remaining jobs and exit when
// ctx is cancelled and the channel is closed via Stop.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	logrus.WithField("workers", q.workers).Info("Job queue started")
}

// Stop refuses further enqueues, then waits for queued and in-flight jobs
// to finish. Safe to call once producers may still be running.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	logrus.Info("Job queue stopped")
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	for job := range q.jobs {
		q.process(ctx, id, job)
	}
}

func (q *Queue) process(ctx context.Context, workerID int, job Job) {
	q.mu.RLock()
	handler, ok := q.handlers[job.Name]
	q.mu.RUnlock()

	if !ok {
		logrus.WithFields(logrus.Fields{
			"worker": workerID,
			"job":    job.Name,
		}).Warn("No handler registered for job")
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	startTime := time.Now()
	err := handler(jobCtx, job.Payload)
	elapsed := time.Since(startTime)

	fields := logrus.Fields{
		"worker":   workerID,
		"job":      job.Name,
		"duration": elapsed.Round(time.Millisecond).String(),
	}
	if err != nil {
		logrus.WithFields(fields).WithError(err).Error("Job failed")
		return
	}
	logrus.WithFields(fields).Debug("Job completed")
}
