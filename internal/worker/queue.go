// Package worker runs background jobs serialized per key. Jobs submitted for
// the same key execute one at a time in submission order; jobs for different
// keys run concurrently. The chat core uses it to serialize summary
// regeneration per conversation so a slow summary cannot overwrite a newer
// one out of order.
package worker

import "sync"

const defaultBacklog = 16

type keyQueue struct {
	jobs    []func()
	running bool
}

// Queue dispatches jobs on per-key goroutines with a bounded backlog.
type Queue struct {
	mu      sync.Mutex
	backlog int
	queues  map[int64]*keyQueue
	wg      sync.WaitGroup
}

// NewQueue builds a queue with the given per-key backlog limit.
func NewQueue(backlog int) *Queue {
	if backlog <= 0 {
		backlog = defaultBacklog
	}
	return &Queue{
		backlog: backlog,
		queues:  make(map[int64]*keyQueue),
	}
}

// Submit enqueues job for key. Returns false when the key's backlog is full;
// the job is dropped and the caller decides whether that matters.
func (q *Queue) Submit(key int64, job func()) bool {
	if job == nil {
		return false
	}
	q.mu.Lock()
	kq := q.queues[key]
	if kq == nil {
		kq = &keyQueue{}
		q.queues[key] = kq
	}
	if len(kq.jobs) >= q.backlog {
		q.mu.Unlock()
		return false
	}
	kq.jobs = append(kq.jobs, job)
	if kq.running {
		q.mu.Unlock()
		return true
	}
	kq.running = true
	q.wg.Add(1)
	q.mu.Unlock()

	go q.drain(key, kq)
	return true
}

// Wait blocks until all submitted jobs have finished. Intended for shutdown
// and tests.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) drain(key int64, kq *keyQueue) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if len(kq.jobs) == 0 {
			kq.running = false
			delete(q.queues, key)
			q.mu.Unlock()
			return
		}
		job := kq.jobs[0]
		kq.jobs = kq.jobs[1:]
		q.mu.Unlock()

		job()
	}
}
