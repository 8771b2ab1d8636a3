package queue

import (
	"fmt"
	"log/slog"
	"sync"
)

type Job struct {
	Fn   func() error
	Errc chan error
}

// RequestQueueManager runs jobs on a fixed number of workers. EnqueueJob
// blocks while the queue is full, which bounds the work in flight.
type RequestQueueManager struct {
	JobQueue   chan Job
	MaxWorkers int
	log        *slog.Logger
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

func NewRequestQueueManager(queueSize int, maxWorkers int) *RequestQueueManager {
	return NewRequestQueueManagerWithLogger(queueSize, maxWorkers, slog.Default())
}

func NewRequestQueueManagerWithLogger(queueSize int, maxWorkers int, log *slog.Logger) *RequestQueueManager {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	manager := &RequestQueueManager{
		JobQueue:   make(chan Job, queueSize),
		MaxWorkers: maxWorkers,
		log:        log.With("component", "queue"),
	}
	manager.startWorkers()
	return manager
}

func (rqm *RequestQueueManager) startWorkers() {
	for i := 0; i < rqm.MaxWorkers; i++ {
		rqm.wg.Add(1)
		go func(workerID int) {
			defer rqm.wg.Done()
			rqm.log.Debug("worker started", "worker", workerID)
			for job := range rqm.JobQueue {
				err := rqm.run(job)
				if job.Errc != nil {
					job.Errc <- err
				}
			}
			rqm.log.Debug("worker stopped", "worker", workerID)
		}(i)
	}
}

// run converts a panicking job into an error so the worker survives.
func (rqm *RequestQueueManager) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			rqm.log.Error("job panicked", "panic", r)
			err = fmt.Errorf("queue: job panicked: %v", r)
		}
	}()
	return job.Fn()
}

func (rqm *RequestQueueManager) EnqueueJob(job Job) {
	rqm.JobQueue <- job
}

func (rqm *RequestQueueManager) Depth() int {
	return len(rqm.JobQueue)
}

// Shutdown stops accepting jobs and waits for queued ones to finish.
func (rqm *RequestQueueManager) Shutdown() {
	rqm.closeOnce.Do(func() { close(rqm.JobQueue) })
	rqm.wg.Wait()
}
