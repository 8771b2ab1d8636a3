package queue

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
)

func quietManager(size, workers int) *RequestQueueManager {
	return NewRequestQueueManagerWithLogger(size, workers, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestJobsRunAndReportErrors(t *testing.T) {
	rqm := quietManager(4, 2)
	defer rqm.Shutdown()

	want := errors.New("boom")
	errc := make(chan error, 1)
	rqm.EnqueueJob(Job{Fn: func() error { return want }, Errc: errc})
	if err := <-errc; !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestPanickingJobBecomesError(t *testing.T) {
	rqm := quietManager(1, 1)
	defer rqm.Shutdown()

	errc := make(chan error, 1)
	rqm.EnqueueJob(Job{Fn: func() error { panic("bad handler") }, Errc: errc})
	if err := <-errc; err == nil {
		t.Fatal("expected error from panicking job")
	}

	// The worker is still alive.
	rqm.EnqueueJob(Job{Fn: func() error { return nil }, Errc: errc})
	if err := <-errc; err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestShutdownDrainsQueue(t *testing.T) {
	rqm := quietManager(16, 1)

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		rqm.EnqueueJob(Job{Fn: func() error {
			ran.Add(1)
			return nil
		}})
	}
	rqm.Shutdown()
	rqm.Shutdown()

	if ran.Load() != 10 {
		t.Fatalf("expected 10 jobs, got %d", ran.Load())
	}
}
