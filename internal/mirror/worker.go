package mirror

import (
	"context"
	"sync/atomic"
)

const defaultBufferSize = 64

// worker runs queued jobs on one goroutine.
type worker struct {
	jobs    chan func()
	dropped atomic.Uint64
	done    chan struct{}
}

func newWorker(size int) *worker {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &worker{
		jobs: make(chan func(), size),
		done: make(chan struct{}),
	}
}

// offer queues job without blocking.
func (w *worker) offer(job func()) {
	select {
	case w.jobs <- job:
	default:
		w.dropped.Add(1)
	}
}

// run executes jobs until ctx is done, then drains the queue.
func (w *worker) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case job := <-w.jobs:
			job()
		case <-ctx.Done():
			for {
				select {
				case job := <-w.jobs:
					job()
				default:
					return
				}
			}
		}
	}
}

func (w *worker) wait() {
	<-w.done
}
