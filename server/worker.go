package server

import (
	"errors"
	"fmt"
	"sync"
)

var errWorkerStopped = errors.New("engine worker stopped")

// engineRequest is a unit of work run on the engine goroutine.
type engineRequest struct {
	fn   func(*Engine) any
	done chan engineResult
}

type engineResult struct {
	value any
	err   error
}

// Worker serializes all engine access through a single goroutine. Sessions
// and the documentation table are only touched from inside Do.
type Worker struct {
	engine   *Engine
	requests chan engineRequest
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a Worker for e and starts its goroutine.
func NewWorker(e *Engine) *Worker {
	w := &Worker{
		engine:   e,
		requests: make(chan engineRequest, 64),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	defer close(w.stopped)
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, turning a panic into an error.
func (w *Worker) execute(fn func(*Engine) any) (result engineResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("engine panic: %v", r)
			result.err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	result.value = fn(w.engine)
	return result
}

// Do runs fn on the engine goroutine and waits for it. It fails once the
// worker has been stopped.
func (w *Worker) Do(fn func(*Engine) any) (any, error) {
	req := engineRequest{
		fn:   fn,
		done: make(chan engineResult, 1),
	}
	select {
	case w.requests <- req:
	case <-w.stopped:
		return nil, errWorkerStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.stopped:
		return nil, errWorkerStopped
	}
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
	<-w.stopped
}
