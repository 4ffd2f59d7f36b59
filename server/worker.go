package server

import (
	"fmt"

	"github.com/chazu/oops/vm"
)

// workRequest is a unit of work to run on the worker goroutine.
type workRequest struct {
	fn   func(*vm.Interpreter) any
	done chan workResult
}

type workResult struct {
	value any
	err   error
}

// Worker serializes all access to one interpreter through a single
// goroutine. Each session owns a Worker, so requests against the same
// session run in arrival order while separate sessions run in parallel.
type Worker struct {
	interp   *vm.Interpreter
	requests chan workRequest
	quit     chan struct{}
}

// NewWorker creates a Worker and starts its goroutine.
func NewWorker(in *vm.Interpreter) *Worker {
	w := &Worker{
		interp:   in,
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
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
func (w *Worker) execute(fn func(*vm.Interpreter) any) (result workResult) {
	defer func() {
		if r := recover(); r != nil {
			result.err = fmt.Errorf("%v", r)
		}
	}()
	result.value = fn(w.interp)
	return result
}

// Do runs fn on the worker goroutine and waits for it. A panic inside fn
// is returned as an error.
func (w *Worker) Do(fn func(*vm.Interpreter) any) (any, error) {
	req := workRequest{
		fn:   fn,
		done: make(chan workResult, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, fmt.Errorf("worker stopped")
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.quit:
		return nil, fmt.Errorf("worker stopped")
	}
}

// Stop shuts down the worker goroutine.
func (w *Worker) Stop() {
	close(w.quit)
}

// Interpreter returns the interpreter the worker serializes.
func (w *Worker) Interpreter() *vm.Interpreter {
	return w.interp
}
