package server

import "fmt"

// job represents a unit of work to be executed on the worker goroutine.
type job struct {
	fn   func() any
	done chan jobResult
}

// jobResult holds the return value from a submitted job.
type jobResult struct {
	value any
	err   error
}

// Worker serializes run execution through a single goroutine. Each run
// gets its own machine, but runs share the journal database; funneling
// them through the worker keeps journal writes ordered and turns a
// panicking program into an error instead of a dead server.
type Worker struct {
	jobs chan job
	quit chan struct{}
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker() *Worker {
	w := &Worker{
		jobs: make(chan job, 64),
		quit: make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes jobs sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	for {
		select {
		case j := <-w.jobs:
			j.done <- w.execute(j.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs a job, recovering from panics.
func (w *Worker) execute(fn func() any) jobResult {
	var result jobResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn()
	}()
	return result
}

// Do submits a function for execution on the worker goroutine and blocks
// until it completes. Returns the result and any error (including panics).
func (w *Worker) Do(fn func() any) (any, error) {
	j := job{
		fn:   fn,
		done: make(chan jobResult, 1),
	}
	w.jobs <- j
	result := <-j.done
	return result.value, result.err
}

// Stop shuts down the worker goroutine.
func (w *Worker) Stop() {
	close(w.quit)
}
