// Package bulk runs one operation over many items with a bounded worker pool.
package bulk

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Operation represents a bulk operation configuration
type Operation struct {
	Jobs            int
	ContinueOnError bool
	Ordered         bool
	// Log receives one entry per finished item. Nil discards them.
	Log logrus.FieldLogger
}

// Result represents the result of a bulk operation
type Result struct {
	TotalItems int         `json:"total"`
	Succeeded  int         `json:"succeeded"`
	Failed     int         `json:"failed"`
	Skipped    int         `json:"skipped"`
	Errors     []ItemError `json:"errors,omitempty"`
}

// ItemError represents an error for a specific item
type ItemError struct {
	Item  string `json:"item"`
	Error error  `json:"-"`
}

// ItemFunc is the function to execute for each item
type ItemFunc func(item string) error

// Execute runs the bulk operation on the given items
func (op *Operation) Execute(items []string, fn ItemFunc) *Result {
	if len(items) == 0 {
		return &Result{}
	}

	jobs := op.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs > len(items) {
		jobs = len(items)
	}

	if op.Ordered || jobs == 1 {
		return op.executeSequential(items, fn)
	}
	return op.executeParallel(items, fn, jobs)
}

func (op *Operation) report(item string, err error) {
	if op.Log == nil {
		return
	}
	if err != nil {
		op.Log.WithField("item", item).WithError(err).Warn("item failed")
		return
	}
	op.Log.WithField("item", item).Debug("item done")
}

// executeSequential processes items one by one
func (op *Operation) executeSequential(items []string, fn ItemFunc) *Result {
	result := &Result{TotalItems: len(items)}

	for i, item := range items {
		err := fn(item)
		op.report(item, err)
		if err == nil {
			result.Succeeded++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, ItemError{Item: item, Error: err})
		if !op.ContinueOnError {
			result.Skipped = len(items) - i - 1
			break
		}
	}
	return result
}

// executeParallel processes items in parallel using a worker pool
func (op *Operation) executeParallel(items []string, fn ItemFunc, workers int) *Result {
	result := &Result{TotalItems: len(items)}

	workQueue := make(chan string, len(items))
	for _, item := range items {
		workQueue <- item
	}
	close(workQueue)

	var (
		succeeded int32
		failed    int32
		stop      atomic.Bool
		errorsMux sync.Mutex
		wg        sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workQueue {
				if !op.ContinueOnError && stop.Load() {
					continue
				}

				err := fn(item)
				op.report(item, err)
				if err == nil {
					atomic.AddInt32(&succeeded, 1)
					continue
				}
				atomic.AddInt32(&failed, 1)
				errorsMux.Lock()
				result.Errors = append(result.Errors, ItemError{Item: item, Error: err})
				errorsMux.Unlock()
				if !op.ContinueOnError {
					stop.Store(true)
				}
			}
		}()
	}
	wg.Wait()

	result.Succeeded = int(succeeded)
	result.Failed = int(failed)
	result.Skipped = result.TotalItems - result.Succeeded - result.Failed
	return result
}

// Err summarises the failures of r, or returns nil when every item succeeded.
func (r *Result) Err() error {
	if r.Failed == 0 {
		return nil
	}
	if len(r.Errors) == 1 {
		return fmt.Errorf("%s: %w", r.Errors[0].Item, r.Errors[0].Error)
	}
	return fmt.Errorf("%d of %d items failed", r.Failed, r.TotalItems)
}

// PrintSummary prints a human-readable summary of the result
func (r *Result) PrintSummary(w io.Writer) {
	switch {
	case r.Failed == 0 && r.Skipped == 0:
		fmt.Fprintf(w, "✓ All %d operations succeeded\n", r.TotalItems)
	case r.Succeeded == 0:
		fmt.Fprintf(w, "✗ No operation succeeded (%d failed, %d skipped)\n", r.Failed, r.Skipped)
	default:
		fmt.Fprintf(w, "⚠ Partial success: %d succeeded, %d failed, %d skipped (out of %d)\n",
			r.Succeeded, r.Failed, r.Skipped, r.TotalItems)
	}

	shown := r.Errors
	if len(shown) > 10 {
		fmt.Fprintf(w, "\nShowing first 10 errors (of %d):\n", len(shown))
		shown = shown[:10]
	} else if len(shown) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
	}
	for _, e := range shown {
		fmt.Fprintf(w, "  %s: %v\n", e.Item, e.Error)
	}
}
