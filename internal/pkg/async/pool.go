// Package async runs independent named tasks on a bounded set of workers.
package async

import (
	"context"
	"fmt"
	"sync"
)

// Task is one unit of work. Execute receives the context passed to Pool.Execute.
type Task struct {
	Name    string
	Execute func(ctx context.Context) (any, error)
}

// Result is the outcome of a task, keyed by its name.
type Result struct {
	Name string
	Data any
	Err  error
}

// Pool bounds how many tasks run at once. A Pool is safe for concurrent use
// and may be reused.
type Pool struct {
	workerCount int
}

// NewPool creates a pool with workerCount workers (at least one).
func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{workerCount: workerCount}
}

func run(ctx context.Context, task Task) (result Result) {
	result.Name = task.Name
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	result.Data, result.Err = task.Execute(ctx)
	return result
}

// Execute runs every task and returns their results by name. Tasks that had
// not started when ctx was cancelled report ctx.Err().
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	queue := make(chan Task)
	results := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	workers := min(p.workerCount, len(tasks))
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				results <- run(ctx, task)
			}
		}()
	}

send:
	for i, task := range tasks {
		select {
		case queue <- task:
		case <-ctx.Done():
			for _, skipped := range tasks[i:] {
				results <- Result{Name: skipped.Name, Err: ctx.Err()}
			}
			break send
		}
	}
	close(queue)
	wg.Wait()
	close(results)

	out := make(map[string]Result, len(tasks))
	for r := range results {
		out[r.Name] = r
	}
	return out
}
