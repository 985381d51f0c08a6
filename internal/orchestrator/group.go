package orchestrator

import (
	"fmt"
	"sync"
)

// TaskResult is the recorded outcome of one background task.
type TaskResult struct {
	Name string
	Err  error
}

// Group supervises the fire-and-forget provisioning goroutines of one run.
// The triggering request does not wait on them, but their outcomes stay
// discoverable: Wait collects every result, and failures are pushed into the
// status store as they happen.
type Group struct {
	wg sync.WaitGroup

	mu      sync.Mutex
	results []TaskResult
}

// Go runs fn in a supervised goroutine. A panic is captured as a failure
// instead of taking the process down.
func (g *Group) Go(name string, fn func() error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				g.record(TaskResult{Name: name, Err: fmt.Errorf("panic: %v", r)})
			}
		}()
		g.record(TaskResult{Name: name, Err: fn()})
	}()
}

func (g *Group) record(res TaskResult) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.results = append(g.results, res)
}

// Wait blocks until every task has finished and returns all results.
func (g *Group) Wait() []TaskResult {
	g.wg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]TaskResult(nil), g.results...)
}
