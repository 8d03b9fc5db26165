// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package toolexec implements the tool buffer & parallel executor (C8):
// a bounded-concurrency fan-out of read-only tool calls with
// deterministic, input-order result reassembly. Adapted from the
// teacher's errgroup-based sub-agent parallelism
// (pkg/agent/workflowagent/parallel.go), whose unordered completion
// channel is replaced here with an indexed result slice so output order
// always matches input order regardless of completion order.
package toolexec

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Executor is the single-tool dispatch capability the core requires from
// its host (spec §6 ToolExecutor). Implementations must be re-entrant and
// must surface tool-domain errors as Err rather than panicking.
type Executor interface {
	Invoke(ctx context.Context, name string, args []byte) (string, error)
}

// Call is one tool invocation to run as part of a batch, keyed by its
// position in the batch (not necessarily the registry id) so results can
// be reassembled in source order.
type Call struct {
	ID   string
	Name string
	Args []byte
}

// Result is one slot of execute_parallel's output: exactly one of Output
// or Err is meaningful, mirroring Result<String, ToolError>. Cancelled
// indicates the call was aborted by a cooperative cancellation rather
// than failing on its own.
type Result struct {
	ID        string
	Output    string
	Err       error
	Cancelled bool
}

// DefaultMaxConcurrency returns min(CPU count, 8), the spec's default for
// settings.max_parallel.
func DefaultMaxConcurrency() int {
	n := runtime.NumCPU()
	if n > 8 {
		return 8
	}
	if n < 1 {
		return 1
	}
	return n
}

// drainTimeout bounds how long a cancelled in-flight call is awaited
// before its result is recorded as Cancelled regardless (spec §4.8).
const drainTimeout = 250 * time.Millisecond

// ExecuteParallel dispatches calls against executor with at most
// maxConcurrency running at once, gated by a counting semaphore, and
// returns one Result per call reassembled in input order. All results are
// collected, including errors — there is no short-circuiting, and no
// batch-level deadline is imposed here (the orchestrator's global timeout
// bounds the whole turn).
//
// If ctx is cancelled while calls are in flight, each in-flight goroutine
// is given up to drainTimeout to return before its slot is recorded as
// Cancelled; ExecuteParallel itself always returns once every slot is
// settled, never before.
func ExecuteParallel(ctx context.Context, executor Executor, calls []Call, maxConcurrency int) []Result {
	if maxConcurrency < 1 {
		maxConcurrency = DefaultMaxConcurrency()
	}
	results := make([]Result, len(calls))
	settled := make([]bool, len(calls))
	var mu sync.Mutex
	sem := semaphore.NewWeighted(int64(maxConcurrency))
	done := make(chan struct{})

	// errgroup fans the batch out; its own error propagation is unused
	// on purpose (spec: "all results are collected... no
	// short-circuiting") — each goroutine records its own Result instead
	// of returning an error that would cancel its siblings.
	group, groupCtx := errgroup.WithContext(context.Background())

	go func() {
		defer close(done)
		for i, c := range calls {
			i, c := i, c
			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				results[i] = Result{ID: c.ID, Cancelled: true, Err: ctx.Err()}
				settled[i] = true
				mu.Unlock()
				continue
			}
			group.Go(func() error {
				defer sem.Release(1)
				out, err := executor.Invoke(groupCtx, c.Name, c.Args)
				mu.Lock()
				defer mu.Unlock()
				if ctx.Err() != nil {
					results[i] = Result{ID: c.ID, Cancelled: true, Err: ctx.Err()}
				} else {
					results[i] = Result{ID: c.ID, Output: out, Err: err}
				}
				settled[i] = true
				return nil
			})
		}
		_ = group.Wait()
	}()

	select {
	case <-done:
		return results
	case <-ctx.Done():
		select {
		case <-done:
		case <-time.After(drainTimeout):
			mu.Lock()
			for i, ok := range settled {
				if !ok {
					results[i] = Result{ID: calls[i].ID, Cancelled: true, Err: ctx.Err()}
				}
			}
			mu.Unlock()
		}
		return results
	}
}
