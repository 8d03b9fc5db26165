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

package toolexec

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	inFlight    int32
	maxInFlight int32
	delay       time.Duration
	fail        map[string]error
}

func (f *fakeExecutor) Invoke(ctx context.Context, name string, args []byte) (string, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	for {
		cur := atomic.LoadInt32(&f.maxInFlight)
		if n <= cur || atomic.CompareAndSwapInt32(&f.maxInFlight, cur, n) {
			break
		}
	}
	defer atomic.AddInt32(&f.inFlight, -1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail != nil {
		if err, ok := f.fail[name]; ok {
			return "", err
		}
	}
	return "ok:" + name, nil
}

func TestExecuteParallel_PreservesInputOrderRegardlessOfCompletionOrder(t *testing.T) {
	calls := []Call{
		{ID: "1", Name: "slow", Args: nil},
		{ID: "2", Name: "fast", Args: nil},
		{ID: "3", Name: "medium", Args: nil},
	}
	// fast finishes first, slow finishes last, but results must land in
	// input-order slots regardless.
	delays := map[string]time.Duration{"slow": 30 * time.Millisecond, "fast": 0, "medium": 10 * time.Millisecond}
	exec := delayedExecutor{delays: delays}

	results := ExecuteParallel(context.Background(), exec, calls, 8)
	require.Len(t, results, 3)
	assert.Equal(t, "1", results[0].ID)
	assert.Equal(t, "2", results[1].ID)
	assert.Equal(t, "3", results[2].ID)
	assert.Equal(t, "ok:slow", results[0].Output)
	assert.Equal(t, "ok:fast", results[1].Output)
	assert.Equal(t, "ok:medium", results[2].Output)
}

type delayedExecutor struct {
	delays map[string]time.Duration
}

func (d delayedExecutor) Invoke(ctx context.Context, name string, args []byte) (string, error) {
	time.Sleep(d.delays[name])
	return "ok:" + name, nil
}

func TestExecuteParallel_RespectsConcurrencyBound(t *testing.T) {
	exec := &fakeExecutor{delay: 20 * time.Millisecond}
	calls := make([]Call, 20)
	for i := range calls {
		calls[i] = Call{ID: fmt.Sprintf("%d", i), Name: "noop"}
	}

	ExecuteParallel(context.Background(), exec, calls, 4)
	assert.LessOrEqual(t, int(exec.maxInFlight), 4)
	assert.Greater(t, int(exec.maxInFlight), 0)
}

func TestExecuteParallel_IndividualFailureDoesNotShortCircuitOthers(t *testing.T) {
	exec := &fakeExecutor{fail: map[string]error{"bad": errors.New("boom")}}
	calls := []Call{
		{ID: "1", Name: "good"},
		{ID: "2", Name: "bad"},
		{ID: "3", Name: "good"},
	}
	results := ExecuteParallel(context.Background(), exec, calls, 4)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
}

func TestExecuteParallel_CancellationDrainsRemainingSlots(t *testing.T) {
	exec := &fakeExecutor{delay: 500 * time.Millisecond}
	calls := make([]Call, 5)
	for i := range calls {
		calls[i] = Call{ID: fmt.Sprintf("%d", i), Name: "slow"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results := ExecuteParallel(ctx, exec, calls, 5)
	elapsed := time.Since(start)

	require.Len(t, results, 5)
	for _, r := range results {
		assert.True(t, r.Cancelled)
	}
	assert.Less(t, elapsed, 500*time.Millisecond, "cancellation must not wait for the full tool delay")
}

func TestDefaultMaxConcurrency_IsPositiveAndBounded(t *testing.T) {
	n := DefaultMaxConcurrency()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, 8)
}

func TestExecuteParallel_ZeroCallsReturnsEmpty(t *testing.T) {
	results := ExecuteParallel(context.Background(), &fakeExecutor{}, nil, 4)
	assert.Empty(t, results)
}
