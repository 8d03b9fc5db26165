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

// Package orchestrator implements the node processor (C6) and the
// request orchestrator (C7): the per-turn outer loop that drives the LLM
// agent, and the per-iteration sink that classifies streamed nodes,
// batches read-only tool calls, and serializes write/execute calls.
//
// Grounded on agent/agent.go's execute() reasoning loop (iteration bound,
// cooperative cancellation poll) and pkg/agent/llmagent/flow.go's
// outer/inner loop split, generalized to add the parallel read-only
// batching the teacher's sequential handleToolCalls never did.
package orchestrator

import (
	"context"

	"github.com/tunacode/tunacode-go/pkg/message"
)

// Node is one streamed segment of an LLM iteration: a partial assistant
// message plus optional usage info, per the glossary.
type Node struct {
	Assistant message.Message
	Usage     message.UsageMetrics
}

// LLMAgent is the external capability the core consumes to drive one
// turn's iteration (spec §6). IterStream must surface context
// cancellation and yield an error from the returned sequence (via the
// iterator's error channel convention below) rather than panicking.
type LLMAgent interface {
	// IterStream streams Nodes for one iteration given the accumulated
	// message history. The returned channel is closed when the stream
	// ends; errCh carries at most one error, checked after the node
	// channel closes.
	IterStream(ctx context.Context, history []message.Message) (<-chan Node, <-chan error)
}

// TurnResultKind discriminates the TurnResult variants (spec §4.1).
type TurnResultKind int

const (
	Completed TurnResultKind = iota
	FallbackSynthesized
	Cancelled
	TimedOut
	// ConfigError marks a setup-time failure (spec §7) that never reached
	// the iteration loop — no session mutation happened, so there is
	// nothing to sanitize or clean up. Callers must surface this as a
	// non-zero exit (spec §6), not the 0 that FallbackSynthesized gets.
	ConfigError
)

// TurnResult is run_turn's return value.
type TurnResult struct {
	Kind       TurnResultKind
	FinalText  string
	UsageDelta message.UsageMetrics
	Reason     string // populated for FallbackSynthesized and ConfigError
}

// ToolStatusCallback receives status-bar style notifications at
// dispatch/denial/completion/failure/cancellation transitions; no
// separate notification is sent while a Confirm prompt awaits an
// answer. Rendering is the
// UI's concern; the core only calls this optionally (spec §4.6 step 5).
type ToolStatusCallback func(stateMessage string, toolName string)

// Settings is the subset of the configuration surface (spec §6) the
// orchestrator and node processor consult directly.
type Settings struct {
	MaxIterations        int
	MaxRetries           int
	GlobalRequestTimeout float64 // seconds; 0 disables
	MaxParallel          int
	FallbackResponse     bool
	FallbackVerbosity    string // minimal | normal | detailed
}
