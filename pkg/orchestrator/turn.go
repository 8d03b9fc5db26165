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

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tunacode/tunacode-go/pkg/history"
	"github.com/tunacode/tunacode-go/pkg/message"
	"github.com/tunacode/tunacode-go/pkg/session"
)

const maxConsecutiveEmptyResponses = 3

// Orchestrator implements run_turn (C7): the per-turn outer loop — global
// timeout wrapper, iteration bound, empty-response/truncation/
// intention-without-action recovery, fallback synthesis, and cancellation
// cleanup.
//
// Grounded on agent/agent.go's execute() (iteration bound, ctx.Done()
// poll between iterations) and pkg/agent/llmagent/flow.go's outer/inner
// loop split.
type Orchestrator struct {
	Agent    LLMAgent
	Pipeline *history.Pipeline
	Process  *Processor
	Settings Settings
	Logger   *slog.Logger
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// RunTurn implements spec §4.1's algorithm.
func (o *Orchestrator) RunTurn(ctx context.Context, s *session.Session, userText string) TurnResult {
	timeout := o.Settings.GlobalRequestTimeout
	if timeout < 0 {
		return o.fail(s, ErrConfig, "global_request_timeout must be non-negative")
	}

	s.AppendUser(userText)
	s.React.Reset()

	resumedHistory := o.Pipeline.Run(ctx, s.Messages)

	if timeout == 0 {
		return o.runImpl(ctx, s, resumedHistory)
	}

	turnCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout*float64(time.Second)))
	defer cancel()

	// runImpl is the sole writer of s for the lifetime of this turn. The
	// LLMAgent contract (types.go) requires IterStream to honor ctx
	// cancellation rather than block past it, so once turnCtx's deadline
	// fires runImpl observes it (via checkCtx) and returns promptly with
	// its own cleanup already applied. RunTurn blocks on resultCh rather
	// than racing turnCtx.Done() itself, so the outer call never touches
	// s — there is no unsynchronized access to s.Messages from two
	// goroutines (spec §4.1 step 4).
	resultCh := make(chan TurnResult, 1)
	go func() {
		resultCh <- o.runImpl(turnCtx, s, resumedHistory)
	}()
	return <-resultCh
}

// fail handles a setup-time configuration error (spec §7: AgentInitError
// and ConfigError are the only errors allowed to propagate past the
// orchestrator's own boundary, since they're raised before any session
// mutation occurs). It does not synthesize a fallback turn — the caller
// must surface sentinel via a non-zero exit code (spec §6), not treat
// this as a completed or partially-completed turn.
func (o *Orchestrator) fail(s *session.Session, sentinel error, detail string) TurnResult {
	o.logger().Error("turn setup failed", "error", sentinel, "detail", detail)
	return TurnResult{Kind: ConfigError, FinalText: detail, Reason: detail}
}

// runImpl is the inner iteration loop (spec §4.1 step 5). It always
// returns a TurnResult — it never lets a Go error or a cancellation
// escape past this function (spec §7 propagation rule) — and it is the
// sole place that performs cleanup: it honors ctx cancellation/deadline
// itself, distinguishing a global-timeout ctx (TimedOut) from a manual
// session cancellation (Cancelled), and returns promptly with its own
// cleanup already applied. The outer RunTurn never repeats this work.
func (o *Orchestrator) runImpl(ctx context.Context, s *session.Session, resumedHistory []message.Message) TurnResult {
	maxIterations := o.Settings.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 40
	}

	consecutiveEmpty := 0
	inTurnAppends := []message.Message{}

	for i := 0; i < maxIterations; i++ {
		s.Runtime.CurrentIteration = i

		if s.Runtime.OperationCancelled {
			return o.cancelCleanup(s)
		}
		if res, done := o.checkCtx(ctx, s); done {
			return res
		}

		fullHistory := append(append([]message.Message(nil), resumedHistory...), inTurnAppends...)
		nodeCh, errCh := o.Agent.IterStream(ctx, fullHistory)

		iterationHadToolCall := false
		var lastAssistantText string

		for node := range nodeCh {
			if s.Runtime.OperationCancelled {
				return o.cancelCleanup(s)
			}
			if res, done := o.checkCtx(ctx, s); done {
				return res
			}

			before := len(s.Messages)
			if err := o.Process.ProcessNode(ctx, s, node); err != nil {
				return o.abort(s, fmt.Sprintf("tool batching failed: %s", err.Error()))
			}
			inTurnAppends = append(inTurnAppends, s.Messages[before:]...)

			if len(node.Assistant.ToolCalls()) > 0 {
				iterationHadToolCall = true
			}
			lastAssistantText = node.Assistant.Text()

			if stripped, ok := detectTaskComplete(lastAssistantText); ok {
				// Premature completion guard (spec §4.1 step 5): ignore
				// the marker if there are tool calls still pending a
				// return in this same message.
				if !hasPendingReturns(s, node.Assistant) {
					s.ResetIteration()
					return TurnResult{Kind: Completed, FinalText: stripped, UsageDelta: s.Usage}
				}
			}
		}

		select {
		case err := <-errCh:
			if err != nil {
				return o.abort(s, fmt.Sprintf("agent stream error: %s", err.Error()))
			}
		default:
		}

		if res, done := o.checkCtx(ctx, s); done {
			return res
		}

		if isEmptyIteration(message.Message{Parts: []message.Part{message.TextPart{Content: lastAssistantText}}}) && !iterationHadToolCall {
			consecutiveEmpty++
			if consecutiveEmpty >= maxConsecutiveEmptyResponses {
				break
			}
			recovery := fmt.Sprintf("FAILURE: empty response. Execute a tool or produce substantive output. Prior tools: %s",
				priorToolNames(s))
			inTurnAppends = append(inTurnAppends, message.NewUser(recovery))
			continue
		}
		consecutiveEmpty = 0

		if isTruncated(lastAssistantText) {
			inTurnAppends = append(inTurnAppends, message.NewUser("Your previous response was cut off; complete it and continue."))
			continue
		}

		if isIntentionWithoutAction(lastAssistantText, iterationHadToolCall) {
			inTurnAppends = append(inTurnAppends, message.NewUser("Execute the tool you described rather than announcing it."))
			continue
		}
	}

	if !o.Settings.FallbackResponse {
		s.ResetIteration()
		return TurnResult{Kind: Completed, FinalText: "", UsageDelta: s.Usage}
	}
	text := synthesizeFallback(s, o.Settings.FallbackVerbosity)
	s.Append(message.Message{Role: message.RoleAssistant, Parts: []message.Part{message.TextPart{Content: text}}})
	s.ResetIteration()
	return TurnResult{Kind: FallbackSynthesized, FinalText: text, Reason: "max iterations reached", UsageDelta: s.Usage}
}

func hasPendingReturns(s *session.Session, m message.Message) bool {
	for _, tc := range m.ToolCalls() {
		if !s.ToolCallRegistry.HasReturn(tc.ID) {
			return true
		}
	}
	return false
}

func priorToolNames(s *session.Session) string {
	names := ""
	for _, tc := range s.ToolCallRegistry.Snapshot() {
		if names != "" {
			names += ", "
		}
		names += tc.Name
	}
	if names == "" {
		return "(none)"
	}
	return names
}

// checkCtx reports whether ctx has ended and, if so, runs the matching
// cleanup: a deadline (the per-turn global timeout) converts to
// TimedOut, anything else (including manual session cancellation racing
// ctx.Err() itself) converts to Cancelled. Call sites return immediately
// when done is true.
func (o *Orchestrator) checkCtx(ctx context.Context, s *session.Session) (res TurnResult, done bool) {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return o.timeoutCleanup(s), true
	case ctx.Err() != nil:
		return o.cancelCleanup(s), true
	default:
		return TurnResult{}, false
	}
}

// cancelCleanup runs the sanitizer on the live session messages and
// appends a user-visible explanation, per spec §5's cancellation
// contract.
func (o *Orchestrator) cancelCleanup(s *session.Session) TurnResult {
	s.Messages = history.Sanitize(s.Messages)
	s.Append(message.Message{
		Role:  message.RoleAssistant,
		Parts: []message.Part{message.TextPart{Content: "Operation cancelled."}},
	})
	s.ClearCancellation()
	s.ResetIteration()
	return TurnResult{Kind: Cancelled, FinalText: "Operation cancelled."}
}

// timeoutCleanup mirrors cancelCleanup for the global-request-timeout
// path (spec §4.1 step 4): same sanitize-and-append-message shape, but
// a distinct Kind and message so a caller (cmd/tunacode/run.go's
// exitForResult) can tell a deadline apart from a manual cancellation.
func (o *Orchestrator) timeoutCleanup(s *session.Session) TurnResult {
	text := fmt.Sprintf("Request exceeded the %.1f s time limit.", o.Settings.GlobalRequestTimeout)
	s.Messages = history.Sanitize(s.Messages)
	s.Append(message.Message{
		Role:  message.RoleAssistant,
		Parts: []message.Part{message.TextPart{Content: text}},
	})
	s.ClearCancellation()
	s.ResetIteration()
	return TurnResult{Kind: TimedOut, FinalText: text}
}

// abort handles the generic-exception path of spec §4.1 step 7 and §7's
// propagation rule: sanitize, append a user-visible failure message (no
// stack traces), and return FallbackSynthesized.
func (o *Orchestrator) abort(s *session.Session, detail string) TurnResult {
	o.logger().Error("turn aborted", "detail", detail)
	s.Messages = history.Sanitize(s.Messages)
	text := "The request could not be completed: " + detail
	s.Append(message.Message{Role: message.RoleAssistant, Parts: []message.Part{message.TextPart{Content: text}}})
	s.ResetIteration()
	return TurnResult{Kind: FallbackSynthesized, FinalText: text, Reason: detail}
}
