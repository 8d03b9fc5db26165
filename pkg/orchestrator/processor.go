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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tunacode/tunacode-go/pkg/authz"
	"github.com/tunacode/tunacode-go/pkg/message"
	"github.com/tunacode/tunacode-go/pkg/session"
	"github.com/tunacode/tunacode-go/pkg/toolexec"
)

// TransportError wraps a tool-executor error that is safe to retry — a
// network blip or provider-side hiccup, as opposed to a tool-domain error
// (non-zero exit, file not found) which the spec requires to be
// surfaced to the LLM on the first attempt without retrying.
type TransportError struct{ Err error }

func (e TransportError) Error() string { return "transport error: " + e.Err.Error() }
func (e TransportError) Unwrap() error { return e.Err }

// Processor implements process_node (C6): the per-iteration sink for one
// streamed node.
type Processor struct {
	Engine       *authz.Engine
	ConfirmUI    authz.ConfirmationUI
	Executor     toolexec.Executor
	StatusCB     ToolStatusCallback
	Settings     Settings
	ReadOnly     map[string]bool
	WriteSet     map[string]bool
	ExecuteSet   map[string]bool
	AllowList    map[string]bool
	IgnoreList   map[string]bool
	DenyList     map[string]bool
	Logger       *slog.Logger
}

func (p *Processor) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Processor) notify(msg, tool string) {
	if p.StatusCB != nil {
		p.StatusCB(msg, tool)
	}
}

// ProcessNode runs the full per-node algorithm of spec §4.6 against s.
// It always returns nil: individual tool failures, denials and
// cancellations are folded into ToolReturn messages instead of returned
// as Go errors.
func (p *Processor) ProcessNode(ctx context.Context, s *session.Session, node Node) error {
	assistant := node.Assistant
	s.Append(assistant)
	s.Usage.Add(node.Usage)

	for _, part := range assistant.Parts {
		if th, ok := part.(message.ThoughtPart); ok {
			s.React.Append(message.ReActThought, th.Content)
		}
	}

	calls := assistant.ToolCalls()
	if len(calls) == 0 {
		// Fallback inline-JSON extraction: some providers emit tool
		// calls as text rather than structured parts.
		if inline := extractInlineToolCalls(assistant.Text()); len(inline) > 0 {
			calls = inline
		}
	}
	if len(calls) == 0 {
		return nil
	}

	for _, c := range calls {
		s.ToolCallRegistry.Register(c.ID, c.Name, c.Args)
	}

	for _, run := range partitionRuns(calls, p.ReadOnly) {
		if s.Runtime.OperationCancelled {
			p.cancelRun(s, run)
			continue
		}
		if run.readOnly && len(run.calls) >= 2 {
			p.dispatchParallel(ctx, s, run.calls)
		} else {
			p.dispatchSequential(ctx, s, run.calls)
		}
	}
	return nil
}

// runOfCalls is a maximal contiguous subsequence of tool calls that are
// either all read-only (readOnly == true) or a single non-read-only call.
type runOfCalls struct {
	calls    []message.ToolCallPart
	readOnly bool
}

// partitionRuns splits an ordered list of tool calls into runs per spec
// §4.6 step 2: a read-only run is a maximal contiguous subsequence of
// read-only calls; any non-read-only call ends the run and starts its
// own single-call run.
func partitionRuns(calls []message.ToolCallPart, readOnly map[string]bool) []runOfCalls {
	var runs []runOfCalls
	i := 0
	for i < len(calls) {
		if readOnly[calls[i].Name] {
			j := i
			for j < len(calls) && readOnly[calls[j].Name] {
				j++
			}
			runs = append(runs, runOfCalls{calls: calls[i:j], readOnly: true})
			i = j
			continue
		}
		runs = append(runs, runOfCalls{calls: calls[i : i+1], readOnly: false})
		i++
	}
	return runs
}

func (p *Processor) cancelRun(s *session.Session, run runOfCalls) {
	for _, c := range run.calls {
		s.ToolCallRegistry.Cancel(c.ID)
		s.Append(message.NewToolReturn(c.ID, "cancelled", true))
		p.notify("cancelled", c.Name)
	}
}

func (p *Processor) authContext(s *session.Session, c message.ToolCallPart) authz.Context {
	var argsMap map[string]any
	_ = jsonUnmarshalLoose(c.Args, &argsMap)
	return authz.Context{
		ToolName:          c.Name,
		ToolArgs:          argsMap,
		SessionYolo:       s.Runtime.Yolo,
		SessionPlanMode:   s.Runtime.PlanMode,
		ReadOnlyTools:     p.ReadOnly,
		WriteTools:        p.WriteSet,
		ExecuteTools:      p.ExecuteSet,
		TemplateAllowList: p.AllowList,
		ToolIgnoreList:    p.IgnoreList,
		DeniedTools:       p.DenyList,
	}
}

// authorizeAndInvoke runs steps 4a-4e of spec §4.6 for one call: lookup,
// authorize, invoke with retry budget, and append the ToolReturn (a
// denial ToolReturn when authorization denies the call).
func (p *Processor) authorizeAndInvoke(ctx context.Context, s *session.Session, c message.ToolCallPart) {
	s.ToolCallRegistry.SetInFlight(c.ID)
	p.notify("dispatching", c.Name)

	ac := p.authContext(s, c)
	decision, reason := authz.Resolve(ctx, p.Engine, ac, p.ConfirmUI)
	if decision == authz.Deny {
		text := authz.DenialMessage(c.Name, authz.Result{Decision: authz.Deny, Reason: reason})
		s.ToolCallRegistry.Complete(c.ID, text, true)
		s.Append(message.NewToolReturn(c.ID, text, true))
		p.notify("denied", c.Name)
		return
	}

	output, err := p.invokeWithRetry(ctx, c)
	if err != nil {
		text := fmt.Sprintf("tool %q failed: %s", c.Name, err.Error())
		s.ToolCallRegistry.Complete(c.ID, text, true)
		s.Append(message.NewToolReturn(c.ID, text, true))
		p.notify("failed", c.Name)
		return
	}
	s.ToolCallRegistry.Complete(c.ID, output, false)
	s.Append(message.NewToolReturn(c.ID, output, false))
	p.notify("completed", c.Name)
}

// invokeWithRetry retries only TransportError failures, up to
// Settings.MaxRetries times; tool-domain errors return immediately on the
// first attempt (spec §4.6 step 4c).
func (p *Processor) invokeWithRetry(ctx context.Context, c message.ToolCallPart) (string, error) {
	maxRetries := p.Settings.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		out, err := p.Executor.Invoke(ctx, c.Name, c.Args)
		if err == nil {
			return out, nil
		}
		var transportErr TransportError
		if !errors.As(err, &transportErr) {
			return "", err // domain error: not retried
		}
		lastErr = err
		p.logger().Warn("retrying tool after transport error", "tool", c.Name, "attempt", attempt, "error", err)
	}
	return "", lastErr
}

func (p *Processor) dispatchSequential(ctx context.Context, s *session.Session, calls []message.ToolCallPart) {
	for _, c := range calls {
		if s.Runtime.OperationCancelled {
			p.cancelRun(s, runOfCalls{calls: []message.ToolCallPart{c}})
			continue
		}
		p.authorizeAndInvoke(ctx, s, c)
	}
}

func (p *Processor) dispatchParallel(ctx context.Context, s *session.Session, calls []message.ToolCallPart) {
	// Authorization happens up front per call so Confirm prompts don't
	// race each other; only Allow-ed calls are handed to the parallel
	// executor, preserving the deterministic output-order guarantee of
	// C8 across the whole run (including denied slots).
	decisions := make([]authz.Decision, len(calls))
	reasons := make([]string, len(calls))
	for i, c := range calls {
		s.ToolCallRegistry.SetInFlight(c.ID)
		p.notify("dispatching", c.Name)
		ac := p.authContext(s, c)
		decisions[i], reasons[i] = authz.Resolve(ctx, p.Engine, ac, p.ConfirmUI)
	}

	var toExec []toolexec.Call
	index := map[string]int{}
	for i, c := range calls {
		if decisions[i] == authz.Allow {
			index[c.ID] = len(toExec)
			toExec = append(toExec, toolexec.Call{ID: c.ID, Name: c.Name, Args: c.Args})
		}
	}

	maxParallel := p.Settings.MaxParallel
	if maxParallel <= 0 {
		maxParallel = toolexec.DefaultMaxConcurrency()
	}
	results := toolexec.ExecuteParallel(ctx, retryingExecutor{p: p}, toExec, maxParallel)

	for i, c := range calls {
		if decisions[i] == authz.Deny {
			text := authz.DenialMessage(c.Name, authz.Result{Decision: authz.Deny, Reason: reasons[i]})
			s.ToolCallRegistry.Complete(c.ID, text, true)
			s.Append(message.NewToolReturn(c.ID, text, true))
			p.notify("denied", c.Name)
			continue
		}
		res := results[index[c.ID]]
		switch {
		case res.Cancelled:
			s.ToolCallRegistry.Cancel(c.ID)
			s.Append(message.NewToolReturn(c.ID, "cancelled", true))
			p.notify("cancelled", c.Name)
		case res.Err != nil:
			text := fmt.Sprintf("tool %q failed: %s", c.Name, res.Err.Error())
			s.ToolCallRegistry.Complete(c.ID, text, true)
			s.Append(message.NewToolReturn(c.ID, text, true))
			p.notify("failed", c.Name)
		default:
			s.ToolCallRegistry.Complete(c.ID, res.Output, false)
			s.Append(message.NewToolReturn(c.ID, res.Output, false))
			p.notify("completed", c.Name)
		}
	}
}

// retryingExecutor adapts Processor's retry-aware single-call invocation
// to the toolexec.Executor interface the parallel executor expects.
type retryingExecutor struct{ p *Processor }

func (r retryingExecutor) Invoke(ctx context.Context, name string, args []byte) (string, error) {
	return r.p.invokeWithRetry(ctx, message.ToolCallPart{Name: name, Args: args})
}

// jsonUnmarshalLoose implements the tool-args contract of spec §4.6: args
// may arrive as a JSON object or as a raw string. When it's a string, the
// authorization context gets a single synthetic "_raw" key so rules that
// only care about tool name (the common case) still work.
func jsonUnmarshalLoose(raw []byte, out *map[string]any) error {
	if len(raw) == 0 {
		*out = map[string]any{}
		return nil
	}
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err == nil {
		*out = asMap
		return nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		*out = map[string]any{"_raw": asString}
		return nil
	}
	*out = map[string]any{}
	return nil
}
