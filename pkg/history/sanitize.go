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

// Package history implements the history sanitizer (C4) and the resume
// pipeline (C5): the bounded-iteration fixpoint that keeps a session's
// message history valid input for the next LLM call, plus the
// pruning/summarization steps that control context size across a long
// session.
package history

import (
	"strings"

	"github.com/tunacode/tunacode-go/pkg/message"
)

// retryMarker identifies a ToolReturn that represents a tool failure the
// LLM is expected to retry rather than a genuinely dangling call (spec
// §4.4 retry-safety).
const retryMarker = "RETRY_EXPECTED"

// fixpointBound caps the sanitizer's repeated-pass loop (spec §4.4).
const fixpointBound = 8

// Sanitize applies the cleanup operations of spec §4.4 repeatedly until a
// pass produces no change or fixpointBound passes have run, then strips
// system prompts and run ids exactly once (those two steps are already
// idempotent by construction and don't need to participate in the
// fixpoint). It never mutates its input; it returns a new slice.
func Sanitize(msgs []message.Message) []message.Message {
	cur := append([]message.Message(nil), msgs...)
	for i := 0; i < fixpointBound; i++ {
		next := removeEmptyResponses(removeConsecutiveUserMessages(removeDanglingToolCalls(cur)))
		if sameLength(cur, next) && sameMessages(cur, next) {
			cur = next
			break
		}
		cur = next
	}
	cur = stripSystemPrompts(cur)
	cur = normalizeRunIDs(cur)
	return cur
}

func sameLength(a, b []message.Message) bool { return len(a) == len(b) }

func sameMessages(a, b []message.Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i].Parts) != len(b[i].Parts) {
			return false
		}
	}
	return true
}

// removeDanglingToolCalls drops ToolCall parts with no later matching
// ToolReturn, unless the call is retry-safe (spec §4.4 step 1).
func removeDanglingToolCalls(msgs []message.Message) []message.Message {
	returned := map[string]bool{}
	retrySafe := map[string]bool{}
	for _, m := range msgs {
		if m.Role != message.RoleToolReturn {
			continue
		}
		for _, p := range m.Parts {
			if tr, ok := p.(message.ToolReturnPart); ok {
				returned[tr.ID] = true
				if tr.IsError && strings.Contains(tr.Content, retryMarker) {
					retrySafe[tr.ID] = true
				}
			}
		}
	}

	out := make([]message.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != message.RoleAssistant {
			out = append(out, m)
			continue
		}
		kept := make([]message.Part, 0, len(m.Parts))
		for _, p := range m.Parts {
			if tc, ok := p.(message.ToolCallPart); ok {
				if !returned[tc.ID] && !retrySafe[tc.ID] {
					continue // dangling, drop
				}
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			continue // message lost all parts, drop the message
		}
		m.Parts = kept
		out = append(out, m)
	}
	return out
}

// removeConsecutiveUserMessages keeps only the later of two adjacent User
// messages (spec §4.4 step 2).
func removeConsecutiveUserMessages(msgs []message.Message) []message.Message {
	out := make([]message.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == message.RoleUser && len(out) > 0 && out[len(out)-1].Role == message.RoleUser {
			out[len(out)-1] = m
			continue
		}
		out = append(out, m)
	}
	return out
}

// removeEmptyResponses drops Assistant messages that reduce to the empty
// string (spec §4.4 step 3).
func removeEmptyResponses(msgs []message.Message) []message.Message {
	out := make([]message.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == message.RoleAssistant && m.IsEmpty() {
			continue
		}
		out = append(out, m)
	}
	return out
}

// stripSystemPrompts removes System messages from resumed history; the
// current turn's system prompt is re-applied externally (spec §4.4 step
// 4).
func stripSystemPrompts(msgs []message.Message) []message.Message {
	out := make([]message.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == message.RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}

// normalizeRunIDs clears transient per-run identifiers (spec §4.4 step
// 5).
func normalizeRunIDs(msgs []message.Message) []message.Message {
	out := make([]message.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.WithoutRunID()
	}
	return out
}
