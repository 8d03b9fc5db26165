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

package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunacode/tunacode-go/pkg/message"
)

func assistantWithCall(id string) message.Message {
	return message.Message{Role: message.RoleAssistant, Parts: []message.Part{message.ToolCallPart{ID: id, Name: "read_file"}}}
}

func TestSanitize_RemovesDanglingToolCall(t *testing.T) {
	msgs := []message.Message{
		message.NewUser("read the file"),
		assistantWithCall("call-1"),
		// no matching ToolReturn
	}
	out := Sanitize(msgs)
	for _, m := range out {
		assert.Empty(t, m.ToolCalls(), "a dangling tool call must never survive sanitize")
	}
}

func TestSanitize_KeepsToolCallWithMatchingReturn(t *testing.T) {
	msgs := []message.Message{
		message.NewUser("read the file"),
		assistantWithCall("call-1"),
		message.NewToolReturn("call-1", "contents", false),
	}
	out := Sanitize(msgs)
	var found bool
	for _, m := range out {
		for _, tc := range m.ToolCalls() {
			if tc.ID == "call-1" {
				found = true
			}
		}
	}
	assert.True(t, found)
}

func TestSanitize_RetrySafeCallSurvivesWithErrorReturn(t *testing.T) {
	msgs := []message.Message{
		assistantWithCall("call-1"),
		message.NewToolReturn("call-1", "transient failure: RETRY_EXPECTED", true),
	}
	out := Sanitize(msgs)
	var calls int
	for _, m := range out {
		calls += len(m.ToolCalls())
	}
	assert.Equal(t, 1, calls, "a matched ToolReturn keeps the call even when it's a retry-expected failure")
}

func TestSanitize_CollapsesConsecutiveUserMessages(t *testing.T) {
	msgs := []message.Message{
		message.NewUser("first"),
		message.NewUser("second"),
	}
	out := Sanitize(msgs)
	require.Len(t, out, 1)
	assert.Equal(t, "second", out[0].Text())
}

func TestSanitize_RemovesEmptyAssistantResponses(t *testing.T) {
	msgs := []message.Message{
		message.NewUser("hi"),
		{Role: message.RoleAssistant, Parts: []message.Part{message.TextPart{Content: "   "}}},
	}
	out := Sanitize(msgs)
	for _, m := range out {
		assert.NotEqual(t, message.RoleAssistant, m.Role)
	}
}

func TestSanitize_StripsSystemPrompts(t *testing.T) {
	msgs := []message.Message{
		message.NewSystem("be helpful"),
		message.NewUser("hi"),
	}
	out := Sanitize(msgs)
	for _, m := range out {
		assert.NotEqual(t, message.RoleSystem, m.Role)
	}
}

func TestSanitize_ClearsRunIDs(t *testing.T) {
	msgs := []message.Message{
		{Role: message.RoleUser, Parts: []message.Part{message.TextPart{Content: "hi"}}, RunID: "run-42"},
	}
	out := Sanitize(msgs)
	require.Len(t, out, 1)
	assert.Empty(t, out[0].RunID)
}

func TestSanitize_IsIdempotent(t *testing.T) {
	msgs := []message.Message{
		message.NewUser("a"),
		message.NewUser("b"),
		assistantWithCall("orphan"),
		{Role: message.RoleAssistant, Parts: []message.Part{message.TextPart{Content: ""}}},
	}
	once := Sanitize(msgs)
	twice := Sanitize(once)
	assert.Equal(t, len(once), len(twice))
}

func TestSanitize_DoesNotMutateInput(t *testing.T) {
	msgs := []message.Message{
		message.NewUser("a"),
		message.NewUser("b"),
	}
	_ = Sanitize(msgs)
	assert.Len(t, msgs, 2, "Sanitize must operate on a copy")
}

func TestSanitize_FixpointTerminatesOnChainedDanglingCalls(t *testing.T) {
	// fixpointBound+2 dangling calls sharing one id: all of them are
	// dangling at once, so the first fixpoint pass removes them and the
	// next pass confirms nothing changed. Sanitize must return with every
	// call gone rather than hang.
	var msgs []message.Message
	for i := 0; i < fixpointBound+2; i++ {
		msgs = append(msgs, assistantWithCall("chain"))
	}
	out := Sanitize(msgs)
	for _, m := range out {
		assert.Empty(t, m.ToolCalls())
	}
}
