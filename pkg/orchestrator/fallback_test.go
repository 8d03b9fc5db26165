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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunacode/tunacode-go/pkg/session"
	"github.com/tunacode/tunacode-go/pkg/todo"
)

func newSessionWithToolCalls() *session.Session {
	s := session.New(session.Config{})
	s.ToolCallRegistry.Register("1", "read_file", []byte(`{"path":"main.go"}`))
	s.ToolCallRegistry.Complete("1", "contents", false)
	s.ToolCallRegistry.Register("2", "read_file", []byte(`{"path":"main.go"}`)) // duplicate path
	s.ToolCallRegistry.Complete("2", "contents", false)
	s.ToolCallRegistry.Register("3", "bash", []byte(`{"command":"go test ./..."}`))
	s.ToolCallRegistry.Complete("3", "ok", false)
	return s
}

func TestSynthesizeFallback_MinimalOmitsNextSteps(t *testing.T) {
	s := newSessionWithToolCalls()
	out := synthesizeFallback(s, "minimal")
	assert.Contains(t, out, "Files read (1): main.go")
	assert.Contains(t, out, "Commands run (1): go test ./...")
	assert.NotContains(t, out, "Next steps")
}

func TestSynthesizeFallback_NormalIncludesNextSteps(t *testing.T) {
	s := newSessionWithToolCalls()
	require.NoError(t, s.Todos.Write(todo.WriteArgs{Todos: []todo.Item{
		{ID: "1", Content: "finish the refactor", Status: todo.StatusPending},
	}}))
	out := synthesizeFallback(s, "normal")
	assert.Contains(t, out, "Next steps")
	assert.Contains(t, out, "finish the refactor")
	assert.NotContains(t, out, "Consider breaking")
}

func TestSynthesizeFallback_DetailedAddsGuidance(t *testing.T) {
	s := newSessionWithToolCalls()
	out := synthesizeFallback(s, "detailed")
	assert.Contains(t, out, "Consider breaking the remaining work")
}

func TestSynthesizeFallback_NoTodosFallsBackToReviewStep(t *testing.T) {
	s := newSessionWithToolCalls()
	out := synthesizeFallback(s, "normal")
	assert.Contains(t, out, "review the work above")
}

func TestReadFilesTouched_DeduplicatesByPath(t *testing.T) {
	s := newSessionWithToolCalls()
	files := readFilesTouched(s)
	assert.Equal(t, []string{"main.go"}, files)
}

func TestCommandsRun_CollectsBashAndRunCommand(t *testing.T) {
	s := session.New(session.Config{})
	s.ToolCallRegistry.Register("1", "run_command", []byte(`{"command":"ls"}`))
	s.ToolCallRegistry.Complete("1", "ok", false)
	assert.Equal(t, []string{"ls"}, commandsRun(s))
}

func TestArgString_MissingKeyReturnsEmpty(t *testing.T) {
	assert.Empty(t, argString([]byte(`{"other":"x"}`), "path"))
}

func TestArgString_MalformedJSONReturnsEmpty(t *testing.T) {
	assert.Empty(t, argString([]byte(`not json`), "path"))
}

func TestNextSteps_FiltersToOpenItems(t *testing.T) {
	items := []todo.Item{
		{ID: "1", Content: "done already", Status: todo.StatusCompleted},
		{ID: "2", Content: "still working", Status: todo.StatusInProgress},
		{ID: "3", Content: "not started", Status: todo.StatusPending},
	}
	steps := nextSteps(items)
	assert.Equal(t, []string{"still working", "not started"}, steps)
}
