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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractInlineToolCalls_PlainInlineObject(t *testing.T) {
	text := `I'll read the file now: {"tool": "read_file", "args": {"path": "main.go"}}`
	calls := extractInlineToolCalls(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "read_file", calls[0].Name)
	assert.NotEmpty(t, calls[0].ID)

	var args map[string]string
	require.NoError(t, json.Unmarshal(calls[0].Args, &args))
	assert.Equal(t, "main.go", args["path"])
}

func TestExtractInlineToolCalls_FencedJSONBlock(t *testing.T) {
	text := "Here's the call:\n```json\n{\"tool\": \"list_dir\", \"args\": {\"path\": \".\"}}\n```\n"
	calls := extractInlineToolCalls(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "list_dir", calls[0].Name)
}

func TestExtractInlineToolCalls_IgnoresObjectsWithoutToolKey(t *testing.T) {
	text := `{"foo": "bar"}`
	assert.Empty(t, extractInlineToolCalls(text))
}

func TestExtractInlineToolCalls_IgnoresMalformedJSON(t *testing.T) {
	text := `{"tool": "read_file", "args": {broken`
	assert.Empty(t, extractInlineToolCalls(text))
}

func TestExtractInlineToolCalls_NoCandidatesInPlainText(t *testing.T) {
	assert.Empty(t, extractInlineToolCalls("just a normal response with no tool calls"))
}

func TestExtractInlineToolCalls_ExtractsEachMatchInOrder(t *testing.T) {
	text := `{"tool": "read_file", "args": {"path": "a.go"}} and then {"tool": "list_dir", "args": {"path": "."}}`
	calls := extractInlineToolCalls(text)
	require.Len(t, calls, 2)
	assert.Equal(t, "read_file", calls[0].Name)
	assert.Equal(t, "list_dir", calls[1].Name)
}

func TestBalancedObjects_HandlesNestedBraces(t *testing.T) {
	s := `{"tool": "x", "args": {"nested": {"deep": 1}}}`
	objs := balancedObjects(s)
	require.Len(t, objs, 1)
	assert.Equal(t, s, objs[0])
}
