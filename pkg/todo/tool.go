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

package todo

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// WriteToolName and ReadToolName are the built-in tool names the
// authorization engine's categorization table refers to (todowrite is
// write, todoread is read-only).
const (
	WriteToolName = "todowrite"
	ReadToolName  = "todoread"
)

// WriteSchema returns the JSON schema advertised to the LLM for the
// todo_write tool, generated the same way hector derives tool schemas
// from Go structs for its function tools.
func WriteSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&WriteArgs{})
}

// DecodeWriteArgs tolerantly decodes a raw tool-args map into WriteArgs.
// mapstructure absorbs the common shape drift between providers (string
// vs. typed status, missing optional fields) the way hector's config
// loaders already do for loosely typed input.
func DecodeWriteArgs(raw map[string]any) (WriteArgs, error) {
	var args WriteArgs
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &args,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return args, fmt.Errorf("todo: build decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return args, fmt.Errorf("todo: decode write args: %w", err)
	}
	return args, nil
}

// Call executes the todo_write tool against store, returning the tool
// result text forwarded to the model as a ToolReturn.
func Call(store *Store, rawArgs json.RawMessage) (string, error) {
	var asMap map[string]any
	if err := json.Unmarshal(rawArgs, &asMap); err != nil {
		return "", fmt.Errorf("todo: args not a JSON object: %w", err)
	}
	args, err := DecodeWriteArgs(asMap)
	if err != nil {
		return "", err
	}
	if err := store.Write(args); err != nil {
		return "", err
	}
	summary := store.Summary()
	return fmt.Sprintf("todos updated: %d pending, %d in_progress, %d completed, %d cancelled",
		summary[StatusPending], summary[StatusInProgress], summary[StatusCompleted], summary[StatusCancelled]), nil
}

// Read executes the todo_read tool, returning the current list rendered
// for model consumption.
func Read(store *Store) string {
	if f := store.FormatForContext(); f != "" {
		return f
	}
	return "<current_todos>\n(empty)\n</current_todos>"
}
