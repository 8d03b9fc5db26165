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
	"fmt"
	"strings"
	"time"

	"github.com/tunacode/tunacode-go/pkg/message"
)

// inlineToolCall is the shape a best-effort extractor looks for when a
// model emits a tool call as inline JSON text instead of a structured
// tool-call part (spec §4.6 "Fallback JSON parsing").
type inlineToolCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// extractInlineToolCalls scans text for {"tool": "<name>", "args": {...}}
// objects, including ones nested inside ```json fenced blocks, and
// promotes each match to a synthetic ToolCallPart with a
// "fallback_<unix_micros>" id.
func extractInlineToolCalls(text string) []message.ToolCallPart {
	var calls []message.ToolCallPart
	for _, candidate := range candidateJSONObjects(text) {
		var itc inlineToolCall
		if err := json.Unmarshal([]byte(candidate), &itc); err != nil || itc.Tool == "" {
			continue
		}
		args, err := json.Marshal(itc.Args)
		if err != nil {
			continue
		}
		calls = append(calls, message.ToolCallPart{
			ID:   fmt.Sprintf("fallback_%d", time.Now().UnixMicro()),
			Name: itc.Tool,
			Args: args,
		})
	}
	return calls
}

// candidateJSONObjects finds balanced-brace substrings of text that
// contain the literal key "tool", scanning both raw text and the
// contents of ```json fenced blocks. A fenced block's contents are
// brace-balanced in the surrounding raw text too, so the two passes
// would otherwise yield the same object twice — dedupe by exact text so
// a single inline tool call never produces two ToolCallParts.
func candidateJSONObjects(text string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(candidates []string) {
		for _, c := range candidates {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	add(balancedObjects(text))
	for _, block := range fencedJSONBlocks(text) {
		add(balancedObjects(block))
	}
	return out
}

func fencedJSONBlocks(text string) []string {
	var blocks []string
	const fence = "```json"
	rest := text
	for {
		idx := strings.Index(rest, fence)
		if idx < 0 {
			break
		}
		rest = rest[idx+len(fence):]
		end := strings.Index(rest, "```")
		if end < 0 {
			break
		}
		blocks = append(blocks, rest[:end])
		rest = rest[end+3:]
	}
	return blocks
}

// balancedObjects returns every top-level, brace-balanced substring of s
// that textually mentions "tool" — a cheap pre-filter before attempting
// to unmarshal each candidate.
func balancedObjects(s string) []string {
	var out []string
	depth := 0
	start := -1
	for i, r := range s {
		switch r {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					candidate := s[start : i+1]
					if strings.Contains(candidate, `"tool"`) {
						out = append(out, candidate)
					}
					start = -1
				}
			}
		}
	}
	return out
}
