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
	"strings"

	"github.com/tunacode/tunacode-go/pkg/message"
)

// taskCompleteMarker is the literal marker an assistant text part begins
// with to signal task completion (spec §4.1 step 5, glossary).
const taskCompleteMarker = "TUNACODE_TASK_COMPLETE"

// detectTaskComplete reports whether text (after trimming leading
// whitespace) begins with the task-completion marker, and returns the
// text with the marker, one optional following colon, and the whitespace
// around it stripped.
func detectTaskComplete(text string) (stripped string, ok bool) {
	trimmed := strings.TrimLeft(text, " \t\n\r")
	if !strings.HasPrefix(trimmed, taskCompleteMarker) {
		return "", false
	}
	rest := strings.TrimLeft(trimmed[len(taskCompleteMarker):], " \t\n\r")
	rest = strings.TrimPrefix(rest, ":")
	return strings.TrimLeft(rest, " \t\n\r"), true
}

// isEmptyIteration reports whether a node produced no Text, ToolCall or
// Thought parts (spec §4.1 step 5, empty-response detection).
func isEmptyIteration(m message.Message) bool {
	for _, p := range m.Parts {
		switch v := p.(type) {
		case message.TextPart:
			if strings.TrimSpace(v.Content) != "" {
				return false
			}
		case message.ToolCallPart, message.ThoughtPart:
			return false
		}
	}
	return true
}

// truncationSuffixes is the ad-hoc mid-word suffix list spec §4.1/§9
// keeps in scope despite flagging it as a design smell; the unterminated
// fenced-block check above it is the single robust check recommended for
// production use.
var truncationSuffixes = []string{"referen", "inte", "proces", "analy", "deve", "imple", "execu"}

// isTruncated detects the truncation conditions of spec §4.1 step 5.
func isTruncated(text string) bool {
	trimmed := strings.TrimRight(text, " \t\n\r")
	if trimmed == "" {
		return false
	}
	if strings.HasSuffix(trimmed, "...") || strings.HasSuffix(trimmed, "…") {
		return true
	}
	if strings.Count(trimmed, "```")%2 != 0 {
		return true
	}
	if unbalancedBrackets(trimmed) {
		return true
	}
	for _, suffix := range truncationSuffixes {
		if strings.HasSuffix(trimmed, suffix) {
			return true
		}
	}
	return false
}

func unbalancedBrackets(s string) bool {
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	opens := map[rune]bool{'(': true, '[': true, '{': true}
	var stack []rune
	for _, r := range s {
		switch {
		case opens[r]:
			stack = append(stack, r)
		case pairs[r] != 0:
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return true
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) > 0
}

var intentPhrases = []string{
	"let me", "i'll", "i will", "i'm going to", "i need to", "i should",
	"going to", "let's", "i can", "i would", "allow me to", "about to", "plan to",
}

var actionVerbs = []string{
	"read", "check", "search", "find", "look", "create", "write", "update",
	"modify", "run", "execute", "analyze", "examine", "scan",
}

// isIntentionWithoutAction detects an assistant message that announces an
// action without a corresponding ToolCall (spec §4.1 step 5).
func isIntentionWithoutAction(text string, hadToolCall bool) bool {
	if hadToolCall {
		return false
	}
	lower := strings.ToLower(text)
	hasIntent := false
	for _, p := range intentPhrases {
		if strings.Contains(lower, p) {
			hasIntent = true
			break
		}
	}
	if !hasIntent {
		return false
	}
	for _, v := range actionVerbs {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}
