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

	"github.com/tunacode/tunacode-go/pkg/message"
)

func TestDetectTaskComplete(t *testing.T) {
	cases := []struct {
		name       string
		text       string
		wantOK     bool
		wantStrip  string
	}{
		{"exact marker", "TUNACODE_TASK_COMPLETE", true, ""},
		{"marker with trailing text", "TUNACODE_TASK_COMPLETE: all done", true, "all done"},
		{"leading whitespace", "  \nTUNACODE_TASK_COMPLETE done", true, "done"},
		{"no marker", "still working", false, ""},
		{"marker not at start", "well, TUNACODE_TASK_COMPLETE", false, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			stripped, ok := detectTaskComplete(c.text)
			assert.Equal(t, c.wantOK, ok)
			if ok {
				assert.Equal(t, c.wantStrip, stripped)
			}
		})
	}
}

func TestIsEmptyIteration(t *testing.T) {
	t.Run("no parts", func(t *testing.T) {
		assert.True(t, isEmptyIteration(message.Message{}))
	})
	t.Run("blank text part", func(t *testing.T) {
		m := message.Message{Parts: []message.Part{message.TextPart{Content: "   "}}}
		assert.True(t, isEmptyIteration(m))
	})
	t.Run("non-blank text part", func(t *testing.T) {
		m := message.Message{Parts: []message.Part{message.TextPart{Content: "hi"}}}
		assert.False(t, isEmptyIteration(m))
	})
	t.Run("tool call part", func(t *testing.T) {
		m := message.Message{Parts: []message.Part{message.ToolCallPart{ID: "1", Name: "read_file"}}}
		assert.False(t, isEmptyIteration(m))
	})
	t.Run("thought part", func(t *testing.T) {
		m := message.Message{Parts: []message.Part{message.ThoughtPart{Content: "thinking"}}}
		assert.False(t, isEmptyIteration(m))
	})
}

func TestIsTruncated(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"complete sentence", "The file was updated successfully.", false},
		{"ellipsis", "I was in the middle of doing...", true},
		{"unicode ellipsis", "I was in the middle of doing…", true},
		{"unterminated fenced block", "```go\nfunc main() {}\n", true},
		{"balanced fenced blocks", "```go\nfunc main() {}\n```", false},
		{"unbalanced brackets", "func main( {", true},
		{"balanced brackets", "func main() {}", false},
		{"mid-word suffix", "I was in the middle of referen", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, isTruncated(c.text))
		})
	}
}

func TestIsIntentionWithoutAction(t *testing.T) {
	t.Run("intent and action verb without tool call", func(t *testing.T) {
		assert.True(t, isIntentionWithoutAction("Let me read the file now.", false))
	})
	t.Run("intent and action verb but had tool call", func(t *testing.T) {
		assert.False(t, isIntentionWithoutAction("Let me read the file now.", true))
	})
	t.Run("no intent phrase", func(t *testing.T) {
		assert.False(t, isIntentionWithoutAction("The file contains 100 lines.", false))
	})
	t.Run("intent phrase without action verb", func(t *testing.T) {
		assert.False(t, isIntentionWithoutAction("I would like that very much.", false))
	})
}
