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

package message

// ReActKind distinguishes the three entry kinds a ReAct scratchpad holds.
type ReActKind string

const (
	ReActThought     ReActKind = "thought"
	ReActAction      ReActKind = "action"
	ReActObservation ReActKind = "observation"
)

// ReActEntry is one triple element of the scratchpad.
type ReActEntry struct {
	Kind    ReActKind
	Content string
}

// Scratchpad is the ordered, turn-scoped log of an agent's internal
// reasoning. It is never exposed back to the model on subsequent turns —
// it exists purely for fallback synthesis and diagnostics within a turn.
type Scratchpad struct {
	Entries []ReActEntry
}

// Append adds an entry to the scratchpad.
func (s *Scratchpad) Append(kind ReActKind, content string) {
	s.Entries = append(s.Entries, ReActEntry{Kind: kind, Content: content})
}

// Reset clears the scratchpad, called at the start of each new turn.
func (s *Scratchpad) Reset() {
	s.Entries = nil
}

// Thoughts returns the content of every Thought entry, in order.
func (s *Scratchpad) Thoughts() []string {
	var out []string
	for _, e := range s.Entries {
		if e.Kind == ReActThought {
			out = append(out, e.Content)
		}
	}
	return out
}
