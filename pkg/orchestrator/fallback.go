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

	"github.com/tunacode/tunacode-go/pkg/message"
	"github.com/tunacode/tunacode-go/pkg/session"
	"github.com/tunacode/tunacode-go/pkg/todo"
)

// synthesizeFallback builds the summary spec §4.1 step 6 describes when
// the iteration bound is reached without task completion: files read,
// commands run, todos touched, and concrete next steps, sized by
// verbosity.
func synthesizeFallback(s *session.Session, verbosity string) string {
	files := readFilesTouched(s)
	commands := commandsRun(s)
	todos := s.Todos.All()

	var b strings.Builder
	b.WriteString("Reached the iteration limit before completing the task.\n\n")

	if len(files) > 0 {
		b.WriteString(fmt.Sprintf("Files read (%d): %s\n", len(files), strings.Join(files, ", ")))
	}
	if len(commands) > 0 {
		b.WriteString(fmt.Sprintf("Commands run (%d): %s\n", len(commands), strings.Join(commands, ", ")))
	}
	if len(todos) > 0 {
		b.WriteString("Todos:\n")
		for _, it := range todos {
			b.WriteString(fmt.Sprintf("  - [%s] %s\n", it.Status, it.Content))
		}
	}

	if verbosity == "minimal" {
		return strings.TrimSpace(b.String())
	}

	b.WriteString("\nNext steps:\n")
	next := nextSteps(todos)
	for _, n := range next {
		b.WriteString("  - " + n + "\n")
	}

	if verbosity != "detailed" {
		return strings.TrimSpace(b.String())
	}

	b.WriteString("\nConsider breaking the remaining work into smaller turns or raising max_iterations.\n")
	return strings.TrimSpace(b.String())
}

func readFilesTouched(s *session.Session) []string {
	var out []string
	seen := map[string]bool{}
	for _, tc := range s.ToolCallRegistry.Snapshot() {
		if tc.Name != "read_file" {
			continue
		}
		path := argString(tc.Args, "path")
		if path != "" && !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}
	return out
}

func commandsRun(s *session.Session) []string {
	var out []string
	for _, tc := range s.ToolCallRegistry.Snapshot() {
		if tc.Name != "bash" && tc.Name != "run_command" {
			continue
		}
		cmd := argString(tc.Args, "command")
		if cmd != "" {
			out = append(out, cmd)
		}
	}
	return out
}

func argString(raw json.RawMessage, key string) string {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func nextSteps(todos []todo.Item) []string {
	var out []string
	for _, it := range todos {
		if it.Status == todo.StatusPending || it.Status == todo.StatusInProgress {
			out = append(out, it.Content)
		}
	}
	if len(out) == 0 {
		out = append(out, "review the work above and decide whether to continue")
	}
	return out
}
