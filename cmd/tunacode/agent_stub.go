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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tunacode/tunacode-go/pkg/message"
	"github.com/tunacode/tunacode-go/pkg/orchestrator"
)

// scriptedAgent is a minimal orchestrator.LLMAgent stand-in. Wiring a
// real model provider (pkg/llms in the teacher) is explicitly app-layer,
// not core (spec §6, DESIGN.md's dropped-dependency table) — this
// implementation exists only so `tunacode run` is exercisable end to end
// without a live provider. It recognizes one directive in the user's
// prompt, "read:<path>", which it turns into a read_file tool call; any
// other prompt is answered directly with a completion marker.
type scriptedAgent struct{}

const readDirectivePrefix = "read:"

func (scriptedAgent) IterStream(ctx context.Context, history []message.Message) (<-chan orchestrator.Node, <-chan error) {
	nodeCh := make(chan orchestrator.Node, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(nodeCh)
		defer close(errCh)

		if len(history) == 0 {
			nodeCh <- orchestrator.Node{Assistant: completion("TUNACODE_TASK_COMPLETE: nothing to do.")}
			return
		}

		last := history[len(history)-1]
		if last.Role == message.RoleToolReturn {
			text := last.Text()
			nodeCh <- orchestrator.Node{Assistant: completion(fmt.Sprintf("TUNACODE_TASK_COMPLETE: tool returned %d bytes.", len(text)))}
			return
		}

		prompt := findUserPrompt(history)
		if path, ok := strings.CutPrefix(strings.TrimSpace(prompt), readDirectivePrefix); ok {
			args, _ := json.Marshal(map[string]string{"path": strings.TrimSpace(path)})
			nodeCh <- orchestrator.Node{Assistant: message.Message{
				Role: message.RoleAssistant,
				Parts: []message.Part{
					message.ToolCallPart{ID: "stub-1", Name: "read_file", Args: args},
				},
			}}
			return
		}

		nodeCh <- orchestrator.Node{Assistant: completion("TUNACODE_TASK_COMPLETE: " + prompt)}
	}()

	return nodeCh, errCh
}

func completion(text string) message.Message {
	return message.Message{Role: message.RoleAssistant, Parts: []message.Part{message.TextPart{Content: text}}}
}

func findUserPrompt(history []message.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == message.RoleUser {
			return history[i].Text()
		}
	}
	return ""
}
