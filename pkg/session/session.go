// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package session holds the per-turn session aggregate the orchestration
// core mutates: the message history, the tool-call registry, todos, usage
// accounting, the ReAct scratchpad, and the runtime flags that drive
// authorization and iteration control.
//
// A Session is created once at CLI start and owned exclusively by the
// orchestrator for the duration of a turn; there is no shared-mutable
// concern within a turn (spec §4.7). Background tasks may read immutable
// config fields but must never write to Messages, the tool-call registry,
// Todos, Usage, or React.
package session

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tunacode/tunacode-go/pkg/message"
	"github.com/tunacode/tunacode-go/pkg/todo"
)

// Runtime holds the mutable per-session flags the authorization engine
// and orchestrator consult. These are not persisted as part of a message
// but are part of the session aggregate's own state.
type Runtime struct {
	OperationCancelled bool
	PlanMode           bool
	Yolo               bool
	CurrentIteration   int
	IterationCount     int
	CurrentModel       string
	RunID              string
	IsStreamingActive  bool
}

// Config holds the session-scoped settings the core reads but never
// mutates on its own (persisted model selection aside — see
// pkg/config.Settings for the full surface).
type Config struct {
	DefaultModel string
}

// Session is the root aggregate. The orchestrator is the only writer;
// every other component receives a *Session and mutates only through the
// methods below so invariants stay centralized.
type Session struct {
	Messages        []message.Message
	ToolCallRegistry *message.ToolCallRegistry
	Todos           *todo.Store
	Usage           message.UsageMetrics
	React           message.Scratchpad
	Runtime         Runtime
	Config          Config
}

// New constructs an empty Session with a fresh run id and registry.
func New(cfg Config) *Session {
	return &Session{
		ToolCallRegistry: message.NewToolCallRegistry(),
		Todos:            todo.NewStore(),
		Runtime: Runtime{
			CurrentModel: cfg.DefaultModel,
			RunID:        uuid.NewString(),
		},
		Config: cfg,
	}
}

// snapshot is the JSON-serializable shape of a Session, used by
// Snapshot/Restore. Only the canonical, transport-independent fields are
// persisted; the core itself persists nothing on its own (spec §6) — this
// is purely the shape the CLI layer writes to disk.
type snapshot struct {
	Messages []json.RawMessage  `json:"messages"`
	Todos    []todo.Item        `json:"todos"`
	Usage    message.UsageMetrics `json:"usage"`
	Runtime  Runtime            `json:"runtime"`
	Config   Config             `json:"config"`
}

// Snapshot serializes the session into the canonical on-disk shape. Tool
// call registry state is intentionally not persisted: a resumed session
// starts its registry fresh and relies on the sanitizer to drop or
// reconcile any dangling calls in the restored message history.
func (s *Session) Snapshot() ([]byte, error) {
	snap := snapshot{
		Usage:   s.Usage,
		Runtime: s.Runtime,
		Config:  s.Config,
	}
	for _, m := range s.Messages {
		raw, err := message.ToTransport(m)
		if err != nil {
			return nil, fmt.Errorf("session: snapshot message: %w", err)
		}
		snap.Messages = append(snap.Messages, raw)
	}
	snap.Todos = s.Todos.All()
	return json.MarshalIndent(snap, "", "  ")
}

// Restore rebuilds a Session from bytes previously produced by Snapshot.
// Each message is run back through message.FromTransport.
func Restore(cfg Config, data []byte) (*Session, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("session: restore: %w", err)
	}
	s := New(cfg)
	s.Usage = snap.Usage
	s.Runtime = snap.Runtime
	for _, raw := range snap.Messages {
		m, err := message.FromTransport(raw)
		if err != nil {
			return nil, fmt.Errorf("session: restore message: %w", err)
		}
		s.Messages = append(s.Messages, m)
	}
	s.Todos.Replace(snap.Todos)
	return s, nil
}

// AppendUser appends a User message.
func (s *Session) AppendUser(text string) {
	s.Messages = append(s.Messages, message.NewUser(text))
}

// Append appends an arbitrary message, used by the node processor and the
// orchestrator for Assistant and ToolReturn messages.
func (s *Session) Append(m message.Message) {
	s.Messages = append(s.Messages, m)
}

// ResetIteration resets the per-turn iteration counter, called when
// run_turn returns from its iteration loop (spec §4.1 postcondition).
func (s *Session) ResetIteration() {
	s.Runtime.CurrentIteration = 0
}

// Cancel sets the cooperative cancellation flag the orchestrator polls
// between nodes.
func (s *Session) Cancel() {
	s.Runtime.OperationCancelled = true
}

// ClearCancellation resets the cancellation flag for the next turn.
func (s *Session) ClearCancellation() {
	s.Runtime.OperationCancelled = false
}
