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

// Package todo implements the agent's todo-tracking tool: the TodoItem
// value type (spec §3) plus the built-in todo_write/todo_read tool pair
// fallback-response synthesis and prompt injection draw on.
package todo

import (
	"fmt"
	"sync"
	"time"
)

// Status is the lifecycle state of a TodoItem.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Item is one todo entry, populated by the todo_write tool and consumed
// by fallback-response synthesis.
type Item struct {
	ID        string    `json:"id" jsonschema:"required,description=Stable identifier for this todo"`
	Content   string    `json:"content" jsonschema:"required,description=Short description of the task"`
	Status    Status    `json:"status" jsonschema:"required,enum=pending,enum=in_progress,enum=completed,enum=cancelled"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the ordered todo list belonging to one Session. A session owns
// exactly one store; it is not safe to share across sessions.
type Store struct {
	mu    sync.RWMutex
	items []Item
}

// NewStore returns an empty todo store.
func NewStore() *Store {
	return &Store{}
}

// All returns a copy of every item, in insertion order.
func (s *Store) All() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Replace discards the current list and installs items verbatim, used
// when restoring a session snapshot.
func (s *Store) Replace(items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
}

// WriteArgs is the decoded argument shape for the todo_write tool.
type WriteArgs struct {
	Merge bool   `json:"merge" jsonschema:"description=If true merge by id instead of replacing the whole list"`
	Todos []Item `json:"todos" jsonschema:"required"`
}

// Write applies WriteArgs to the store: replace semantics by default,
// merge-by-id when Merge is set. Mirrors the merge-or-replace contract
// the built-in todo tool exposes to the agent.
func (s *Store) Write(args WriteArgs) error {
	for i, it := range args.Todos {
		if it.ID == "" {
			return fmt.Errorf("todo: item %d missing id", i)
		}
		if it.Content == "" {
			return fmt.Errorf("todo: item %d missing content", i)
		}
		if !it.Status.valid() {
			return fmt.Errorf("todo: item %d has invalid status %q", i, it.Status)
		}
		if args.Todos[i].CreatedAt.IsZero() {
			args.Todos[i].CreatedAt = time.Now()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !args.Merge {
		s.items = args.Todos
		return nil
	}

	byID := make(map[string]int, len(s.items))
	for i, it := range s.items {
		byID[it.ID] = i
	}
	for _, incoming := range args.Todos {
		if idx, ok := byID[incoming.ID]; ok {
			s.items[idx] = incoming
		} else {
			s.items = append(s.items, incoming)
			byID[incoming.ID] = len(s.items) - 1
		}
	}
	return nil
}

// Summary counts items by status, used by fallback-response synthesis
// (spec §4.1 step 6).
func (s *Store) Summary() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[Status]int{}
	for _, it := range s.items {
		out[it.Status]++
	}
	return out
}

// FormatForContext renders the current list wrapped in a tag the system
// prompt can inject, the way the teacher's todo tool exposes state back
// to the model between turns.
func (s *Store) FormatForContext() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.items) == 0 {
		return ""
	}
	out := "<current_todos>\n"
	for _, it := range s.items {
		out += fmt.Sprintf("- [%s] %s (priority %d)\n", it.Status, it.Content, it.Priority)
	}
	out += "</current_todos>"
	return out
}
