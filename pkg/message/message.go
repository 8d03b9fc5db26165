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

// Package message defines the canonical, transport-independent message
// model shared by every component of the orchestration core: immutable
// messages built from tagged-variant parts, the tool-call tracking record,
// and the small value types (todos, usage, ReAct scratchpad) that travel
// alongside a session.
package message

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role identifies who produced a Message.
type Role string

const (
	RoleSystem     Role = "system"
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolReturn Role = "tool_return"
)

// PartKind discriminates the MessagePart variants.
type PartKind string

const (
	PartText       PartKind = "text"
	PartToolCall   PartKind = "tool_call"
	PartToolReturn PartKind = "tool_return"
	PartThought    PartKind = "thought"
)

// Part is the tagged-variant interface every message part implements.
// Concrete variants are TextPart, ToolCallPart, ToolReturnPart and
// ThoughtPart; callers type-switch on Kind() rather than reaching for an
// open class hierarchy.
type Part interface {
	Kind() PartKind
}

// TextPart is ordinary rendered text: the only part kind System and User
// messages carry.
type TextPart struct {
	Content string
}

func (TextPart) Kind() PartKind { return PartText }

// ToolCallPart is the model's request to invoke a tool. Args is kept as a
// raw JSON value because some providers emit an object and some emit a
// bare string; the node processor forwards it to the tool executor
// unparsed (spec §4.6 tool-args contract).
type ToolCallPart struct {
	ID   string
	Name string
	Args json.RawMessage
}

func (ToolCallPart) Kind() PartKind { return PartToolCall }

// ToolReturnPart carries a tool's result back into the conversation. A
// ToolReturn message carries exactly one of these.
type ToolReturnPart struct {
	ID      string
	Content string
	IsError bool
}

func (ToolReturnPart) Kind() PartKind { return PartToolReturn }

// ThoughtPart is internal reasoning extracted into the session's ReAct
// scratchpad; it is never forwarded to a tool or to the transport layer.
type ThoughtPart struct {
	Content string
}

func (ThoughtPart) Kind() PartKind { return PartThought }

// Message is an immutable, append-only conversation record.
//
// Invariants (enforced by constructors, not by callers): a System message
// carries exactly one TextPart; a User message carries exactly one
// TextPart; an Assistant message carries any mix of TextPart, ThoughtPart
// and ToolCallPart; a ToolReturn message carries exactly one
// ToolReturnPart.
type Message struct {
	Role      Role
	Parts     []Part
	Timestamp time.Time
	RunID     string // empty means "no run correlation" (e.g. after sanitize's run_id strip)
}

// NewSystem builds a System message.
func NewSystem(text string) Message {
	return Message{Role: RoleSystem, Parts: []Part{TextPart{Content: text}}, Timestamp: time.Now()}
}

// NewUser builds a User message.
func NewUser(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart{Content: text}}, Timestamp: time.Now()}
}

// NewToolReturn builds a ToolReturn message for a single prior tool call.
func NewToolReturn(id, content string, isError bool) Message {
	return Message{
		Role:      RoleToolReturn,
		Parts:     []Part{ToolReturnPart{ID: id, Content: content, IsError: isError}},
		Timestamp: time.Now(),
	}
}

// Text concatenates every TextPart in the message, in order. Most
// messages carry a single TextPart, but an Assistant message may
// interleave text around tool calls.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			b.WriteString(t.Content)
		}
	}
	return b.String()
}

// ToolCalls returns the ToolCallPart values carried by this message, in
// source order.
func (m Message) ToolCalls() []ToolCallPart {
	var out []ToolCallPart
	for _, p := range m.Parts {
		if tc, ok := p.(ToolCallPart); ok {
			out = append(out, tc)
		}
	}
	return out
}

// IsEmpty reports whether the message reduces to the empty string once
// every TextPart is trimmed and no ToolCall/ToolReturn/Thought parts are
// present — the condition the sanitizer uses to drop empty responses.
func (m Message) IsEmpty() bool {
	for _, p := range m.Parts {
		switch v := p.(type) {
		case TextPart:
			if strings.TrimSpace(v.Content) != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// WithoutRunID returns a copy of the message with its RunID cleared, used
// by the sanitizer to strip run correlation before resuming history.
func (m Message) WithoutRunID() Message {
	m.RunID = ""
	return m
}

// transportPart is the wire shape for ToTransport/FromTransport.
type transportPart struct {
	Kind    string          `json:"kind,omitempty"`
	Content string          `json:"content,omitempty"`
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name,omitempty"`
	Args    json.RawMessage `json:"args,omitempty"`
	IsError bool            `json:"is_error,omitempty"`
}

// transportMessage is the wire shape emitted by ToTransport. It also
// accepts the simpler flat-content shape some providers send, handled by
// FromTransport's tolerant decoding.
type transportMessage struct {
	Role    string          `json:"role"`
	Content string          `json:"content,omitempty"`
	Parts   []transportPart `json:"parts,omitempty"`
}

// ToTransport renders a Message into the LLM-SDK-shaped JSON object the
// teacher's providers expect: a role plus an ordered list of
// kind-discriminated parts.
func ToTransport(m Message) (json.RawMessage, error) {
	tm := transportMessage{Role: string(m.Role)}
	for _, p := range m.Parts {
		switch v := p.(type) {
		case TextPart:
			tm.Parts = append(tm.Parts, transportPart{Kind: string(PartText), Content: v.Content})
		case ToolCallPart:
			tm.Parts = append(tm.Parts, transportPart{Kind: string(PartToolCall), ID: v.ID, Name: v.Name, Args: v.Args})
		case ToolReturnPart:
			tm.Parts = append(tm.Parts, transportPart{Kind: string(PartToolReturn), ID: v.ID, Content: v.Content, IsError: v.IsError})
		case ThoughtPart:
			tm.Parts = append(tm.Parts, transportPart{Kind: string(PartThought), Content: v.Content})
		default:
			return nil, fmt.Errorf("message: unsupported part type %T", p)
		}
	}
	return json.Marshal(tm)
}

// FromTransport tolerantly parses a transport-shaped message back into
// the canonical model. It accepts both the {"parts": [...]} shape emitted
// by ToTransport and the simpler {"content": "..."} shape some providers
// send for plain text turns. Unknown part kinds fall back to a lossless
// TextPart rather than erroring, per spec §4.2.
func FromTransport(raw json.RawMessage) (Message, error) {
	var tm transportMessage
	if err := json.Unmarshal(raw, &tm); err != nil {
		return Message{}, fmt.Errorf("message: decode transport message: %w", err)
	}
	m := Message{Role: Role(tm.Role), Timestamp: time.Now()}

	if len(tm.Parts) == 0 && tm.Content != "" {
		m.Parts = []Part{TextPart{Content: tm.Content}}
		return m, nil
	}

	for _, tp := range tm.Parts {
		switch PartKind(tp.Kind) {
		case PartText, "":
			m.Parts = append(m.Parts, TextPart{Content: tp.Content})
		case PartToolCall:
			m.Parts = append(m.Parts, ToolCallPart{ID: tp.ID, Name: tp.Name, Args: tp.Args})
		case PartToolReturn:
			m.Parts = append(m.Parts, ToolReturnPart{ID: tp.ID, Content: tp.Content, IsError: tp.IsError})
		case PartThought:
			m.Parts = append(m.Parts, ThoughtPart{Content: tp.Content})
		default:
			// Unknown kind: lossless text fallback rather than dropping data.
			fallback := tp.Content
			if fallback == "" {
				b, _ := json.Marshal(tp)
				fallback = string(b)
			}
			m.Parts = append(m.Parts, TextPart{Content: fallback})
		}
	}
	return m, nil
}
