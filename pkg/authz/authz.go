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

// Package authz implements the tri-state tool authorization engine: a
// priority-ordered set of pure rules evaluated over an AuthContext,
// producing Allow, Confirm, or Deny. Plan-mode, yolo-mode, and
// per-tool allow/deny lists are modeled as independent composable rules
// rather than a chain of if-branches (spec §4.3, design note in §9).
package authz

import "fmt"

// Decision is the tri-state authorization result.
type Decision int

const (
	Allow Decision = iota
	Confirm
	Deny
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Confirm:
		return "confirm"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// Result is the outcome of evaluating the rule set for one tool call.
type Result struct {
	Decision Decision
	Reason   string // populated for Deny
}

// Context is the read-only view a rule evaluates against. It is built
// fresh for each tool call by the node processor.
type Context struct {
	ToolName          string
	ToolArgs          map[string]any
	SessionYolo       bool
	SessionPlanMode   bool
	ReadOnlyTools     map[string]bool
	WriteTools        map[string]bool
	ExecuteTools      map[string]bool
	TemplateAllowList map[string]bool
	ToolIgnoreList    map[string]bool
	DeniedTools       map[string]bool
}

// Rule is a pure function over a Context. It returns (result, true) when
// it fires, or (zero, false) to defer to the next rule in priority order.
type Rule struct {
	Priority int
	Name     string
	Evaluate func(Context) (Result, bool)
}

// Engine holds an ordered rule set and evaluates it for each tool call.
// Categorization (which sets a tool belongs to) and the rule list are
// both data, not behavior — callers extend either without touching
// Evaluate (spec §4.3).
type Engine struct {
	rules []Rule
}

// NewEngine returns an Engine preloaded with the built-in rules listed in
// spec §4.3, in priority-descending order.
func NewEngine() *Engine {
	e := &Engine{}
	e.AddRule(Rule{
		Priority: 100,
		Name:     "plan-mode-block",
		Evaluate: func(c Context) (Result, bool) {
			if c.SessionPlanMode && (c.WriteTools[c.ToolName] || c.ExecuteTools[c.ToolName]) {
				return Result{Decision: Deny, Reason: "plan mode blocks modifying or executing tools"}, true
			}
			return Result{}, false
		},
	})
	e.AddRule(Rule{
		Priority: 80,
		Name:     "tool-deny-list",
		Evaluate: func(c Context) (Result, bool) {
			if c.DeniedTools[c.ToolName] {
				return Result{Decision: Deny, Reason: "tool denied by configuration"}, true
			}
			return Result{}, false
		},
	})
	e.AddRule(Rule{
		Priority: 60,
		Name:     "yolo",
		Evaluate: func(c Context) (Result, bool) {
			if c.SessionYolo {
				return Result{Decision: Allow}, true
			}
			return Result{}, false
		},
	})
	e.AddRule(Rule{
		Priority: 50,
		Name:     "read-only-auto-allow",
		Evaluate: func(c Context) (Result, bool) {
			if c.ReadOnlyTools[c.ToolName] {
				return Result{Decision: Allow}, true
			}
			return Result{}, false
		},
	})
	e.AddRule(Rule{
		Priority: 40,
		Name:     "template-allow",
		Evaluate: func(c Context) (Result, bool) {
			if c.TemplateAllowList[c.ToolName] {
				return Result{Decision: Allow}, true
			}
			return Result{}, false
		},
	})
	e.AddRule(Rule{
		Priority: 30,
		Name:     "ignore-list",
		Evaluate: func(c Context) (Result, bool) {
			if c.ToolIgnoreList[c.ToolName] {
				return Result{Decision: Allow}, true
			}
			return Result{}, false
		},
	})
	e.AddRule(Rule{
		Priority: 0,
		Name:     "default-confirm",
		Evaluate: func(Context) (Result, bool) {
			return Result{Decision: Confirm}, true
		},
	})
	return e
}

// AddRule inserts rule in priority order (higher priority evaluates
// first), letting callers extend the engine without touching Evaluate.
func (e *Engine) AddRule(r Rule) {
	idx := 0
	for idx < len(e.rules) && e.rules[idx].Priority >= r.Priority {
		idx++
	}
	e.rules = append(e.rules, Rule{})
	copy(e.rules[idx+1:], e.rules[idx:])
	e.rules[idx] = r
}

// Evaluate runs the rule set in priority order and returns the first
// rule's result. The default-confirm rule (priority 0) guarantees a
// result always fires.
func (e *Engine) Evaluate(c Context) Result {
	for _, r := range e.rules {
		if res, fired := r.Evaluate(c); fired {
			return res
		}
	}
	// Unreachable given the built-in default rule, but guards custom
	// engines that remove it.
	return Result{Decision: Confirm}
}

// DenialMessage renders a Deny result as the synthetic ToolReturn content
// the LLM observes, per spec §4.3's handler contract.
func DenialMessage(toolName string, r Result) string {
	return fmt.Sprintf("tool %q was denied: %s", toolName, r.Reason)
}
