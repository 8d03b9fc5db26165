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

package authz

import "context"

// ConfirmationUI is the external collaborator the core invokes only on a
// Confirm decision. Implementations (the terminal UI, a headless
// auto-approve shim) must not block indefinitely; they enforce their own
// timeout if desired. Grounded on the pending-approval metadata pattern
// hector's A2A executor uses to store and read back a user's decision.
type ConfirmationUI interface {
	Ask(ctx context.Context, toolName string, args map[string]any) (bool, error)
}

// AutoApprove is a ConfirmationUI that always approves. The headless CLI
// uses it to answer every Confirm decision that no engine rule already
// short-circuited to Allow or Deny.
type AutoApprove struct{}

func (AutoApprove) Ask(context.Context, string, map[string]any) (bool, error) {
	return true, nil
}

// Resolve applies the authorization engine to one tool call, consulting
// ui only when the engine result is Confirm. It returns the final
// decision (never Confirm — Confirm is always resolved to Allow or Deny
// here) alongside the denial reason, if any.
func Resolve(ctx context.Context, engine *Engine, ac Context, ui ConfirmationUI) (Decision, string) {
	res := engine.Evaluate(ac)
	switch res.Decision {
	case Allow:
		return Allow, ""
	case Deny:
		return Deny, res.Reason
	case Confirm:
		approved, err := ui.Ask(ctx, ac.ToolName, ac.ToolArgs)
		if err != nil || !approved {
			reason := "user denied the requested tool"
			if err != nil {
				reason = "confirmation failed: " + err.Error()
			}
			return Deny, reason
		}
		return Allow, ""
	default:
		return Deny, "unrecognized authorization decision"
	}
}
