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

import "errors"

// The error taxonomy of spec §7. The orchestrator never lets these
// propagate past its own boundary except AgentInitError and ConfigError,
// which are raised during setup before any session mutation occurs.
var (
	ErrUserAbort             = errors.New("user aborted the operation")
	ErrGlobalRequestTimeout  = errors.New("global request timeout")
	ErrToolExecution         = errors.New("tool execution error")
	ErrToolBatchingJSON      = errors.New("tool batching JSON assembly failure")
	ErrAuthDeny              = errors.New("authorization denied")
	ErrAgentInit             = errors.New("agent initialization failed")
	ErrConfig                = errors.New("invalid configuration")
)
