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
	"os"
	"os/signal"
	"syscall"

	"github.com/tunacode/tunacode-go/pkg/authz"
	tcconfig "github.com/tunacode/tunacode-go/pkg/config"
	"github.com/tunacode/tunacode-go/pkg/history"
	"github.com/tunacode/tunacode-go/pkg/message"
	"github.com/tunacode/tunacode-go/pkg/orchestrator"
	"github.com/tunacode/tunacode-go/pkg/session"
)

// RunCmd implements `tunacode run "<prompt>"` (spec §6's only headless
// subcommand).
type RunCmd struct {
	Prompt string `arg:"" help:"The user prompt for this turn."`

	AutoApprove bool    `name:"auto-approve" help:"Set session.yolo=true for this run."`
	OutputJSON  bool    `name:"output-json" help:"Serialize the TurnResult and message delta as JSON on stdout."`
	Timeout     float64 `help:"Override global_request_timeout (seconds) for this invocation."`
	Cwd         string  `help:"Working directory for file-system tools." type:"path"`
	Model       string  `help:"provider:model, recorded on the session but not itself wired to a transport."`
	Resume      string  `help:"Path to a session snapshot (pkg/session.Snapshot) to resume from." type:"path"`
	Save        string  `help:"Path to write the resulting session snapshot to." type:"path"`
}

// outputEnvelope is the JSON shape --output-json serializes, per spec
// §6: the TurnResult plus the per-turn message delta.
type outputEnvelope struct {
	Kind       string               `json:"kind"`
	FinalText  string               `json:"final_text"`
	Reason     string               `json:"reason,omitempty"`
	UsageDelta message.UsageMetrics `json:"usage_delta"`
	Delta      []json.RawMessage    `json:"message_delta"`
}

func (c *RunCmd) Run(cli *CLI) error {
	cwd := c.Cwd
	if cwd == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return &exitError{code: 1, err: fmt.Errorf("config: resolve working directory: %w", err)}
		}
	}

	settings := tcconfig.NewSettings()
	if c.Timeout != 0 {
		settings.GlobalRequestTimeout = c.Timeout
	}
	if err := settings.Validate(); err != nil {
		return &exitError{code: 1, err: err}
	}

	sessCfg := session.Config{DefaultModel: c.Model}

	var sess *session.Session
	if c.Resume != "" {
		data, err := os.ReadFile(c.Resume)
		if err != nil {
			return &exitError{code: 1, err: fmt.Errorf("config: read resume snapshot: %w", err)}
		}
		sess, err = session.Restore(sessCfg, data)
		if err != nil {
			return &exitError{code: 1, err: fmt.Errorf("config: restore session: %w", err)}
		}
	} else {
		sess = session.New(sessCfg)
	}
	sess.Runtime.Yolo = c.AutoApprove || settings.Yolo
	sess.Runtime.PlanMode = settings.PlanMode
	if c.Model != "" {
		sess.Runtime.CurrentModel = c.Model
	}

	engine := authz.NewEngine()
	var confirmUI authz.ConfirmationUI = authz.AutoApprove{}

	deltaStart := len(sess.Messages)

	proc := &orchestrator.Processor{
		Engine:     engine,
		ConfirmUI:  confirmUI,
		Executor:   builtinExecutor{cwd: cwd, todos: sess.Todos},
		ReadOnly:   authz.DefaultReadOnlyTools(),
		WriteSet:   authz.DefaultWriteTools(),
		ExecuteSet: authz.DefaultExecuteTools(),
		IgnoreList: settings.ToolIgnoreSet(),
		Settings: orchestrator.Settings{
			MaxRetries:  settings.MaxRetries,
			MaxParallel: settings.MaxParallel,
		},
	}

	pipeline := history.NewPipeline(nil, nil)
	pipeline.SummaryThreshold = settings.SummaryThreshold

	orch := &orchestrator.Orchestrator{
		Agent:    scriptedAgent{},
		Pipeline: pipeline,
		Process:  proc,
		Settings: orchestrator.Settings{
			MaxIterations:        settings.MaxIterations,
			MaxRetries:           settings.MaxRetries,
			GlobalRequestTimeout: settings.GlobalRequestTimeout,
			MaxParallel:          settings.MaxParallel,
			FallbackResponse:     settings.FallbackResponse,
			FallbackVerbosity:    string(settings.FallbackVerbosity),
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		sess.Cancel()
	}()

	result := orch.RunTurn(ctx, sess, c.Prompt)

	if c.Save != "" {
		data, err := sess.Snapshot()
		if err != nil {
			return &exitError{code: 1, err: fmt.Errorf("config: snapshot session: %w", err)}
		}
		if err := os.WriteFile(c.Save, data, 0o644); err != nil {
			return &exitError{code: 1, err: fmt.Errorf("config: write snapshot: %w", err)}
		}
	}

	if c.OutputJSON {
		if err := printJSON(sess, deltaStart, result); err != nil {
			return &exitError{code: 1, err: err}
		}
	} else {
		fmt.Println(result.FinalText)
	}

	return exitForResult(result)
}

func printJSON(sess *session.Session, deltaStart int, result orchestrator.TurnResult) error {
	env := outputEnvelope{
		Kind:       resultKindString(result.Kind),
		FinalText:  result.FinalText,
		Reason:     result.Reason,
		UsageDelta: result.UsageDelta,
	}
	for _, m := range sess.Messages[deltaStart:] {
		raw, err := message.ToTransport(m)
		if err != nil {
			return fmt.Errorf("serialize message delta: %w", err)
		}
		env.Delta = append(env.Delta, raw)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

func resultKindString(k orchestrator.TurnResultKind) string {
	switch k {
	case orchestrator.Completed:
		return "Completed"
	case orchestrator.FallbackSynthesized:
		return "FallbackSynthesized"
	case orchestrator.Cancelled:
		return "Cancelled"
	case orchestrator.TimedOut:
		return "TimedOut"
	case orchestrator.ConfigError:
		return "ConfigError"
	default:
		return "Unknown"
	}
}

// exitForResult maps a TurnResult to the process exit code spec §6
// mandates: 0 on Completed/FallbackSynthesized, 130 on Cancelled, 124 on
// TimedOut, 1 on ConfigError (and any unrecognized kind).
func exitForResult(result orchestrator.TurnResult) error {
	switch result.Kind {
	case orchestrator.Completed, orchestrator.FallbackSynthesized:
		return nil
	case orchestrator.Cancelled:
		return &exitError{code: 130, err: fmt.Errorf("cancelled")}
	case orchestrator.TimedOut:
		return &exitError{code: 124, err: fmt.Errorf("timed out")}
	case orchestrator.ConfigError:
		return &exitError{code: 1, err: fmt.Errorf("config: %s", result.Reason)}
	default:
		return &exitError{code: 1, err: fmt.Errorf("unknown turn result")}
	}
}
