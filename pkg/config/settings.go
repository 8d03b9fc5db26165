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

// Package config holds the orchestration core's configuration surface
// (spec §6): the recognized settings.* keys, their defaults, and
// validation. Follows the SetDefaults()/Validate() pattern used
// throughout the teacher's config package (e.g. ReasoningConfig).
package config

import (
	"fmt"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FallbackVerbosity enumerates the allowed values of
// settings.fallback_verbosity.
type FallbackVerbosity string

const (
	VerbosityMinimal  FallbackVerbosity = "minimal"
	VerbosityNormal   FallbackVerbosity = "normal"
	VerbosityDetailed FallbackVerbosity = "detailed"
)

// Settings is the full configuration surface of spec §6's table.
type Settings struct {
	MaxIterations        int               `yaml:"max_iterations"`
	MaxRetries           int               `yaml:"max_retries"`
	GlobalRequestTimeout float64           `yaml:"global_request_timeout"`
	MaxParallel          int               `yaml:"max_parallel"`
	FallbackResponse     bool              `yaml:"fallback_response"`
	FallbackVerbosity    FallbackVerbosity `yaml:"fallback_verbosity"`
	SummaryThreshold     int               `yaml:"summary_threshold"`
	ToolIgnoreList       []string          `yaml:"tool_ignore_list"`
	Yolo                 bool              `yaml:"yolo"`
	PlanMode             bool              `yaml:"plan_mode"`
	DefaultModel         string            `yaml:"default_model"`
}

// SetDefaults fills in the defaults named in spec §6's table. Call it
// after loading a partial settings document so omitted keys behave
// exactly as documented.
func (s *Settings) SetDefaults() {
	if s.MaxIterations == 0 {
		s.MaxIterations = 40
	}
	if s.MaxRetries == 0 {
		s.MaxRetries = 3
	}
	if s.GlobalRequestTimeout == 0 {
		s.GlobalRequestTimeout = 90.0
	}
	if s.MaxParallel == 0 {
		s.MaxParallel = defaultMaxParallel()
	}
	if s.FallbackVerbosity == "" {
		s.FallbackVerbosity = VerbosityNormal
	}
	if s.SummaryThreshold == 0 {
		s.SummaryThreshold = 120000
	}
	// FallbackResponse defaults to true; since Go's zero value for bool
	// is false, callers that want the documented default must construct
	// Settings via NewSettings rather than a bare struct literal.
}

// NewSettings returns Settings with every documented default applied,
// including FallbackResponse's true default which SetDefaults alone
// cannot distinguish from an explicit false.
func NewSettings() Settings {
	s := Settings{FallbackResponse: true}
	s.SetDefaults()
	return s
}

func defaultMaxParallel() int {
	n := runtime.NumCPU()
	if n > 8 {
		return 8
	}
	if n < 1 {
		return 1
	}
	return n
}

// Validate checks every field against the ranges spec §6 documents.
// Invalid values must never reach the orchestrator — the core "never
// sees invalid config" (spec §6).
func (s Settings) Validate() error {
	if s.MaxIterations < 1 || s.MaxIterations > 200 {
		return fmt.Errorf("config: max_iterations must be in [1, 200], got %d", s.MaxIterations)
	}
	if s.GlobalRequestTimeout < 0 {
		return fmt.Errorf("config: global_request_timeout must be >= 0, got %f", s.GlobalRequestTimeout)
	}
	if s.MaxParallel < 1 {
		return fmt.Errorf("config: max_parallel must be >= 1, got %d", s.MaxParallel)
	}
	switch s.FallbackVerbosity {
	case VerbosityMinimal, VerbosityNormal, VerbosityDetailed:
	default:
		return fmt.Errorf("config: fallback_verbosity must be one of minimal|normal|detailed, got %q", s.FallbackVerbosity)
	}
	if s.SummaryThreshold < 0 {
		return fmt.Errorf("config: summary_threshold must be >= 0, got %d", s.SummaryThreshold)
	}
	return nil
}

// Load parses a YAML settings document, applies defaults for omitted
// keys, and validates the result.
func Load(data []byte) (Settings, error) {
	s := Settings{FallbackResponse: true}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("config: parse settings: %w", err)
	}
	s.SetDefaults()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ToolIgnoreSet renders ToolIgnoreList as the set shape the authorization
// engine's Context expects.
func (s Settings) ToolIgnoreSet() map[string]bool {
	out := make(map[string]bool, len(s.ToolIgnoreList))
	for _, t := range s.ToolIgnoreList {
		out[t] = true
	}
	return out
}
