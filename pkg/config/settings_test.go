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

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSettings_AppliesDocumentedDefaults(t *testing.T) {
	s := NewSettings()
	assert.Equal(t, 40, s.MaxIterations)
	assert.Equal(t, 3, s.MaxRetries)
	assert.Equal(t, 90.0, s.GlobalRequestTimeout)
	assert.GreaterOrEqual(t, s.MaxParallel, 1)
	assert.LessOrEqual(t, s.MaxParallel, 8)
	assert.Equal(t, VerbosityNormal, s.FallbackVerbosity)
	assert.Equal(t, 120000, s.SummaryThreshold)
	assert.True(t, s.FallbackResponse, "FallbackResponse defaults to true only via NewSettings")
}

func TestSetDefaults_BareStructLiteralLeavesFallbackResponseFalse(t *testing.T) {
	// Documents the known zero-value gap: a bare Settings{} cannot be
	// distinguished from an explicit fallback_response: false, so
	// SetDefaults alone never flips it true. Callers that want the
	// documented default must go through NewSettings.
	var s Settings
	s.SetDefaults()
	assert.False(t, s.FallbackResponse)
	assert.Equal(t, 40, s.MaxIterations, "other defaults still apply")
}

func TestSetDefaults_DoesNotOverrideExplicitValues(t *testing.T) {
	s := Settings{MaxIterations: 10, MaxRetries: 1}
	s.SetDefaults()
	assert.Equal(t, 10, s.MaxIterations)
	assert.Equal(t, 1, s.MaxRetries)
}

func TestValidate_RejectsOutOfRangeMaxIterations(t *testing.T) {
	s := NewSettings()
	s.MaxIterations = 0
	assert.Error(t, s.Validate())
	s.MaxIterations = 201
	assert.Error(t, s.Validate())
}

func TestValidate_RejectsNegativeTimeout(t *testing.T) {
	s := NewSettings()
	s.GlobalRequestTimeout = -1
	assert.Error(t, s.Validate())
}

func TestValidate_RejectsZeroMaxParallel(t *testing.T) {
	s := NewSettings()
	s.MaxParallel = 0
	assert.Error(t, s.Validate())
}

func TestValidate_RejectsUnknownFallbackVerbosity(t *testing.T) {
	s := NewSettings()
	s.FallbackVerbosity = "loud"
	assert.Error(t, s.Validate())
}

func TestValidate_RejectsNegativeSummaryThreshold(t *testing.T) {
	s := NewSettings()
	s.SummaryThreshold = -1
	assert.Error(t, s.Validate())
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	assert.NoError(t, NewSettings().Validate())
}

func TestLoad_AppliesDefaultsForOmittedKeys(t *testing.T) {
	s, err := Load([]byte(`max_retries: 5`))
	require.NoError(t, err)
	assert.Equal(t, 5, s.MaxRetries)
	assert.Equal(t, 40, s.MaxIterations, "omitted keys still receive their default")
	assert.True(t, s.FallbackResponse)
}

func TestLoad_HonorsExplicitFallbackResponseFalse(t *testing.T) {
	s, err := Load([]byte(`fallback_response: false`))
	require.NoError(t, err)
	assert.False(t, s.FallbackResponse)
}

func TestLoad_RejectsInvalidYAML(t *testing.T) {
	_, err := Load([]byte(`max_iterations: [this is not a number`))
	assert.Error(t, err)
}

func TestLoad_RejectsSemanticallyInvalidSettings(t *testing.T) {
	_, err := Load([]byte(`max_iterations: 999`))
	assert.Error(t, err)
}

func TestToolIgnoreSet_BuildsLookupFromList(t *testing.T) {
	s := Settings{ToolIgnoreList: []string{"execute_command", "write_file"}}
	set := s.ToolIgnoreSet()
	assert.True(t, set["execute_command"])
	assert.True(t, set["write_file"])
	assert.False(t, set["read_file"])
}

func TestToolIgnoreSet_EmptyListYieldsEmptySet(t *testing.T) {
	s := Settings{}
	assert.Empty(t, s.ToolIgnoreSet())
}
