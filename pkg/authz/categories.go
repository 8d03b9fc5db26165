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

// DefaultReadOnlyTools, DefaultWriteTools and DefaultExecuteTools are the
// three disjoint built-in sets spec §4.3 names. Categorization is data,
// not behavior: callers may extend these maps (or build their own) freely
// without touching Engine.Evaluate.
//
// present_plan is categorized read-only per the Open Question resolution
// recorded in DESIGN.md: it is always allowed even under plan-mode.
func DefaultReadOnlyTools() map[string]bool {
	return map[string]bool{
		"read_file":         true,
		"grep":              true,
		"list_dir":          true,
		"glob":              true,
		"research_codebase": true,
		"present_plan":      true,
		"todoread":          true,
	}
}

func DefaultWriteTools() map[string]bool {
	return map[string]bool{
		"write_file":  true,
		"update_file": true,
		"todowrite":   true,
		"todoclear":   true,
	}
}

func DefaultExecuteTools() map[string]bool {
	return map[string]bool{
		"bash":        true,
		"run_command": true,
	}
}
