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

package message

// UsageMetrics accumulates token and cost accounting across the
// iterations of a turn, and across turns within a session. It only ever
// grows: Add folds another delta in, never subtracts.
type UsageMetrics struct {
	RequestTokens  int64
	ResponseTokens int64
	TotalTokens    int64
	LastCallTokens int64
	LastCost       float64
	SessionCost    float64
}

// Add folds other into m in place and returns m for chaining.
func (m *UsageMetrics) Add(other UsageMetrics) *UsageMetrics {
	m.RequestTokens += other.RequestTokens
	m.ResponseTokens += other.ResponseTokens
	m.TotalTokens += other.TotalTokens
	m.LastCallTokens = other.LastCallTokens
	m.LastCost = other.LastCost
	m.SessionCost += other.LastCost
	return m
}
