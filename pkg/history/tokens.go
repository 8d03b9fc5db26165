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

package history

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/tunacode/tunacode-go/pkg/message"
)

// tokensPerMessage approximates the per-message overhead OpenAI's own
// token-counting convention adds on top of raw content tokens.
const tokensPerMessage = 3

// TokenEstimator is the replaceable estimator spec §9 calls for: the
// rolling-summary trigger's cost function is not pinned to one
// implementation.
type TokenEstimator interface {
	EstimateMessages(msgs []message.Message) int
}

// TikTokenEstimator counts tokens with tiktoken-go, falling back to the
// cl100k_base encoding if no encoding can be resolved for the model name,
// and to a length/4 heuristic if that cannot be loaded either —
// the same fallback chain as the teacher's pkg/utils/tokens.go.
type TikTokenEstimator struct {
	mu       sync.Mutex
	encoding *tiktoken.Tiktoken
}

var encodingCache sync.Map // model name -> *tiktoken.Tiktoken

// NewTikTokenEstimator resolves an encoding for model, caching it process
// wide the way the teacher's TokenCounter does.
func NewTikTokenEstimator(model string) *TikTokenEstimator {
	if cached, ok := encodingCache.Load(model); ok {
		return &TikTokenEstimator{encoding: cached.(*tiktoken.Tiktoken)}
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return &TikTokenEstimator{}
		}
	}
	encodingCache.Store(model, enc)
	return &TikTokenEstimator{encoding: enc}
}

func (t *TikTokenEstimator) count(text string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.encoding == nil {
		return len(text) / 4
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// EstimateMessages implements TokenEstimator.
func (t *TikTokenEstimator) EstimateMessages(msgs []message.Message) int {
	total := 0
	for _, m := range msgs {
		total += tokensPerMessage
		total += t.count(m.Text())
		for _, tc := range m.ToolCalls() {
			total += t.count(string(tc.Args))
		}
	}
	return total + 3 // reply priming, per OpenAI's counting convention
}

// lengthEstimator is the cheap stdlib-only fallback used by tests and by
// callers that never configured a model name.
type lengthEstimator struct{}

func (lengthEstimator) EstimateMessages(msgs []message.Message) int {
	total := 0
	for _, m := range msgs {
		total += len(m.Text()) / 4
	}
	return total
}

// DefaultEstimator returns the stdlib-only fallback estimator.
func DefaultEstimator() TokenEstimator { return lengthEstimator{} }
