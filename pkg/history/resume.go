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
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tunacode/tunacode-go/pkg/message"
)

// summaryMarker prefixes a rolling-summary checkpoint message.
const summaryMarker = "[SUMMARY] "

// keepRecentTurns is K in spec §4.5: ToolReturn parts older than this
// many turns get their content replaced with a stub.
const keepRecentTurns = 6

// Summarizer delegates to the LLM agent in a sub-call to produce a
// rolling summary of the turns being dropped. Implementations wrap
// whatever LLMAgent capability the host provides; summary generation is
// opportunistic (spec §4.5): a returned error is logged and the pipeline
// proceeds without a summary rather than aborting the turn.
type Summarizer interface {
	Summarize(ctx context.Context, msgs []message.Message) (string, error)
}

// Pipeline bundles the resume-pipeline configuration: the token
// estimator and threshold that decide when to summarize, and the
// summarizer used to produce the checkpoint text.
//
// Grounded on v2/memory/buffer_window.go's WorkingMemoryStrategy
// (FilterEvents/CheckAndSummarize) two-method shape, adapted to actually
// perform the summarization the teacher's pkg/agent/history.go only
// stubs out.
type Pipeline struct {
	Estimator        TokenEstimator
	SummaryThreshold int
	Summarizer       Summarizer
	Logger           *slog.Logger
}

// NewPipeline returns a Pipeline with spec defaults (threshold 120000)
// and the stdlib-only estimator; callers override Estimator with a
// TikTokenEstimator once a model name is known.
func NewPipeline(summarizer Summarizer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Estimator:        DefaultEstimator(),
		SummaryThreshold: 120000,
		Summarizer:       summarizer,
		Logger:           logger,
	}
}

// Run applies the full resume pipeline to msgs: filter_compacted, an
// opportunistic rolling summary, prune_old_tool_outputs, then
// Sanitize. It does not mutate msgs.
func (p *Pipeline) Run(ctx context.Context, msgs []message.Message) []message.Message {
	cur := filterCompacted(msgs)
	cur = p.maybeSummarize(ctx, cur)
	cur = pruneOldToolOutputs(cur, keepRecentTurns)
	return Sanitize(cur)
}

// filterCompacted scans backwards for the most recent summary checkpoint
// and, if found, truncates everything before it (spec §4.5 step 1).
func filterCompacted(msgs []message.Message) []message.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == message.RoleAssistant && strings.HasPrefix(msgs[i].Text(), summaryMarker) {
			out := make([]message.Message, 0, len(msgs)-i)
			out = append(out, msgs[i])
			out = append(out, msgs[i+1:]...)
			return out
		}
	}
	return msgs
}

// pruneOldToolOutputs replaces the content of ToolReturn parts older than
// the most recent keep turns with a short stub, preserving the tool-call
// part itself (spec §4.5 step 2). "Turn" is approximated here as one User
// message boundary.
func pruneOldToolOutputs(msgs []message.Message, keep int) []message.Message {
	boundary := turnBoundaryIndex(msgs, keep)
	out := make([]message.Message, len(msgs))
	copy(out, msgs)
	for i := 0; i < boundary; i++ {
		if out[i].Role != message.RoleToolReturn {
			continue
		}
		parts := make([]message.Part, len(out[i].Parts))
		copy(parts, out[i].Parts)
		for j, p := range parts {
			if tr, ok := p.(message.ToolReturnPart); ok {
				parts[j] = message.ToolReturnPart{
					ID:      tr.ID,
					Content: fmt.Sprintf("<pruned: %d bytes>", len(tr.Content)),
					IsError: tr.IsError,
				}
			}
		}
		out[i].Parts = parts
	}
	return out
}

// turnBoundaryIndex returns the index before which messages belong to
// turns older than the most recent `keep` user turns.
func turnBoundaryIndex(msgs []message.Message, keep int) int {
	seen := 0
	next := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == message.RoleUser {
			seen++
			if seen > keep {
				return next
			}
			next = i
		}
	}
	return 0
}

// EstimatedTokens exposes the pipeline's configured estimator, the
// estimated_tokens() function spec §4.5 refers to.
func (p *Pipeline) EstimatedTokens(msgs []message.Message) int {
	return p.Estimator.EstimateMessages(msgs)
}

// maybeSummarize generates a rolling summary when the estimated token
// count exceeds SummaryThreshold, prepending it as a [SUMMARY] checkpoint
// and dropping the pre-checkpoint turns. Failure to summarize is logged
// and the original messages are returned unchanged — it never aborts the
// turn (spec §4.5).
func (p *Pipeline) maybeSummarize(ctx context.Context, msgs []message.Message) []message.Message {
	if p.Summarizer == nil {
		return msgs
	}
	if p.EstimatedTokens(msgs) <= p.SummaryThreshold {
		return msgs
	}
	summaryText, err := p.Summarizer.Summarize(ctx, msgs)
	if err != nil {
		p.Logger.Warn("rolling summary generation failed, continuing without it", "error", err)
		return msgs
	}
	checkpoint := message.Message{
		Role:  message.RoleAssistant,
		Parts: []message.Part{message.TextPart{Content: summaryMarker + summaryText}},
	}
	return []message.Message{checkpoint}
}
