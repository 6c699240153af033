package repurpose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/recastlabs/recast/internal/backboard"
	"github.com/recastlabs/recast/internal/segment"
)

const ragSegmentPrompt = `Repurpose this line to match the creator's actual background and field. Make MINIMAL changes - keep the same length, tone, style, and structure. Only replace generic references with the creator's specific details, using the creator profile retrieved from memory.

ORIGINAL LINE:
%s

RULES:
1. Keep the EXACT same length, tone, and structure
2. Only replace generic field/school/career references with the creator's actual ones
3. Preserve the [M:SS] timestamp exactly if present
4. Do NOT add extra words, details, or clauses
5. Return ONLY the repurposed line text`

// ragStrategy rewrites one segment at a time through the assistant, letting
// retrieval pull the relevant profile memories. Calls run on a single fresh
// thread per transcript so earlier segments inform later ones without
// bleeding context across runs.
type ragStrategy struct {
	bb          *backboard.Client
	assistantID string
	logger      *slog.Logger
}

func (r *ragStrategy) Rewrite(ctx context.Context, segments []segment.Segment) ([]segment.Segment, error) {
	threadID, err := r.bb.CreateThread(ctx, r.assistantID)
	if err != nil {
		return nil, fmt.Errorf("open thread: %w", err)
	}

	rewritten := make([]segment.Segment, 0, len(segments))
	for i, seg := range segments {
		reply, err := r.bb.SendMessage(ctx, threadID, fmt.Sprintf(ragSegmentPrompt, seg.String()), backboard.MemoryReadonly)
		if err != nil {
			// One bad segment never sinks the transcript.
			r.logger.Warn("segment rewrite failed, keeping original",
				"segment", i,
				"error", err,
			)
			rewritten = append(rewritten, seg)
			continue
		}
		rewritten = append(rewritten, parseSegmentReply(reply, seg))
	}
	return rewritten, nil
}

// parseSegmentReply interprets a single-line reply, honoring a leading
// timestamp if the model echoed one and falling back to the original's
// timestamp (or the whole original, for an empty reply) otherwise.
func parseSegmentReply(reply string, orig segment.Segment) segment.Segment {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return orig
	}
	if m := timestampedLine.FindStringSubmatch(trimmed); m != nil {
		return segment.Segment{Timestamp: m[1], Text: strings.TrimSpace(m[2])}
	}
	return segment.Segment{Timestamp: orig.Timestamp, Text: trimmed}
}
