package repurpose

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/recastlabs/recast/internal/segment"
)

// batchSize keeps prompts under token limits while giving the model enough
// neighboring segments for consistent phrasing within a batch.
const batchSize = 10

// batchTemperature biases generation toward conservative, minimal edits.
const batchTemperature = 0.3

const batchSystemPrompt = "You are a precise content repurposing specialist. You make minimal, surgical changes to adapt content to a creator's voice while preserving the original meaning and structure."

// batchStrategy rewrites segments in fixed-size batches through direct chat
// completions, carrying the full rendered profile context in every prompt.
type batchStrategy struct {
	llm            *openai.Client
	model          string
	profileContext string
	logger         *slog.Logger
}

func (b *batchStrategy) Rewrite(ctx context.Context, segments []segment.Segment) ([]segment.Segment, error) {
	rewritten := make([]segment.Segment, 0, len(segments))

	for start := 0; start < len(segments); start += batchSize {
		end := start + batchSize
		if end > len(segments) {
			end = len(segments)
		}
		batch := segments[start:end]

		reply, err := b.complete(ctx, batch, start)
		if err != nil {
			// A failed batch keeps its original segments; the rest of the
			// transcript still gets rewritten.
			b.logger.Warn("batch rewrite failed, keeping originals",
				"batch_start", start,
				"batch_len", len(batch),
				"error", err,
			)
			rewritten = append(rewritten, batch...)
			continue
		}

		rewritten = append(rewritten, parseNumberedReply(reply, batch)...)
	}

	return rewritten, nil
}

func (b *batchStrategy) complete(ctx context.Context, batch []segment.Segment, offset int) (string, error) {
	var lines []string
	for i, seg := range batch {
		lines = append(lines, fmt.Sprintf("%d. %s", offset+i+1, seg.String()))
	}

	prompt := fmt.Sprintf(`Repurpose ONLY the following segments from a video transcript to match the creator's voice and style. Make MINIMAL changes - only adapt what's necessary (tone, word choice, examples) while preserving the core message and structure.

CREATOR PROFILE:
%s

ORIGINAL SEGMENTS:
%s

CRITICAL INSTRUCTIONS:
1. Repurpose each segment INDIVIDUALLY with MINIMAL changes
2. Keep the EXACT same meaning and core message
3. Only change word choice, tone, examples, or phrasing to match their voice
4. Preserve ALL timestamps exactly as shown [M:SS]
5. If a segment doesn't need changes, return it as-is
6. Respect their red lines (words/phrases to avoid)
7. Return ONLY the repurposed segments in the same numbered format:
1. [timestamp if present] repurposed text
2. [timestamp if present] repurposed text`,
		b.profileContext, strings.Join(lines, "\n"))

	resp, err := b.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: batchSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: batchTemperature,
		MaxTokens:   2000,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

var (
	numberedLine    = regexp.MustCompile(`^\d+\.\s*(?:\[(\d+:\d+)\]\s*)?(.+)$`)
	timestampedLine = regexp.MustCompile(`^\[(\d+:\d+)\]\s*(.+)$`)
)

// parseNumberedReply maps reply lines back onto the batch positionally.
// A line without a timestamp inherits the original segment's; when the
// model returns fewer lines than segments, the tail is padded with the
// originals so no content is ever dropped. Extra lines are ignored.
func parseNumberedReply(reply string, batch []segment.Segment) []segment.Segment {
	var parsed []segment.Segment
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(parsed) == len(batch) {
			break
		}

		orig := batch[len(parsed)]
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			ts := m[1]
			if ts == "" {
				ts = orig.Timestamp
			}
			parsed = append(parsed, segment.Segment{Timestamp: ts, Text: strings.TrimSpace(m[2])})
			continue
		}
		if m := timestampedLine.FindStringSubmatch(line); m != nil {
			parsed = append(parsed, segment.Segment{Timestamp: m[1], Text: strings.TrimSpace(m[2])})
			continue
		}
		parsed = append(parsed, segment.Segment{Timestamp: orig.Timestamp, Text: line})
	}

	for len(parsed) < len(batch) {
		parsed = append(parsed, batch[len(parsed)])
	}
	return parsed
}
