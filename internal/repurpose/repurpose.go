package repurpose

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/recastlabs/recast/internal/backboard"
	"github.com/recastlabs/recast/internal/profile"
	"github.com/recastlabs/recast/internal/segment"
)

// Strategy rewrites a segment list in the creator's voice. Implementations
// must return exactly as many segments as they were given, substituting the
// original for any segment they could not rewrite.
type Strategy interface {
	Rewrite(ctx context.Context, segments []segment.Segment) ([]segment.Segment, error)
}

// Service orchestrates script repurposing. It picks the RAG strategy when a
// backboard client is configured and the profile has been indexed into an
// assistant, and falls back to direct batched chat completions otherwise.
type Service struct {
	llm    *openai.Client
	model  string
	bb     *backboard.Client // nil when backboard is not configured
	logger *slog.Logger
}

func New(llm *openai.Client, model string, bb *backboard.Client, logger *slog.Logger) *Service {
	return &Service{llm: llm, model: model, bb: bb, logger: logger}
}

// Repurpose rewrites a transcript to match the creator's voice profile,
// preserving segment count, order, and timestamps.
func (s *Service) Repurpose(ctx context.Context, script string, answers profile.Answers, assistantID string) (string, error) {
	segments := segment.Parse(script)
	if len(segments) == 0 {
		return script, nil
	}

	strategy := s.strategyFor(assistantID, answers)

	rewritten, err := strategy.Rewrite(ctx, segments)
	if err != nil {
		return "", fmt.Errorf("rewrite script: %w", err)
	}
	if len(rewritten) != len(segments) {
		// Strategies guarantee this; treat violation as a bug, not data loss.
		return "", fmt.Errorf("rewrite returned %d segments for %d input", len(rewritten), len(segments))
	}
	return segment.Format(rewritten), nil
}

func (s *Service) strategyFor(assistantID string, answers profile.Answers) Strategy {
	if s.bb != nil && assistantID != "" {
		return &ragStrategy{bb: s.bb, assistantID: assistantID, logger: s.logger}
	}
	return &batchStrategy{
		llm:            s.llm,
		model:          s.model,
		profileContext: profile.RenderContext(answers),
		logger:         s.logger,
	}
}
