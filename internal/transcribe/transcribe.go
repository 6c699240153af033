package transcribe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Service converts raw media into a timestamped script via Whisper.
type Service struct {
	client *openai.Client
	logger *slog.Logger
}

func New(client *openai.Client, logger *slog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Transcribe sends the media to Whisper and returns the transcript as
// blank-line-delimited "[M:SS] text" blocks. When the response carries no
// timed segments, the flat text is broken at sentence boundaries instead.
func (s *Service) Transcribe(ctx context.Context, media io.Reader, filename string) (string, error) {
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   media,
		FilePath: filename,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularitySegment,
		},
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}

	script := formatScript(resp)
	s.logger.Info("media transcribed",
		"filename", filename,
		"segments", len(resp.Segments),
		"script_len", len(script),
	)
	return script, nil
}

func formatScript(resp openai.AudioResponse) string {
	if len(resp.Segments) > 0 {
		parts := make([]string, 0, len(resp.Segments))
		for _, seg := range resp.Segments {
			text := strings.TrimSpace(seg.Text)
			if text == "" {
				continue
			}
			parts = append(parts, fmt.Sprintf("[%s] %s", FormatTimestamp(seg.Start), text))
		}
		return strings.Join(parts, "\n\n")
	}

	if resp.Text != "" {
		return breakSentences(resp.Text)
	}
	return ""
}

// FormatTimestamp renders seconds as M:SS, e.g. 72.4 → "1:12".
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

var sentenceEnd = regexp.MustCompile(`([.!?])\s+`)

// breakSentences turns flat prose into blank-line-delimited segments so the
// rest of the pipeline sees the same shape as timed transcripts.
func breakSentences(text string) string {
	return strings.TrimSpace(sentenceEnd.ReplaceAllString(text, "$1\n\n"))
}
