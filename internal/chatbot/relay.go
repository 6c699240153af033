package chatbot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/recastlabs/recast/internal/backboard"
)

const fallbackReply = "Here's my suggested edit:"

const personaPrompt = `You are ScriptBot, a friendly and helpful video script editing assistant.

Your role:
- Help users improve their video scripts
- Be conversational and encouraging
- Provide specific, actionable suggestions
- When suggesting changes, always explain WHY
- Ask follow-up questions to understand their goals

Current script the user is editing:
%s

Guidelines:
- Keep responses concise (2-3 sentences max for regular responses)
- When editing, show the EXACT new text in a fenced code block
- Always ask if they want to apply changes
- Focus on making scripts more engaging, clear, and effective

When suggesting changes, format them like this:
` + "```" + `
[Your suggested script changes here]
` + "```" + `

User's request: %s

Please help them edit their script. If they're asking for specific changes, provide the edited version in a code block.`

// Relay runs a chat-style editing exchange against the assistant backend.
// It is stateless per call; the thread held by the external service carries
// the conversation, and callers reuse one thread per editing session.
type Relay struct {
	bb     *backboard.Client
	logger *slog.Logger
}

func New(bb *backboard.Client, logger *slog.Logger) *Relay {
	return &Relay{bb: bb, logger: logger}
}

// InitSession resolves the user's assistant (provisioning one if needed)
// and opens a fresh thread for the editing session.
func (r *Relay) InitSession(ctx context.Context, userID, assistantID string) (string, string, error) {
	if assistantID == "" {
		id, err := r.bb.EnsureAssistant(ctx, userID)
		if err != nil {
			return "", "", fmt.Errorf("ensure assistant: %w", err)
		}
		assistantID = id
	}

	threadID, err := r.bb.CreateThread(ctx, assistantID)
	if err != nil {
		return "", "", fmt.Errorf("open session thread: %w", err)
	}
	return threadID, assistantID, nil
}

// Reply is the post-processed assistant response.
type Reply struct {
	Text          string
	SuggestedEdit string // "" when the reply contained no fenced block
}

// Converse sends the user's message (wrapped in the persona prompt and the
// current script) to the thread and splits the reply into conversational
// text and an optional suggested edit.
func (r *Relay) Converse(ctx context.Context, threadID, message, scriptContent string) (Reply, error) {
	prompt := fmt.Sprintf(personaPrompt, scriptContent, message)

	raw, err := r.bb.SendMessage(ctx, threadID, prompt, backboard.MemoryReadonly)
	if err != nil {
		return Reply{}, fmt.Errorf("assistant reply: %w", err)
	}

	reply := splitReply(raw)
	r.logger.Info("chatbot exchange",
		"thread_id", threadID,
		"has_edit", reply.SuggestedEdit != "",
	)
	return reply, nil
}

var fencedBlock = regexp.MustCompile("(?s)```.*?```")

// splitReply extracts the first fenced code block as the suggested edit and
// strips every fenced block from the conversational text. A reply that was
// nothing but code gets a fixed lead-in so the user never sees a blank
// message.
func splitReply(raw string) Reply {
	text := strings.TrimSpace(raw)

	blocks := fencedBlock.FindAllString(text, -1)
	if len(blocks) == 0 {
		return Reply{Text: text}
	}

	edit := strings.TrimSpace(strings.ReplaceAll(blocks[0], "```", ""))
	remainder := strings.TrimSpace(fencedBlock.ReplaceAllString(text, ""))
	if remainder == "" {
		remainder = fallbackReply
	}
	return Reply{Text: remainder, SuggestedEdit: edit}
}
