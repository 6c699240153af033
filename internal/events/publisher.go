package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Script lifecycle subjects. Downstream consumers (analytics, notification
// fan-out) subscribe to these.
const (
	SubjectScriptCreated     = "recast.script.created"
	SubjectScriptTranscribed = "recast.script.transcribed"
	SubjectProfileIndexed    = "recast.profile.indexed"
	SubjectPromptStored      = "recast.prompt.stored"
)

// ScriptEvent is emitted on script creation and transcription.
type ScriptEvent struct {
	ScriptID   string `json:"script_id"`
	OwnerID    string `json:"owner_id"`
	Name       string `json:"name"`
	Repurposed bool   `json:"repurposed"`
}

// ProfileEvent is emitted after a profile indexing run.
type ProfileEvent struct {
	OwnerID     string `json:"owner_id"`
	AssistantID string `json:"assistant_id"`
	MemoryCount int    `json:"memory_count"`
}

// Publisher pushes lifecycle events onto NATS. A nil *Publisher is a valid
// no-op, so callers never have to branch on whether eventing is configured.
type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Publisher{conn: nc, logger: logger}, nil
}

// Publish sends one event. Failures are logged, not returned: eventing is
// best-effort and never blocks the request path.
func (p *Publisher) Publish(subject string, data any) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		p.logger.Error("marshal event", "subject", subject, "error", err)
		return
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn("publish event", "subject", subject, "error", err)
	}
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.conn.Close()
}
