package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/recastlabs/recast/internal/chatbot"
	"github.com/recastlabs/recast/internal/events"
	"github.com/recastlabs/recast/internal/profile"
	"github.com/recastlabs/recast/internal/store"
	"github.com/recastlabs/recast/internal/tasks"
)

// ScriptStore is the script persistence surface the handlers need.
type ScriptStore interface {
	ListScripts(ctx context.Context, ownerID string) ([]store.ScriptRow, error)
	CreateScript(ctx context.Context, ownerID, name string, script, repurposed *string) (store.ScriptRow, error)
	GetScript(ctx context.Context, ownerID string, id uuid.UUID) (store.ScriptRow, error)
	GetScriptByID(ctx context.Context, id uuid.UUID) (store.ScriptRow, error)
	UpdateScript(ctx context.Context, ownerID string, id uuid.UUID, update store.ScriptUpdate) (store.ScriptRow, error)
	DeleteScript(ctx context.Context, ownerID string, id uuid.UUID) error
}

// ProfileStore is the profile persistence surface the handlers need.
type ProfileStore interface {
	GetProfileByOwner(ctx context.Context, ownerID string) (store.ProfileRow, error)
	UpsertProfile(ctx context.Context, ownerID string, answers profile.Answers) (store.ProfileRow, error)
	UpdateProfileIndex(ctx context.Context, ownerID, assistantID string, memoryIDs []string) error
}

// Transcriber turns uploaded media into a timestamped script.
type Transcriber interface {
	Transcribe(ctx context.Context, media io.Reader, filename string) (string, error)
}

// Repurposer rewrites scripts and selected passages in the creator's voice.
type Repurposer interface {
	Repurpose(ctx context.Context, script string, answers profile.Answers, assistantID string) (string, error)
	RewriteSelection(ctx context.Context, assistantID, selectedText, prompt string) (string, error)
}

// ProfileIndexer pushes profile answers and editing prompts into assistant
// memory.
type ProfileIndexer interface {
	IndexProfile(ctx context.Context, userID string, answers profile.Answers, assistantID string, staleMemoryIDs []string) (string, []string, error)
	StorePromptMemory(ctx context.Context, assistantID, prompt, selectedText string) (string, error)
}

// ChatRelay runs script-editing chat sessions.
type ChatRelay interface {
	InitSession(ctx context.Context, userID, assistantID string) (string, string, error)
	Converse(ctx context.Context, threadID, message, scriptContent string) (chatbot.Reply, error)
}

// Deps wires the server's collaborators. Indexer and Relay are nil when the
// assistant backend is not configured; the affected routes degrade instead
// of failing startup.
type Deps struct {
	Logger      *slog.Logger
	Scripts     ScriptStore
	Profiles    ProfileStore
	Transcriber Transcriber
	Repurposer  Repurposer
	Indexer     ProfileIndexer
	Relay       ChatRelay
	Events      *events.Publisher
	Tasks       *tasks.Runner

	// Sessions guards /api/v1. Production passes auth.RequireSession;
	// handler tests inject a stub that plants a fixed session.
	Sessions func(http.Handler) http.Handler
}

type Server struct {
	router *chi.Mux
	deps   Deps
}

func NewServer(deps Deps) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		deps:   deps,
	}

	router.Get("/health", s.health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.Sessions)
		r.Get("/videos", s.listVideos)
		r.Post("/videos", s.createVideo)
		r.Patch("/videos/{id}", s.updateVideo)
		r.Delete("/videos/{id}", s.deleteVideo)
		r.Post("/videos/prompt", s.rewriteSelection)
		r.Get("/backboard", s.getProfile)
		r.Post("/backboard", s.saveProfile)
		r.Post("/chatbot/init", s.initChat)
		r.Post("/chatbot/message", s.chatMessage)
	})

	return s
}

// Handler exposes the router for http.Server wiring and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
