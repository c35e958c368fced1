package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/noteservice"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	AuthEnabled bool
	Token       string
	// SearchLimit applies when a search request names no limit.
	SearchLimit int
	// Events, if non-nil, receives sync and toggle notifications.
	Events Events
	// Stream, if non-nil, is mounted at GET /events inside the auth group.
	Stream http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *noteservice.Service, cfg RouterConfig) chi.Router {
	h := NewHandler(svc, cfg.Events, cfg.SearchLimit)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Post("/notes/move", h.MoveNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.UpdateNote)
	r.Delete("/notes/*", h.DeleteNote)

	r.Get("/search", h.Search)

	// Links and graph.
	r.Get("/graph", h.Graph)
	r.Get("/graph/local/*", h.LocalGraph)
	r.Get("/backlinks/*", h.Backlinks)
	r.Get("/links/*", h.OutgoingLinks)

	r.Get("/tags", h.Tags)
	r.Get("/tags/{tag}/notes", h.NotesByTag)

	r.Get("/todos", h.Todos)
	r.Post("/todos/toggle", h.ToggleTodo)

	r.Get("/blocks/*", h.Blocks)
	r.Get("/transclusion", h.Transclusion)

	r.Post("/sync", h.Sync)
	r.Get("/stats", h.Stats)

	if cfg.Stream != nil {
		r.Get("/events", cfg.Stream.ServeHTTP)
	}

	return r
}
