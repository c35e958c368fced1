package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/sse"
)

// Graph handles GET /api/graph.
//
//	@Summary		Get the link graph of the whole vault
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	models.Graph
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.GlobalGraph(r.Context())
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// LocalGraph handles GET /api/graph/local/*.
//
//	@Summary		Get a note and its direct neighbours
//	@Tags			graph
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	models.Graph
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph/local/{path} [get]
func (h *Handler) LocalGraph(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.LocalGraph(r.Context(), notePath(r))
	if err != nil {
		writeError(w, "local graph", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// Backlinks handles GET /api/backlinks/*.
//
//	@Summary		List the notes linking to a note
//	@Tags			links
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	PathsResponse
//	@Security		BearerAuth
//	@Router			/backlinks/{path} [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	paths, err := h.svc.Backlinks(r.Context(), notePath(r))
	if err != nil {
		writeError(w, "backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, PathsResponse{Paths: nonNil(paths)})
}

// OutgoingLinks handles GET /api/links/*.
//
//	@Summary		List the notes a note links to
//	@Tags			links
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	PathsResponse
//	@Security		BearerAuth
//	@Router			/links/{path} [get]
func (h *Handler) OutgoingLinks(w http.ResponseWriter, r *http.Request) {
	paths, err := h.svc.OutgoingLinks(r.Context(), notePath(r))
	if err != nil {
		writeError(w, "outgoing links", err)
		return
	}
	writeJSON(w, http.StatusOK, PathsResponse{Paths: nonNil(paths)})
}

// Tags handles GET /api/tags.
//
//	@Summary		List every distinct tag
//	@Tags			tags
//	@Produce		json
//	@Success		200	{object}	TagsResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		writeError(w, "tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: nonNil(tags)})
}

// NotesByTag handles GET /api/tags/{tag}/notes.
//
//	@Summary		List the notes carrying a tag
//	@Tags			tags
//	@Produce		json
//	@Param			tag	path		string	true	"Tag without the leading #"
//	@Success		200	{object}	PathsResponse
//	@Security		BearerAuth
//	@Router			/tags/{tag}/notes [get]
func (h *Handler) NotesByTag(w http.ResponseWriter, r *http.Request) {
	paths, err := h.svc.NotesByTag(r.Context(), chi.URLParam(r, "tag"))
	if err != nil {
		writeError(w, "notes by tag", err)
		return
	}
	writeJSON(w, http.StatusOK, PathsResponse{Paths: nonNil(paths)})
}

// Todos handles GET /api/todos.
//
//	@Summary		List todos, optionally only open ones
//	@Tags			todos
//	@Produce		json
//	@Param			incomplete	query		bool	false	"Only open todos"
//	@Success		200			{object}	TodosResponse
//	@Security		BearerAuth
//	@Router			/todos [get]
func (h *Handler) Todos(w http.ResponseWriter, r *http.Request) {
	incomplete := r.URL.Query().Get("incomplete")
	todos, err := h.svc.Todos(r.Context(), incomplete == "true" || incomplete == "1")
	if err != nil {
		writeError(w, "todos", err)
		return
	}
	writeJSON(w, http.StatusOK, TodosResponse{Todos: nonNil(todos)})
}

// ToggleTodo handles POST /api/todos/toggle.
//
//	@Summary		Flip a todo checkbox in the index and the note file
//	@Tags			todos
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ToggleTodoRequest	true	"Todo location"
//	@Success		200		{object}	noteservice.ToggleResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/todos/toggle [post]
func (h *Handler) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	var req ToggleTodoRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.ToggleTodo(r.Context(), req.Path, req.Line)
	if err != nil {
		writeError(w, "toggle todo", err)
		return
	}
	if h.events != nil {
		h.events.TodoToggled(sse.TodoToggled{
			Path:      req.Path,
			Line:      req.Line,
			Completed: res.Completed,
			Spawned:   res.Spawned,
		})
	}
	writeJSON(w, http.StatusOK, res)
}

// Blocks handles GET /api/blocks/*. With ?id= it returns a single heading.
//
//	@Summary		List the heading blocks of a note
//	@Tags			blocks
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Param			id		query		string	false	"Heading slug"
//	@Success		200		{object}	BlocksResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{path} [get]
func (h *Handler) Blocks(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if id := r.URL.Query().Get("id"); id != "" {
		b, err := h.svc.Block(r.Context(), path, id)
		if err != nil {
			writeError(w, "block", err)
			return
		}
		writeJSON(w, http.StatusOK, b)
		return
	}
	blocks, err := h.svc.BlocksForNote(r.Context(), path)
	if err != nil {
		writeError(w, "blocks", err)
		return
	}
	writeJSON(w, http.StatusOK, BlocksResponse{Blocks: nonNil(blocks)})
}

// Transclusion handles GET /api/transclusion.
//
//	@Summary		Expand a wikilink to the note or heading section it names
//	@Tags			blocks
//	@Produce		json
//	@Param			link	query		string	true	"Link target, e.g. Note#Heading"
//	@Success		200		{object}	noteservice.Transclusion
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/transclusion [get]
func (h *Handler) Transclusion(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.ResolveTransclusion(r.Context(), r.URL.Query().Get("link"))
	if err != nil {
		writeError(w, "transclusion", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Sync handles POST /api/sync.
//
//	@Summary		Reconcile the index with the vault
//	@Tags			index
//	@Produce		json
//	@Param			force	query		bool	false	"Reindex every note"
//	@Success		200		{object}	index.SyncStats
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force")
	stats, err := h.svc.Sync(r.Context(), force == "true" || force == "1")
	if err != nil {
		writeError(w, "sync", err)
		return
	}
	if h.events != nil {
		h.events.Synced(stats)
	}
	writeJSON(w, http.StatusOK, stats)
}

// Stats handles GET /api/stats.
//
//	@Summary		Count indexed rows
//	@Tags			index
//	@Produce		json
//	@Success		200	{object}	index.Stats
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
