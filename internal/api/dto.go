package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/noteservice"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Path    string `json:"path" example:"topics/go.md" validate:"required"`
	Content string `json:"content" example:"# Go\n#lang" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Content, validation.Required),
	)
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content" example:"# Updated" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.Required),
	)
}

// MoveNoteRequest is the request body for renaming a note.
type MoveNoteRequest struct {
	From string `json:"from" example:"inbox/idea.md" validate:"required"`
	To   string `json:"to" example:"topics/idea.md" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *MoveNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.From, validation.Required),
		validation.Field(&r.To, validation.Required, validation.NotIn(r.From).Error("must differ from from")),
	)
}

// ToggleTodoRequest identifies a todo by note and 1-based line.
type ToggleTodoRequest struct {
	Path string `json:"path" example:"tasks.md" validate:"required"`
	Line int    `json:"line" example:"3" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *ToggleTodoRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Line, validation.Required, validation.Min(1)),
	)
}

// NoteDetail is the full note response type.
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response.
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.SearchResult `json:"results" validate:"required"`
}

// PathsResponse wraps a list of note paths (backlinks, outgoing links, tag members).
type PathsResponse struct {
	Paths []string `json:"paths" validate:"required"`
}

// TagsResponse wraps the distinct tag list.
type TagsResponse struct {
	Tags []string `json:"tags" validate:"required"`
}

// TodosResponse wraps a todo listing.
type TodosResponse struct {
	Todos []models.Todo `json:"todos" validate:"required"`
}

// BlocksResponse wraps the headings of one note.
type BlocksResponse struct {
	Blocks []models.Block `json:"blocks" validate:"required"`
}
