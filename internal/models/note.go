// Package models defines the record types shared by the index, the note
// service and the transport layers.
package models

import "time"

// Note is a markdown file in the vault together with its raw content.
type Note struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Content   []byte    `json:"-"`
	Body      string    `json:"body"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteMetadata is what enumeration returns. Mtime is kept as seconds plus
// nanoseconds so the sync engine can compare it exactly.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	ModSecs   int64     `json:"mtime_secs"`
	ModNanos  int64     `json:"mtime_nanos"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link is a resolved directed edge. Both ends are paths of notes on disk.
type Link struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Priority of a todo.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Todo is a checkbox line. Identity is (NotePath, LineNumber); LineNumber is 1-based.
type Todo struct {
	ID          int64    `json:"id,omitempty"`
	NotePath    string   `json:"note_path"`
	LineNumber  int      `json:"line_number"`
	Content     string   `json:"content"`
	Completed   bool     `json:"completed"`
	DueDate     string   `json:"due_date,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	IndentLevel int      `json:"indent_level"`
	ParentLine  *int     `json:"parent_line,omitempty"`
	Recurrence  string   `json:"recurrence,omitempty"`
}

// Block is a heading addressable by its slug.
type Block struct {
	NotePath   string `json:"note_path"`
	BlockID    string `json:"block_id"`
	LineNumber int    `json:"line_number"`
	Heading    string `json:"heading"`
}

// SearchResult is one ranked full-text hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
}

// GraphNode is a note in the link graph.
type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// GraphEdge mirrors Link for graph payloads.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is a node/edge projection of the link table.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}
