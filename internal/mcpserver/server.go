// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the note index to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/noteservice"
)

const contractURI = "quire://note-format"

// Server wraps the MCP server with quire tools.
type Server struct {
	mcp         *server.MCPServer
	svc         *noteservice.Service
	searchLimit int
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service, version string, searchLimit int) *Server {
	if searchLimit <= 0 {
		searchLimit = 20
	}
	s := &Server{svc: svc, searchLimit: searchLimit}

	s.mcp = server.NewMCPServer(
		"quire",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query; quote phrases, AND/OR/NOT are honoured")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path relative to the vault root (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new Markdown note and index it. "+
			"Read the "+contractURI+" resource or call get_note_contract first."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new note (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the link, tag, todo and heading syntax the index understands."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List note paths, optionally only those carrying a tag."),
		mcp.WithString("tag", mcp.Description("Optional tag filter without the leading #")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every distinct tag in the vault."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("notes_by_tag",
		mcp.WithDescription("List the notes carrying a tag."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag without the leading #")),
	), s.notesByTag)

	s.mcp.AddTool(mcp.NewTool("list_todos",
		mcp.WithDescription("List todos with due dates, priorities and recurrence."),
		mcp.WithBoolean("incomplete_only", mcp.Description("Only open todos (default true)")),
	), s.listTodos)

	s.mcp.AddTool(mcp.NewTool("toggle_todo",
		mcp.WithDescription("Check or uncheck a todo. Completing a recurring todo schedules its next instance."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note containing the todo")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("1-based line number of the todo")),
	), s.toggleTodo)

	s.mcp.AddTool(mcp.NewTool("get_block",
		mcp.WithDescription("Read the section under a heading. Accepts a link such as Note#Heading."),
		mcp.WithString("link", mcp.Required(), mcp.Description("Note name, optionally with #Heading")),
	), s.getBlock)

	s.mcp.AddTool(mcp.NewTool("sync_index",
		mcp.WithDescription("Reconcile the index with the files on disk."),
		mcp.WithBoolean("force", mcp.Description("Reindex every note")),
	), s.syncIndex)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Note Format",
			mcp.WithResourceDescription("Markdown syntax understood by the index."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError turns a service error into a tool-level error result. Tool
// failures are reported to the model, not as protocol errors.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found: " + err.Error())
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError("already exists: " + err.Error())
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func linesResult(items []string, empty string) *mcp.CallToolResult {
	if len(items) == 0 {
		return mcp.NewToolResultText(empty)
	}
	return mcp.NewToolResultText(strings.Join(items, "\n"))
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", s.searchLimit))
	if err != nil {
		return toolError(err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return jsonResult(results), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !strings.HasSuffix(path, ".md") {
		return mcp.NewToolResultError("path must end with .md"), nil
	}
	if _, err := s.svc.CreateNote(ctx, path, []byte(content)); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.ListNotes(ctx, 0, 0, req.GetString("tag", ""))
	if err != nil {
		return toolError(err), nil
	}
	root := s.svc.Root()
	paths := make([]string, len(items))
	for i, it := range items {
		paths[i] = relative(root, it.Path)
	}
	return linesResult(paths, "no notes"), nil
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return linesResult(s.relativeAll(bl), "no backlinks found"), nil
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.Tags(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return linesResult(tags, "no tags"), nil
}

func (s *Server) notesByTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths, err := s.svc.NotesByTag(ctx, strings.TrimPrefix(tag, "#"))
	if err != nil {
		return toolError(err), nil
	}
	return linesResult(s.relativeAll(paths), "no notes with tag "+tag), nil
}

func (s *Server) listTodos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	todos, err := s.svc.Todos(ctx, req.GetBool("incomplete_only", true))
	if err != nil {
		return toolError(err), nil
	}
	if len(todos) == 0 {
		return mcp.NewToolResultText("no todos"), nil
	}
	root := s.svc.Root()
	for i := range todos {
		todos[i].NotePath = relative(root, todos[i].NotePath)
	}
	return jsonResult(todos), nil
}

func (s *Server) toggleTodo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	line, err := req.RequireInt("line")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.ToggleTodo(ctx, path, line)
	if err != nil {
		return toolError(err), nil
	}
	state := "reopened"
	if res.Completed {
		state = "completed"
	}
	msg := fmt.Sprintf("%s: %s:%d", state, path, line)
	if res.Spawned != "" {
		msg += "\nnext instance added to " + relative(s.svc.Root(), res.Spawned)
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) getBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	link, err := req.RequireString("link")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := s.svc.ResolveTransclusion(ctx, strings.Trim(link, "[]!"))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(t.Content), nil
}

func (s *Server) syncIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.svc.Sync(ctx, req.GetBool("force", false))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(stats), nil
}

func (s *Server) relativeAll(paths []string) []string {
	root := s.svc.Root()
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = relative(root, p)
	}
	return out
}

// relative shows vault paths the way clients pass them in.
func relative(root, p string) string {
	if rel, err := filepath.Rel(root, p); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return p
}
