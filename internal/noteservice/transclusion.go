package noteservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/resolver"
)

// Transclusion is the text a ![[link]] embed expands to.
type Transclusion struct {
	Path    string `json:"path"`
	BlockID string `json:"block_id,omitempty"`
	Content string `json:"content"`
}

// ResolveTransclusion returns the content a link points at: the whole note,
// or for "Note#Heading" the section from that heading up to the next
// heading of the same or a higher level.
func (s *Service) ResolveTransclusion(_ context.Context, link string) (*Transclusion, error) {
	name, fragment := parser.SplitLink(strings.TrimSpace(link))
	if name == "" {
		return nil, fmt.Errorf("noteservice: empty link: %w", apperr.ErrInvalidInput)
	}
	abs, err := resolver.Resolve(name, s.store.Root())
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(abs)
	if err != nil {
		return nil, err
	}
	if fragment == "" {
		return &Transclusion{Path: abs, Content: string(data)}, nil
	}

	id := parser.HeadingSlug(fragment)
	block, err := s.db.Block(abs, id)
	if err != nil {
		return nil, err
	}
	return &Transclusion{
		Path:    abs,
		BlockID: id,
		Content: section(string(data), block.LineNumber),
	}, nil
}

// section returns the lines from the heading at start (1-based) until the
// next heading of the same or a higher level.
func section(content string, start int) string {
	lines := strings.Split(content, "\n")
	if start < 1 || start > len(lines) {
		return ""
	}
	level := parser.HeadingLevel(lines[start-1])
	end := len(lines)
	for i := start; i < len(lines); i++ {
		if l := parser.HeadingLevel(lines[i]); l > 0 && l <= level {
			end = i
			break
		}
	}
	return strings.TrimRight(strings.Join(lines[start-1:end], "\n"), "\n")
}
