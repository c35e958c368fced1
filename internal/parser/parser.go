// Package parser extracts wikilinks, tags, todos and heading blocks from
// markdown text. Extraction never fails: lines that do not match are skipped.
package parser

import (
	"regexp"
	"strings"

	"github.com/starford/quire/internal/models"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	tagRe      = regexp.MustCompile(`#([\p{L}\p{M}\p{N}_]+)`)
)

// Result holds every record extracted from one note.
type Result struct {
	Links  []string
	Tags   []string
	Todos  []models.Todo
	Blocks []models.Block
}

// Parse runs every extraction pass over content. Todos and blocks carry no
// note path; the index fills it in.
func Parse(content string) *Result {
	return &Result{
		Links:  ExtractLinks(content),
		Tags:   ExtractTags(content),
		Todos:  ExtractTodos(content),
		Blocks: ExtractBlocks(content),
	}
}

// ExtractLinks returns the inner text of every [[...]] in encounter order.
// Duplicates and #fragments are kept.
func ExtractLinks(content string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(content, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// ExtractTags returns the word after every '#' in encounter order, without
// the '#'. Duplicates are kept.
func ExtractTags(content string) []string {
	matches := tagRe.FindAllStringSubmatch(content, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// SplitLink splits a link target into note name and heading fragment.
// "Note#Section" yields ("Note", "Section").
func SplitLink(target string) (name, fragment string) {
	if i := strings.Index(target, "#"); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, ""
}

// LinkNoteName is the part of a link target used to find the note.
func LinkNoteName(target string) string {
	name, _ := SplitLink(target)
	return name
}

// lines splits content on '\n' and drops a trailing '\r' from each line.
func lines(content string) []string {
	out := strings.Split(content, "\n")
	for i, l := range out {
		out[i] = strings.TrimSuffix(l, "\r")
	}
	return out
}
