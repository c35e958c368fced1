package parser

import (
	"regexp"
	"strings"

	"github.com/starford/quire/internal/models"
)

var (
	todoRe       = regexp.MustCompile(`^(\s*)[-*]\s*\[([ xX])\]\s*(.+)$`)
	dueRe        = regexp.MustCompile(`(?:@due\(|due:|📅\s*)(\d{4}-\d{2}-\d{2})\)?`)
	priorityRe   = regexp.MustCompile(`(?:!(high|medium|low)|p:([123]))`)
	recurrenceRe = regexp.MustCompile(`(?:@every|@repeat)\(([^)]+)\)`)

	dueTokenRe = regexp.MustCompile(`(?:@due\([^)]+\)|due:\d{4}-\d{2}-\d{2}|📅\s*\d{4}-\d{2}-\d{2})`)
	spaceRunRe = regexp.MustCompile(`\s+`)
)

type indentFrame struct {
	level int
	line  int
}

// ExtractTodos returns every checkbox line. Indent level is the leading
// whitespace length divided by two; the parent is the nearest preceding todo
// with a smaller indent level.
func ExtractTodos(content string) []models.Todo {
	var (
		out   []models.Todo
		stack []indentFrame
	)
	for i, line := range lines(content) {
		m := todoRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lineNo := i + 1
		indent := len(m[1]) / 2
		text := strings.TrimSpace(m[3])

		for len(stack) > 0 && stack[len(stack)-1].level >= indent {
			stack = stack[:len(stack)-1]
		}
		var parent *int
		if indent > 0 && len(stack) > 0 {
			p := stack[len(stack)-1].line
			parent = &p
		}
		stack = append(stack, indentFrame{level: indent, line: lineNo})

		out = append(out, models.Todo{
			LineNumber:  lineNo,
			Content:     text,
			Completed:   m[2] != " ",
			DueDate:     parseDue(text),
			Priority:    ParsePriority(text),
			IndentLevel: indent,
			ParentLine:  parent,
			Recurrence:  parseRecurrence(text),
		})
	}
	return out
}

func parseDue(text string) string {
	if m := dueRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// ParsePriority returns the first priority token in text, or "".
func ParsePriority(text string) models.Priority {
	m := priorityRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return models.Priority(m[1])
	}
	switch m[2] {
	case "1":
		return models.PriorityHigh
	case "2":
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

func parseRecurrence(text string) string {
	if m := recurrenceRe.FindStringSubmatch(text); m != nil {
		return strings.ToLower(strings.TrimSpace(m[1]))
	}
	return ""
}

// HasPriorityToken reports whether text already carries a priority marker.
func HasPriorityToken(text string) bool {
	return priorityRe.MatchString(text)
}

// StripDueTokens removes every due-date token and collapses whitespace.
func StripDueTokens(text string) string {
	text = dueTokenRe.ReplaceAllString(text, "")
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(text, " "))
}

// ToggleCheckbox flips the checkbox on line. It reports false when the line
// holds no checkbox.
func ToggleCheckbox(line string, completed bool) (string, bool) {
	m := todoRe.FindStringSubmatchIndex(line)
	if m == nil {
		return line, false
	}
	// m[4]:m[5] spans the bracket character.
	mark := " "
	if completed {
		mark = "x"
	}
	return line[:m[4]] + mark + line[m[5]:], true
}
