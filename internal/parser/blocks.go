package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/starford/quire/internal/models"
)

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// ExtractBlocks returns one block per ATX heading, keyed by its slug.
func ExtractBlocks(content string) []models.Block {
	var out []models.Block
	for i, line := range lines(content) {
		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[2])
		out = append(out, models.Block{
			BlockID:    HeadingSlug(text),
			LineNumber: i + 1,
			Heading:    text,
		})
	}
	return out
}

// HeadingLevel returns the ATX level of line, or 0 if it is not a heading.
func HeadingLevel(line string) int {
	m := headingRe.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
	if m == nil {
		return 0
	}
	return len(m[1])
}

// HeadingSlug lowercases text and joins its alphanumeric runs with '-'.
// "Hello, World! " becomes "hello-world".
func HeadingSlug(text string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
