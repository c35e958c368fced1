package index

import (
	"strings"
	"unicode"
)

const defaultSearchLimit = 50

// sanitizeQuery quotes every bare token that is not a plain word so FTS5
// does not read '#', '@', '+', '-', ':' or '.' as syntax. A trailing '*'
// stays outside the quotes as the prefix marker. Quoted phrases,
// parentheses and the boolean keywords pass through unchanged.
func sanitizeQuery(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 8)

	inQuotes := false
	i := 0
	for i < len(q) {
		c := q[i]
		if c == '"' {
			inQuotes = !inQuotes
			b.WriteByte(c)
			i++
			continue
		}
		if inQuotes || isSpace(c) || c == '(' || c == ')' {
			b.WriteByte(c)
			i++
			continue
		}

		start := i
		for i < len(q) && q[i] != '"' && q[i] != '(' && q[i] != ')' && !isSpace(q[i]) {
			i++
		}
		tok := q[start:i]

		switch strings.ToUpper(tok) {
		case "AND", "OR", "NOT", "NEAR":
			b.WriteString(tok)
			continue
		}

		word, prefix := strings.CutSuffix(tok, "*")
		if word == "" {
			continue
		}
		if isBareWord(word) {
			b.WriteString(tok)
			continue
		}
		b.WriteByte('"')
		b.WriteString(word)
		b.WriteByte('"')
		if prefix {
			b.WriteByte('*')
		}
	}
	if inQuotes {
		b.WriteByte('"')
	}
	return b.String()
}

// isBareWord reports whether s is letters, digits, marks and underscores
// only.
func isBareWord(s string) bool {
	for _, r := range s {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsMark(r) {
			return false
		}
	}
	return true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
