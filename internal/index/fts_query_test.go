package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeQuery(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain words", "plain words"},
		{"follow-up", `"follow-up"`},
		{"a OR b", "a OR b"},
		{`"exact-phrase kept"`, `"exact-phrase kept"`},
		{"-excluded term", `"-excluded" term`},
		{"(x AND y-z)", `(x AND "y-z")`},
		{"v1.2", `"v1.2"`},
		{`"unterminated`, `"unterminated"`},
		{"#project", `"#project"`},
		{"@home", `"@home"`},
		{"C++ notes", `"C++" notes`},
		{"title:draft", `"title:draft"`},
		{"pre*", "pre*"},
		{"#proj*", `"#proj"*`},
		{"école naïve", "école naïve"},
		{"snake_case", "snake_case"},
		{"*", ""},
		{"a * b", "a  b"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, sanitizeQuery(c.in), c.in)
	}
}
