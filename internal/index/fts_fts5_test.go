//go:build sqlite_fts5

package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFTS5_TableIsVirtual(t *testing.T) {
	db := testDB(t)
	var sqlText string
	err := db.conn.QueryRow(`SELECT sql FROM sqlite_master WHERE name = 'note_content'`).Scan(&sqlText)
	require.NoError(t, err)
	assert.Contains(t, sqlText, "fts5")
}

func TestFTS5_StemmingAndSnippet(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.ReindexNoteWith("/v/fts.md", "FTS Note",
		"Quire provides powerful searching capabilities.", vaultLookup()))

	results, err := db.Search("search", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/v/fts.md", results[0].Path)
	assert.Contains(t, results[0].Snippet, "<b>")
}

func TestFTS5_HyphenatedQuery(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.ReindexNoteWith("/v/a.md", "a", "notes on follow-up items", vaultLookup()))

	results, err := db.Search("follow-up", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestFTS5_RanksMoreRelevantFirst(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.ReindexNoteWith("/v/weak.md", "weak", "golang appears once among many other words here", vaultLookup()))
	require.NoError(t, db.ReindexNoteWith("/v/strong.md", "golang", "golang golang golang", vaultLookup()))

	results, err := db.Search("golang", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "/v/strong.md", results[0].Path)
}

func TestFTS5_PunctuatedTermsDoNotBreakQuery(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.ReindexNoteWith("/v/p.md", "p",
		"#project tags and C++ at @home, draft pending", vaultLookup()))

	for _, q := range []string{"#project", "@home", "C++", "-draft", "#proj*", "*"} {
		results, err := db.Search(q, 10)
		require.NoError(t, err, q)
		if q == "*" {
			assert.Empty(t, results, q)
			continue
		}
		assert.Len(t, results, 1, q)
	}
}
