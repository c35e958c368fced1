package noteservice

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/checksum"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/recurrence"
	"github.com/starford/quire/internal/testutil"
)

var fixedDay = time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)

func newTestService(t *testing.T) (string, *Service) {
	t.Helper()
	root, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	rec := recurrence.NewEngine(store, db, testutil.Logger(),
		recurrence.WithClock(func() time.Time { return fixedDay }))
	return root, NewService(store, db, rec, testutil.Logger())
}

func TestCreateGetUpdateDelete(t *testing.T) {
	root, svc := newTestService(t)
	ctx := context.Background()

	note, err := svc.CreateNote(ctx, "topics/go.md", []byte("# Go\n#lang"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "topics", "go.md"), note.Path)
	assert.Equal(t, "go", note.Title)
	assert.Equal(t, []string{"lang"}, note.Tags)

	_, err = svc.CreateNote(ctx, "topics/go.md", []byte("again"))
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	_, err = svc.UpdateNote(ctx, "topics/go.md", []byte("x"), "stale")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	updated, err := svc.UpdateNote(ctx, "topics/go.md", []byte("# Go\n#golang"), note.Checksum)
	require.NoError(t, err)
	assert.Equal(t, []string{"golang"}, updated.Tags)
	assert.Equal(t, checksum.Sum([]byte("# Go\n#golang")), updated.Checksum)

	got, err := svc.GetNote(ctx, note.Path)
	require.NoError(t, err)
	assert.Equal(t, "# Go\n#golang", got.Content)

	require.NoError(t, svc.DeleteNote(ctx, "topics/go.md"))
	_, err = svc.GetNote(ctx, "topics/go.md")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	tags, err := svc.Tags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestOnChangeNotified(t *testing.T) {
	_, svc := newTestService(t)
	var kinds []index.ChangeKind
	svc.OnChange(func(kind index.ChangeKind, _ string) { kinds = append(kinds, kind) })

	ctx := context.Background()
	_, err := svc.CreateNote(ctx, "a.md", []byte("a"))
	require.NoError(t, err)
	_, err = svc.UpdateNote(ctx, "a.md", []byte("b"), "")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteNote(ctx, "a.md"))

	assert.Equal(t, []index.ChangeKind{index.ChangeCreated, index.ChangeUpdated, index.ChangeDeleted}, kinds)
}

func TestListNotes_TagFilterAndPaging(t *testing.T) {
	root, svc := newTestService(t)
	ctx := context.Background()
	testutil.WriteNote(t, root, "c.md", "#x")
	testutil.WriteNote(t, root, "a.md", "#x")
	testutil.WriteNote(t, root, "b.md", "#y")
	_, err := svc.Sync(ctx, false)
	require.NoError(t, err)

	items, total, err := svc.ListNotes(ctx, 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, "a", items[0].Title)

	items, total, err = svc.ListNotes(ctx, 1, 1, "x")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "c", items[0].Title)
}

func TestToggleTodo_RewritesFile(t *testing.T) {
	root, svc := newTestService(t)
	ctx := context.Background()
	p := testutil.WriteNote(t, root, "tasks.md", "# Tasks\n- [ ] one\n* [x] two\n")
	_, err := svc.Sync(ctx, false)
	require.NoError(t, err)

	res, err := svc.ToggleTodo(ctx, "tasks.md", 2)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Empty(t, res.Spawned)

	res, err = svc.ToggleTodo(ctx, p, 3)
	require.NoError(t, err)
	assert.False(t, res.Completed)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "# Tasks\n- [x] one\n* [ ] two\n", string(data))

	todos, err := svc.Todos(ctx, true)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "two", todos[0].Content)

	_, err = svc.ToggleTodo(ctx, p, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestToggleTodo_StaleIndexIsReverted(t *testing.T) {
	root, svc := newTestService(t)
	ctx := context.Background()
	p := testutil.WriteNote(t, root, "tasks.md", "- [ ] one\n")
	_, err := svc.Sync(ctx, false)
	require.NoError(t, err)

	// The file changes behind the index's back.
	require.NoError(t, os.WriteFile(p, []byte("no todos here\n"), 0o644))

	_, err = svc.ToggleTodo(ctx, p, 1)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	todos, err := svc.Todos(ctx, false)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.False(t, todos[0].Completed, "index flag rolled back")
}

func TestToggleTodo_SpawnsRecurringInstance(t *testing.T) {
	root, svc := newTestService(t)
	ctx := context.Background()
	testutil.WriteNote(t, root, "chores.md", "- [ ] laundry @due(2024-03-15) !medium @every(weekly)\n")
	_, err := svc.Sync(ctx, false)
	require.NoError(t, err)

	res, err := svc.ToggleTodo(ctx, "chores.md", 1)
	require.NoError(t, err)
	require.True(t, res.Completed)
	assert.Equal(t, filepath.Join(root, "Daily Notes", "2024-03-15.md"), res.Spawned)

	open, err := svc.Todos(ctx, true)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, res.Spawned, open[0].NotePath)
	assert.Equal(t, "2024-03-22", open[0].DueDate)
	assert.Equal(t, "weekly", open[0].Recurrence)

	// Reopening does not spawn again.
	res, err = svc.ToggleTodo(ctx, "chores.md", 1)
	require.NoError(t, err)
	assert.Empty(t, res.Spawned)
}

func TestMoveNote_UpdatesBacklinks(t *testing.T) {
	root, svc := newTestService(t)
	ctx := context.Background()
	src := testutil.WriteNote(t, root, "src.md", "see [[target]]")
	testutil.WriteNote(t, root, "target.md", "# T")
	_, err := svc.Sync(ctx, false)
	require.NoError(t, err)

	moved, err := svc.MoveNote(ctx, "target.md", "archive/target.md")
	require.NoError(t, err)
	assert.Equal(t, []string{src}, moved.Backlinks)

	out, err := svc.OutgoingLinks(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "archive", "target.md")}, out)
}

func TestGraphs(t *testing.T) {
	root, svc := newTestService(t)
	ctx := context.Background()
	a := testutil.WriteNote(t, root, "a.md", "[[b]]")
	b := testutil.WriteNote(t, root, "b.md", "[[c]]")
	c := testutil.WriteNote(t, root, "c.md", "")
	testutil.WriteNote(t, root, "lonely.md", "")
	_, err := svc.Sync(ctx, false)
	require.NoError(t, err)

	g, err := svc.GlobalGraph(ctx)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 4)
	assert.Len(t, g.Edges, 2)

	local, err := svc.LocalGraph(ctx, "b.md")
	require.NoError(t, err)
	var ids []string
	for _, n := range local.Nodes {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []string{a, b, c}, ids)
	assert.Len(t, local.Edges, 2)
}

func TestResolveTransclusion(t *testing.T) {
	root, svc := newTestService(t)
	ctx := context.Background()
	content := "# Doc\nintro\n## Setup\nstep 1\n### Detail\nfine print\n## Usage\nrun it\n"
	p := testutil.WriteNote(t, root, "Doc.md", content)
	_, err := svc.Sync(ctx, false)
	require.NoError(t, err)

	whole, err := svc.ResolveTransclusion(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, p, whole.Path)
	assert.Equal(t, content, whole.Content)

	sec, err := svc.ResolveTransclusion(ctx, "Doc#Setup")
	require.NoError(t, err)
	assert.Equal(t, "setup", sec.BlockID)
	assert.Equal(t, "## Setup\nstep 1\n### Detail\nfine print", sec.Content)

	last, err := svc.ResolveTransclusion(ctx, "Doc#usage")
	require.NoError(t, err)
	assert.Equal(t, "## Usage\nrun it", last.Content)

	_, err = svc.ResolveTransclusion(ctx, "Doc#missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.ResolveTransclusion(ctx, "Nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
