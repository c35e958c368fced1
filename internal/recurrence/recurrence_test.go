package recurrence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/testutil"
)

func date(s string) time.Time {
	d, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		panic(err)
	}
	return d.Add(15 * time.Hour)
}

func TestNextOccurrence(t *testing.T) {
	// 2024-03-15 is a Friday.
	cases := []struct {
		pattern, today, want string
	}{
		{"daily", "2024-03-15", "2024-03-16"},
		{"weekly", "2024-03-15", "2024-03-22"},
		{"Weekly", "2024-12-28", "2025-01-04"},
		{"monthly", "2024-01-15", "2024-02-15"},
		{"monthly", "2024-12-10", "2025-01-10"},
		{"monthly", "2024-01-30", "2024-02-29"},
		{"friday", "2024-03-15", "2024-03-22"},
		{"monday", "2024-03-15", "2024-03-18"},
		{"THURSDAY", "2024-03-15", "2024-03-21"},
		{"sunday", "2024-03-15", "2024-03-17"},
	}
	for _, c := range cases {
		got, ok := NextOccurrence(c.pattern, date(c.today))
		require.True(t, ok, c.pattern)
		assert.Equal(t, c.want, got.Format(DateLayout), "%s from %s", c.pattern, c.today)
	}

	_, ok := NextOccurrence("fortnightly", date("2024-03-15"))
	assert.False(t, ok)
}

func TestRenderInstance(t *testing.T) {
	next := date("2024-03-22")
	todo := models.Todo{
		Content:  "water plants @due(2024-03-15) @every(weekly)",
		Priority: models.PriorityHigh,
	}
	assert.Equal(t, "- [ ] water plants @every(weekly) !high @due(2024-03-22)", RenderInstance(todo, &next))

	todo = models.Todo{Content: "stretch !low @every(daily)", Priority: models.PriorityLow}
	assert.Equal(t, "- [ ] stretch !low @every(daily)", RenderInstance(todo, nil))
}

func TestSpawn_CreatesDailyNote(t *testing.T) {
	root, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	e := NewEngine(store, db, testutil.Logger(), WithClock(func() time.Time { return date("2024-03-15") }))

	todo := models.Todo{
		NotePath:   filepath.Join(root, "chores.md"),
		LineNumber: 1,
		Content:    "take out trash @due(2024-03-15) @every(weekly)",
		Recurrence: "weekly",
	}
	path, err := e.Spawn(todo)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Daily Notes", "2024-03-15.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# 2024-03-15\n\n## Tasks\n\n- [ ] take out trash @every(weekly) @due(2024-03-22)\n", string(data))

	todos, err := db.TodosForNote(path)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "2024-03-22", todos[0].DueDate)
	assert.Equal(t, "weekly", todos[0].Recurrence)
	assert.False(t, todos[0].Completed)
}

func TestSpawn_AppendsToExistingNote(t *testing.T) {
	root, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	testutil.WriteNote(t, root, "Journal/2024-03-15.md", "existing line")
	e := NewEngine(store, db, testutil.Logger(),
		WithDailyDir("Journal"),
		WithClock(func() time.Time { return date("2024-03-15") }))

	path, err := e.Spawn(models.Todo{Content: "call mom @every(sunday)", Recurrence: "sunday", Priority: models.PriorityMedium})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing line\n- [ ] call mom @every(sunday) !medium @due(2024-03-17)\n", string(data))
}

func TestSpawn_RequiresPattern(t *testing.T) {
	_, store := testutil.TestVault(t)
	e := NewEngine(store, testutil.TestDB(t), testutil.Logger())
	_, err := e.Spawn(models.Todo{Content: "once"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
