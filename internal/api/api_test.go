package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/recurrence"
	"github.com/starford/quire/internal/sse"
	"github.com/starford/quire/internal/testutil"
)

type recordedEvents struct {
	synced  []*index.SyncStats
	toggled []sse.TodoToggled
}

func (e *recordedEvents) Synced(s *index.SyncStats) { e.synced = append(e.synced, s) }
func (e *recordedEvents) TodoToggled(t sse.TodoToggled) { e.toggled = append(e.toggled, t) }

type testEnv struct {
	root   string
	svc    *noteservice.Service
	router http.Handler
	events *recordedEvents
}

func newEnv(t *testing.T, cfg RouterConfig) *testEnv {
	t.Helper()
	root, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	day := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)
	rec := recurrence.NewEngine(store, db, testutil.Logger(),
		recurrence.WithClock(func() time.Time { return day }))
	svc := noteservice.NewService(store, db, rec, testutil.Logger())

	ev := &recordedEvents{}
	if cfg.Events == nil {
		cfg.Events = ev
	}
	if cfg.SearchLimit == 0 {
		cfg.SearchLimit = 20
	}
	return &testEnv{root: root, svc: svc, router: NewRouter(svc, cfg), events: ev}
}

func (e *testEnv) do(t *testing.T, method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) sync(t *testing.T) {
	t.Helper()
	_, err := e.svc.Sync(context.Background(), false)
	require.NoError(t, err)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestCreateAndGetNote(t *testing.T) {
	env := newEnv(t, RouterConfig{})

	w := env.do(t, http.MethodPost, "/notes", map[string]string{"path": "topics/hello.md", "content": "# Hello\n#greeting"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/notes/topics%2Fhello.md", nil)
	require.Equal(t, http.StatusOK, w.Code)
	note := decode[NoteDetail](t, w)
	assert.Equal(t, filepath.Join(env.root, "topics", "hello.md"), note.Path)
	assert.Equal(t, "hello", note.Title)
	assert.Equal(t, []string{"greeting"}, note.Tags)
	assert.Equal(t, `"`+note.Checksum+`"`, w.Header().Get("ETag"))
}

func TestCreateNote_Validation(t *testing.T) {
	env := newEnv(t, RouterConfig{})

	w := env.do(t, http.MethodPost, "/notes", map[string]string{"path": "x.md"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "content")

	req := httptest.NewRequest(http.MethodPost, "/notes", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w = env.do(t, http.MethodPost, "/notes", map[string]string{"path": "../escape.md", "content": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateDuplicate(t *testing.T) {
	env := newEnv(t, RouterConfig{})
	body := map[string]string{"path": "dup.md", "content": "a"}
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/notes", body).Code)
	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, "/notes", body).Code)
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	env := newEnv(t, RouterConfig{})
	w := env.do(t, http.MethodPost, "/notes", map[string]string{"path": "lock.md", "content": "v1"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[NoteDetail](t, w)

	update := map[string]string{"content": "v2"}
	w = env.do(t, http.MethodPut, "/notes/lock.md", update, "If-Match", `"`+created.Checksum+`"`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPut, "/notes/lock.md", update, "If-Match", created.Checksum)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPut, "/notes/lock.md", map[string]string{"content": "v3"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPut, "/notes/missing.md", update)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteNote(t *testing.T) {
	env := newEnv(t, RouterConfig{})
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/notes", map[string]string{"path": "gone.md", "content": "x"}).Code)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/notes/gone.md", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/notes/gone.md", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/notes/gone.md", nil).Code)
}

func TestMoveNote(t *testing.T) {
	env := newEnv(t, RouterConfig{})
	src := testutil.WriteNote(t, env.root, "src.md", "see [[idea]]")
	testutil.WriteNote(t, env.root, "inbox/idea.md", "an idea")
	env.sync(t)

	w := env.do(t, http.MethodPost, "/notes/move", map[string]string{"from": "inbox/idea.md", "to": "topics/idea.md"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	moved := decode[NoteDetail](t, w)
	assert.Equal(t, []string{src}, moved.Backlinks)

	w = env.do(t, http.MethodPost, "/notes/move", map[string]string{"from": "a.md", "to": "a.md"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListNotes(t *testing.T) {
	env := newEnv(t, RouterConfig{})
	testutil.WriteNote(t, env.root, "a.md", "#x")
	testutil.WriteNote(t, env.root, "b.md", "#y")
	testutil.WriteNote(t, env.root, "c.md", "#x")
	env.sync(t)

	w := env.do(t, http.MethodGet, "/notes?tag=x&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[NoteListResponse](t, w)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Notes, 1)
	assert.Equal(t, "a", resp.Notes[0].Title)
}

func TestSearchEndpoint(t *testing.T) {
	env := newEnv(t, RouterConfig{})
	testutil.WriteNote(t, env.root, "golang.md", "Go has goroutines")
	testutil.WriteNote(t, env.root, "rust.md", "Rust has ownership")
	env.sync(t)

	w := env.do(t, http.MethodGet, "/search?q=goroutines", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[SearchResponse](t, w)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, filepath.Join(env.root, "golang.md"), resp.Results[0].Path)

	w = env.do(t, http.MethodGet, "/search?q=nothingmatches", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[SearchResponse](t, w).Results)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/search", nil).Code)
}

func TestLinkEndpoints(t *testing.T) {
	env := newEnv(t, RouterConfig{})
	a := testutil.WriteNote(t, env.root, "a.md", "[[B]] and [[ghost]]")
	b := testutil.WriteNote(t, env.root, "b.md", "[[c]]")
	c := testutil.WriteNote(t, env.root, "c.md", "")
	env.sync(t)

	w := env.do(t, http.MethodGet, "/backlinks/b.md", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{a}, decode[PathsResponse](t, w).Paths)

	w = env.do(t, http.MethodGet, "/links/a.md", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{b}, decode[PathsResponse](t, w).Paths)

	w = env.do(t, http.MethodGet, "/backlinks/a.md", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{}, decode[PathsResponse](t, w).Paths)

	w = env.do(t, http.MethodGet, "/graph", nil)
	require.Equal(t, http.StatusOK, w.Code)
	g := decode[models.Graph](t, w)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 2)

	w = env.do(t, http.MethodGet, "/graph/local/c.md", nil)
	require.Equal(t, http.StatusOK, w.Code)
	local := decode[models.Graph](t, w)
	var ids []string
	for _, n := range local.Nodes {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []string{b, c}, ids)
}

func TestTagEndpoints(t *testing.T) {
	env := newEnv(t, RouterConfig{})
	p := testutil.WriteNote(t, env.root, "n.md", "#work #café")
	env.sync(t)

	w := env.do(t, http.MethodGet, "/tags", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"café", "work"}, decode[TagsResponse](t, w).Tags)

	w = env.do(t, http.MethodGet, "/tags/work/notes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{p}, decode[PathsResponse](t, w).Paths)
}

func TestTodoEndpoints(t *testing.T) {
	env := newEnv(t, RouterConfig{})
	p := testutil.WriteNote(t, env.root, "tasks.md", "- [ ] write @due(2024-03-20) !high\n- [x] read\n")
	env.sync(t)

	w := env.do(t, http.MethodGet, "/todos?incomplete=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	todos := decode[TodosResponse](t, w).Todos
	require.Len(t, todos, 1)
	assert.Equal(t, "2024-03-20", todos[0].DueDate)
	assert.Equal(t, models.PriorityHigh, todos[0].Priority)

	w = env.do(t, http.MethodGet, "/todos", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[TodosResponse](t, w).Todos, 2)

	w = env.do(t, http.MethodPost, "/todos/toggle", map[string]any{"path": "tasks.md", "line": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[noteservice.ToggleResult](t, w).Completed)
	require.Len(t, env.events.toggled, 1)
	assert.True(t, env.events.toggled[0].Completed)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "- [x] write @due(2024-03-20) !high\n- [x] read\n", string(data))

	w = env.do(t, http.MethodPost, "/todos/toggle", map[string]any{"path": "tasks.md", "line": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodPost, "/todos/toggle", map[string]any{"path": "tasks.md", "line": 9})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBlocksAndTransclusion(t *testing.T) {
	env := newEnv(t, RouterConfig{})
	testutil.WriteNote(t, env.root, "doc.md", "# Doc\n## Setup Steps\nrun\n")
	env.sync(t)

	w := env.do(t, http.MethodGet, "/blocks/doc.md", nil)
	require.Equal(t, http.StatusOK, w.Code)
	blocks := decode[BlocksResponse](t, w).Blocks
	require.Len(t, blocks, 2)
	assert.Equal(t, "setup-steps", blocks[1].BlockID)

	w = env.do(t, http.MethodGet, "/blocks/doc.md?id=setup-steps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[models.Block](t, w).LineNumber)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/blocks/doc.md?id=nope", nil).Code)

	w = env.do(t, http.MethodGet, "/transclusion?link=Doc%23Setup%20Steps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "## Setup Steps\nrun", decode[noteservice.Transclusion](t, w).Content)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/transclusion", nil).Code)
}

func TestSyncAndStats(t *testing.T) {
	env := newEnv(t, RouterConfig{})
	testutil.WriteNote(t, env.root, "a.md", "[[b]] #t")
	testutil.WriteNote(t, env.root, "b.md", "")

	w := env.do(t, http.MethodPost, "/sync", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[index.SyncStats](t, w).Created)
	require.Len(t, env.events.synced, 1)

	w = env.do(t, http.MethodPost, "/sync?force=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	// Forgotten mtimes make every note look new again.
	assert.Equal(t, 2, decode[index.SyncStats](t, w).Created)

	w = env.do(t, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, index.Stats{Notes: 2, Links: 1, Tags: 1}, decode[index.Stats](t, w))
}

func TestAuthMiddleware(t *testing.T) {
	env := newEnv(t, RouterConfig{AuthEnabled: true, Token: "secret"})

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/notes", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/notes", nil, "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/notes", nil, "Authorization", "Bearer secret").Code)

	open := newEnv(t, RouterConfig{})
	assert.Equal(t, http.StatusOK, open.do(t, http.MethodGet, "/notes", nil).Code)
}

func TestEventsStreamIsAuthProtected(t *testing.T) {
	broker := sse.NewBroker(time.Second)
	t.Cleanup(broker.Close)
	env := newEnv(t, RouterConfig{AuthEnabled: true, Token: "secret", Stream: broker})

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/events", nil).Code)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		env.router.ServeHTTP(w, req)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
}
