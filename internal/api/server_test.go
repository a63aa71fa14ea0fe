package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boardkit/boardpulse/internal/aggregator"
	"github.com/boardkit/boardpulse/internal/board"
	"github.com/boardkit/boardpulse/internal/board/memory"
	"github.com/boardkit/boardpulse/internal/config"
	"github.com/boardkit/boardpulse/internal/id/uuid"
	"github.com/boardkit/boardpulse/internal/indicator"
	"github.com/boardkit/boardpulse/internal/view"
)

type testEnv struct {
	server     *httptest.Server
	repo       *memory.Repository
	tracker    *view.Tracker
	indicators *indicator.Registry
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	repo := memory.NewRepository()
	tracker := view.NewTracker()
	indicators := indicator.NewRegistry()
	agg := aggregator.New(repo, nil, tracker, nil, zap.NewNop())
	srv := NewServer(repo, agg, tracker, indicators, uuid.New(), cfg, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{server: ts, repo: repo, tracker: tracker, indicators: indicators}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, raw
}

func seedEnvTask(t *testing.T, e *testEnv) {
	t.Helper()
	require.NoError(t, e.repo.Put(context.Background(), board.Task{
		ID:       "t-1",
		Category: "doing",
		Title:    "Ship release",
		Subtasks: []board.Subtask{
			{Title: "write changelog", Completed: true},
			{Title: "tag build", Completed: false},
			{Title: "announce", Completed: false},
		},
	}))
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	resp, _ := env.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	resp, raw := env.do(t, http.MethodPost, "/v1/boards/todo/tasks", map[string]any{
		"title": "Plan sprint",
		"subtasks": []map[string]any{
			{"title": "collect topics", "completed": true},
			{"title": "book room"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Task taskDTO `json:"task"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.NotEmpty(t, out.Task.ID)
	require.Equal(t, "todo", out.Task.Category)
	require.Equal(t, 50, out.Task.Progress.Percent)
	require.Equal(t, "1/2", out.Task.Progress.Label)

	stored, err := env.repo.Get(context.Background(), "todo", out.Task.ID)
	require.NoError(t, err)
	require.Len(t, stored.Subtasks, 2)

	_, registered := env.indicators.Lookup(out.Task.ID)
	require.True(t, registered, "creating a task must register its indicator")
}

func TestCreateTaskRejectsMissingTitle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	resp, _ := env.do(t, http.MethodPost, "/v1/boards/todo/tasks", map[string]any{
		"subtasks": []map[string]any{{"title": "x"}},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestToggleSubtask(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	seedEnvTask(t, env)

	resp, raw := env.do(t, http.MethodPost, "/v1/boards/doing/tasks/t-1/subtasks/1/toggle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Progress progressDTO `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, 2, out.Progress.Completed)
	require.Equal(t, 67, out.Progress.Percent)
	require.Equal(t, "2/3", out.Progress.Label)

	stored, err := env.repo.Get(context.Background(), "doing", "t-1")
	require.NoError(t, err)
	require.True(t, stored.Subtasks[1].Completed)
}

func TestToggleStatusMapping(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	seedEnvTask(t, env)

	cases := []struct {
		name string
		path string
		want int
	}{
		{"unknown task", "/v1/boards/doing/tasks/ghost/subtasks/0/toggle", http.StatusNotFound},
		{"index too large", "/v1/boards/doing/tasks/t-1/subtasks/9/toggle", http.StatusUnprocessableEntity},
		{"negative index", "/v1/boards/doing/tasks/t-1/subtasks/-1/toggle", http.StatusUnprocessableEntity},
		{"non-numeric index", "/v1/boards/doing/tasks/t-1/subtasks/first/toggle", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := env.do(t, http.MethodPost, tc.path, nil)
			require.Equal(t, tc.want, resp.StatusCode)
		})
	}

	// Failed toggles must not have mutated anything.
	stored, err := env.repo.Get(context.Background(), "doing", "t-1")
	require.NoError(t, err)
	require.False(t, stored.Subtasks[1].Completed)
}

func TestGetProgress(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	seedEnvTask(t, env)

	resp, raw := env.do(t, http.MethodGet, "/v1/boards/doing/tasks/t-1/progress", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Progress progressDTO `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, progressDTO{Completed: 1, Total: 3, Percent: 33, Label: "1/3"}, out.Progress)
}

func TestReplaceSubtasks(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	seedEnvTask(t, env)

	resp, raw := env.do(t, http.MethodPut, "/v1/boards/doing/tasks/t-1/subtasks", []map[string]any{
		{"title": "only step", "completed": true},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Progress progressDTO `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, 100, out.Progress.Percent)

	stored, err := env.repo.Get(context.Background(), "doing", "t-1")
	require.NoError(t, err)
	require.Equal(t, []board.Subtask{{Title: "only step", Completed: true}}, stored.Subtasks)
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	seedEnvTask(t, env)

	resp, _ := env.do(t, http.MethodDelete, "/v1/boards/doing/tasks/t-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err := env.repo.Get(context.Background(), "doing", "t-1")
	require.ErrorIs(t, err, board.ErrNotFound)
	_, registered := env.indicators.Lookup("t-1")
	require.False(t, registered, "deleting a task must drop its indicator")

	resp, _ = env.do(t, http.MethodDelete, "/v1/boards/doing/tasks/t-1", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListTasks(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	seedEnvTask(t, env)
	require.NoError(t, env.repo.Put(context.Background(), board.Task{
		ID: "t-2", Category: "doing", Title: "Other",
	}))

	resp, raw := env.do(t, http.MethodGet, "/v1/boards/doing/tasks", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Tasks []taskDTO `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out.Tasks, 2)
}

func TestViewLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	seedEnvTask(t, env)

	// No render before the view is opened.
	resp, _ := env.do(t, http.MethodGet, "/v1/views/t-1", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/v1/views/t-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A toggle while open refreshes the rendered snapshot.
	resp, _ = env.do(t, http.MethodPost, "/v1/boards/doing/tasks/t-1/subtasks/2/toggle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := env.do(t, http.MethodGet, "/v1/views/t-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		View viewDTO `json:"view"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, "doing", out.View.Category)
	require.True(t, out.View.Task.Subtasks[2].Completed)

	resp, _ = env.do(t, http.MethodDelete, "/v1/views/t-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, env.tracker.IsOpen("t-1"))
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()

	cfg := config.Config{}
	cfg.Auth.Enabled = true
	cfg.Auth.APIKey = "secret"
	env := newTestEnv(t, cfg)

	resp, _ := env.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret")
	authed, err := env.server.Client().Do(req)
	require.NoError(t, err)
	require.NoError(t, authed.Body.Close())
	require.Equal(t, http.StatusOK, authed.StatusCode)

	resp, _ = env.do(t, http.MethodGet, fmt.Sprintf("/healthz?api_key=%s", "secret"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
