package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/micro-nova/taskd/internal/api"
	"github.com/micro-nova/taskd/internal/auth"
	"github.com/micro-nova/taskd/internal/config"
	"github.com/micro-nova/taskd/internal/controller"
	"github.com/micro-nova/taskd/internal/events"
	"github.com/micro-nova/taskd/internal/filelock"
	"github.com/micro-nova/taskd/internal/models"
	"github.com/micro-nova/taskd/internal/store"
)

type testEnv struct {
	srv      *httptest.Server
	bus      *events.Bus
	tasks    *store.Store[models.Task]
	statuses *store.Store[models.Status]
	dir      string
}

// newTestEnv spins up a full router over stores in a temp dir.
func newTestEnv(t *testing.T, opts api.Options, authn api.Authenticator) *testEnv {
	t.Helper()
	dir := t.TempDir()
	lock := store.WithLockOptions(filelock.WithTimeout(200*time.Millisecond), filelock.WithRetryInterval(20*time.Millisecond))
	tasks := store.New(filepath.Join(dir, "tasks.json"), models.TaskID, lock)
	statuses := store.New(filepath.Join(dir, "statuses.json"), models.StatusID, lock)
	ctrl := controller.New(tasks, statuses, controller.WithIdentity("test", "testhost"))
	bus := events.NewBus()

	if opts.CORS.AllowedMethods == nil {
		opts.CORS = config.Default().CORS
	}
	srv := httptest.NewServer(api.NewRouter(ctrl, authn, bus, opts))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, bus: bus, tasks: tasks, statuses: statuses, dir: dir}
}

func newTestServer(t *testing.T) *testEnv {
	return newTestEnv(t, api.Options{}, nil)
}

// do is a convenience helper for making requests to the test server.
func do(t *testing.T, env *testEnv, method, path, body string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, env.srv.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("NewRequest %s %s: %v", method, path, err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := env.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Do %s %s: %v", method, path, err)
	}
	return resp
}

// decodeJSON reads and decodes a JSON response body into v.
func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
}

// requireStatus fails the test if the response status doesn't match.
func requireStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("status = %d, want %d; body: %s", resp.StatusCode, expected, body)
	}
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body models.AppError
	decodeJSON(t, resp, &body)
	return body.Code
}

// --- Tasks ---

func TestTasksEmpty(t *testing.T) {
	env := newTestServer(t)

	resp := do(t, env, "GET", "/api/tasks", "")
	requireStatus(t, resp, http.StatusOK)
	var tasks []models.Task
	decodeJSON(t, resp, &tasks)
	if tasks == nil || len(tasks) != 0 {
		t.Errorf("GET /api/tasks = %v, want []", tasks)
	}
}

func TestCreateListDeleteTask(t *testing.T) {
	env := newTestServer(t)

	resp := do(t, env, "POST", "/api/tasks", `{"text":"buy <milk>","statusId":"status-1"}`)
	requireStatus(t, resp, http.StatusCreated)
	var created models.Task
	decodeJSON(t, resp, &created)
	if created.Text != "buy &lt;milk&gt;" || created.StatusID != "status-1" || created.ID == "" || created.Created.IsZero() {
		t.Errorf("created = %+v", created)
	}

	resp = do(t, env, "GET", "/api/tasks/"+created.ID, "")
	requireStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = do(t, env, "GET", "/api/tasks", "")
	requireStatus(t, resp, http.StatusOK)
	var tasks []models.Task
	decodeJSON(t, resp, &tasks)
	if len(tasks) != 1 || tasks[0].ID != created.ID {
		t.Fatalf("tasks = %+v", tasks)
	}

	resp = do(t, env, "DELETE", "/api/tasks/"+created.ID, "")
	requireStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = do(t, env, "DELETE", "/api/tasks/"+created.ID, "")
	requireStatus(t, resp, http.StatusNotFound)
	if code := errorCode(t, resp); code != "NOT_FOUND" {
		t.Errorf("error = %q, want NOT_FOUND", code)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestServer(t)
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing text", `{"statusId":"s"}`, "text"},
		{"blank text", `{"text":"   ","statusId":"s"}`, "text"},
		{"too long", `{"text":"` + strings.Repeat("x", 501) + `","statusId":"s"}`, "text"},
		{"missing status", `{"text":"ok"}`, "statusId"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, env, "POST", "/api/tasks", tc.body)
			requireStatus(t, resp, http.StatusBadRequest)
			var body models.AppError
			decodeJSON(t, resp, &body)
			if body.Field != tc.field {
				t.Errorf("field = %q, want %q", body.Field, tc.field)
			}
		})
	}

	resp := do(t, env, "POST", "/api/tasks", `{not json`)
	requireStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestClearAndReloadTasks(t *testing.T) {
	env := newTestServer(t)
	for _, text := range []string{"a", "b"} {
		resp := do(t, env, "POST", "/api/tasks", `{"text":"`+text+`","statusId":"s"}`)
		requireStatus(t, resp, http.StatusCreated)
		resp.Body.Close()
	}

	// Another process rewrites the file behind the server's back.
	if err := os.WriteFile(env.tasks.Path(), []byte(`[{"id":"x","text":"external","created":"2024-01-15T10:30:00Z","statusId":"s"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	resp := do(t, env, "POST", "/api/tasks/reload", "")
	requireStatus(t, resp, http.StatusOK)
	var res models.ReloadResult
	decodeJSON(t, resp, &res)
	if res.Count != 1 || res.Message != "Reloaded 1 tasks from file" || res.Tasks[0].Text != "external" {
		t.Errorf("reload = %+v", res)
	}

	resp = do(t, env, "DELETE", "/api/tasks", "")
	requireStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	data, err := os.ReadFile(env.tasks.Path())
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("file after clear = %q, want []", data)
	}
}

// --- Statuses ---

func TestStatusesCRUD(t *testing.T) {
	env := newTestServer(t)

	resp := do(t, env, "POST", "/api/statuses", `{"label":"Open","color":"#4a90e2"}`)
	requireStatus(t, resp, http.StatusCreated)
	var open models.Status
	decodeJSON(t, resp, &open)
	if !strings.HasPrefix(open.ID, "status-") {
		t.Errorf("ID = %q", open.ID)
	}

	resp = do(t, env, "POST", "/api/statuses", `{"label":"open","color":"#000000"}`)
	requireStatus(t, resp, http.StatusConflict)
	if code := errorCode(t, resp); code != "CONFLICT" {
		t.Errorf("error = %q, want CONFLICT", code)
	}

	resp = do(t, env, "POST", "/api/statuses", `{"label":"Done","color":"green"}`)
	requireStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = do(t, env, "PUT", "/api/statuses/"+open.ID, `{"label":"In progress","color":"#f5a623"}`)
	requireStatus(t, resp, http.StatusOK)
	var upd models.Status
	decodeJSON(t, resp, &upd)
	if upd.ID != open.ID || upd.Label != "In progress" {
		t.Errorf("updated = %+v", upd)
	}

	resp = do(t, env, "PUT", "/api/statuses/status-missing", `{"label":"X","color":"#000000"}`)
	requireStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = do(t, env, "GET", "/api/statuses/"+open.ID, "")
	requireStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = do(t, env, "DELETE", "/api/statuses/"+open.ID, "")
	requireStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = do(t, env, "DELETE", "/api/statuses/"+open.ID, "")
	requireStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = do(t, env, "GET", "/api/statuses", "")
	requireStatus(t, resp, http.StatusOK)
	var all []models.Status
	decodeJSON(t, resp, &all)
	if len(all) != 0 {
		t.Errorf("statuses = %+v, want empty", all)
	}
}

// --- System ---

func TestGetInfo(t *testing.T) {
	env := newTestServer(t)
	resp := do(t, env, "POST", "/api/tasks", `{"text":"a","statusId":"s"}`)
	requireStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = do(t, env, "GET", "/api/info", "")
	requireStatus(t, resp, http.StatusOK)
	var info models.Info
	decodeJSON(t, resp, &info)
	if info.Version != "test" || info.Hostname != "testhost" || info.Tasks != 1 || info.Statuses != 0 {
		t.Errorf("info = %+v", info)
	}
}

// --- Store failures ---

func TestLockTimeoutReturns503(t *testing.T) {
	env := newTestServer(t)
	if err := os.WriteFile(env.tasks.Path(), []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(env.tasks.Path())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	l, err := filelock.Acquire(context.Background(), f, filelock.Exclusive)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Release()

	resp := do(t, env, "GET", "/api/tasks", "")
	requireStatus(t, resp, http.StatusServiceUnavailable)
	if got := resp.Header.Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
	if code := errorCode(t, resp); code != "UNAVAILABLE" {
		t.Errorf("error = %q, want UNAVAILABLE", code)
	}
}

func TestMalformedFileReturns500(t *testing.T) {
	env := newTestServer(t)
	if err := os.WriteFile(env.statuses.Path(), []byte(`{"id":"x"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	resp := do(t, env, "GET", "/api/statuses", "")
	requireStatus(t, resp, http.StatusInternalServerError)
	if code := errorCode(t, resp); code != "INTERNAL" {
		t.Errorf("error = %q, want INTERNAL", code)
	}
}

// --- Middleware ---

func TestCORSPreflight(t *testing.T) {
	env := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, env.srv.URL+"/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := env.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
	if got := resp.Header.Get("Access-Control-Max-Age"); got != "3600" {
		t.Errorf("Max-Age = %q, want 3600", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(got, "PUT") {
		t.Errorf("Allow-Methods = %q, want PUT included", got)
	}
}

func TestCORSRestrictedOrigins(t *testing.T) {
	cors := config.Default().CORS
	cors.AllowedOrigins = []string{"https://app.example.com"}
	cors.AllowCredentials = true
	env := newTestEnv(t, api.Options{CORS: cors}, nil)

	for origin, want := range map[string]string{
		"https://app.example.com":  "https://app.example.com",
		"https://evil.example.com": "",
	} {
		req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/api/tasks", nil)
		req.Header.Set("Origin", origin)
		resp, err := env.srv.Client().Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != want {
			t.Errorf("origin %s: Allow-Origin = %q, want %q", origin, got, want)
		}
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, api.Options{RateLimit: config.RateLimitConfig{RPS: 0.5, Burst: 2}}, nil)

	for i := 0; i < 2; i++ {
		resp := do(t, env, "GET", "/api/tasks", "")
		requireStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}
	resp := do(t, env, "GET", "/api/tasks", "")
	requireStatus(t, resp, http.StatusTooManyRequests)
	if got := resp.Header.Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}
	resp.Body.Close()
}

func TestAPIKeyAuth(t *testing.T) {
	keysPath := filepath.Join(t.TempDir(), "keys.json")
	if err := os.WriteFile(keysPath, []byte(`{"ci":{"key":"s3cret"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	authSvc, err := auth.NewService(keysPath)
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	t.Cleanup(authSvc.Close)
	env := newTestEnv(t, api.Options{}, authSvc)

	resp := do(t, env, "GET", "/api/tasks", "")
	requireStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/api/tasks", nil)
	req.Header.Set(auth.HeaderAPIKey, "s3cret")
	resp, err = env.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	requireStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = do(t, env, "GET", "/api/info?api-key=s3cret", "")
	requireStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

// --- SSE ---

func TestSSESubscribe(t *testing.T) {
	env := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.srv.URL+"/api/subscribe", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	client := &http.Client{Transport: &http.Transport{DisableCompression: true}}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	evc := make(chan models.ChangeEvent, 8)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var ev models.ChangeEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err == nil {
				evc <- ev
			}
		}
		close(evc)
	}()

	next := func() models.ChangeEvent {
		t.Helper()
		select {
		case ev, ok := <-evc:
			if !ok {
				t.Fatal("stream closed")
			}
			return ev
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for SSE event")
		}
		return models.ChangeEvent{}
	}

	if ev := next(); ev.Collection != models.CollectionTasks || ev.Count != 0 {
		t.Errorf("first event = %+v", ev)
	}
	if ev := next(); ev.Collection != models.CollectionStatuses {
		t.Errorf("second event = %+v", ev)
	}

	// The subscription is registered before the initial events are written.
	env.bus.Publish(models.ChangeEvent{Collection: models.CollectionTasks, Count: 7, At: models.Now()})
	if ev := next(); ev.Count != 7 {
		t.Errorf("published event = %+v", ev)
	}
}
