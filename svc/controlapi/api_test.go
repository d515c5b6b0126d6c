package controlapi_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tabloader/pkg/broadcast"
	"github.com/dmitrymomot/tabloader/pkg/requestid"
	"github.com/dmitrymomot/tabloader/pkg/settings"
	"github.com/dmitrymomot/tabloader/pkg/tabs/tabstest"
	"github.com/dmitrymomot/tabloader/svc/controlapi"
	"github.com/dmitrymomot/tabloader/svc/engine"
	"github.com/dmitrymomot/tabloader/svc/presenter"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type readOnlyStore struct {
	*settings.MemoryStore
}

func (readOnlyStore) Update(context.Context, map[settings.Key]string) error {
	return errors.New("read-only file system")
}

type fixture struct {
	eng     *engine.Engine
	browser *tabstest.Browser
	store   settings.Store
	srv     *httptest.Server
}

func setup(t *testing.T, store settings.Store, opts ...controlapi.Option) *fixture {
	t.Helper()
	updates := broadcast.NewMemoryBroadcaster[presenter.Presentation](4)
	t.Cleanup(func() { _ = updates.Close() })

	f := &fixture{browser: tabstest.NewBrowser(), store: store}
	f.eng = engine.New(f.browser, store, presenter.BroadcastSink{B: updates}, engine.WithGrace(0))
	f.browser.SetHandler(f.eng)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.eng.Run(ctx) }()

	// Stored settings use a non-default queue limit so that the load is
	// observable.
	require.Eventually(t, func() bool { return f.eng.Settings().QueueLimit == 30 }, waitFor, tick)

	api := controlapi.New(f.eng, append([]controlapi.Option{controlapi.WithUpdates(updates)}, opts...)...)
	f.srv = httptest.NewServer(api.Handle())
	t.Cleanup(func() {
		f.srv.Close()
		cancel()
		<-done
	})
	return f
}

func newStore() *settings.MemoryStore {
	cfg := settings.Default()
	cfg.QueueLimit = 30
	return settings.NewMemoryStore(cfg)
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "body has no data object: %v", body)
	return d
}

func TestStatus(t *testing.T) {
	t.Parallel()
	f := setup(t, newStore())

	resp, body := f.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(requestid.Header))

	d := data(t, body)
	assert.EqualValues(t, 30, d["settings"].(map[string]any)["queueLimit"])
	assert.EqualValues(t, 0, d["loader"].(map[string]any)["queue_length"])
	assert.Equal(t, presenter.TitleActive, d["presentation"].(map[string]any)["title"])
}

func TestQueue(t *testing.T) {
	t.Parallel()
	f := setup(t, newStore())
	ctx := context.Background()

	f.browser.Spawn(ctx, "https://example.com/1")
	second := f.browser.Spawn(ctx, "https://example.com/2")
	require.Eventually(t, func() bool { return len(f.eng.Queue()) == 1 }, waitFor, tick)

	resp, body := f.do(t, http.MethodGet, "/api/queue", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := data(t, body)

	reload := d["reload"].([]any)
	require.Len(t, reload, 1)
	entry := reload[0].(map[string]any)
	assert.EqualValues(t, second.ID, entry["tab_id"])
	assert.Equal(t, "https://example.com/2", entry["url"])
	assert.Empty(t, d["creation"])
}

func TestPause(t *testing.T) {
	t.Parallel()
	store := newStore()
	f := setup(t, store)
	ctx := context.Background()

	resp, body := f.do(t, http.MethodPost, "/api/pause", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, data(t, body)["paused"])

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, stored.IsPaused)

	resp, body = f.do(t, http.MethodPost, "/api/pause", `{"paused":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, data(t, body)["paused"])
	assert.False(t, f.eng.Settings().IsPaused)

	resp, _ = f.do(t, http.MethodPost, "/api/pause", `{"paused":"yes"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPause_NotPersisted(t *testing.T) {
	t.Parallel()
	f := setup(t, readOnlyStore{newStore()})

	resp, body := f.do(t, http.MethodPost, "/api/pause", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, true, data(t, body)["paused"])
	assert.Equal(t, false, body["meta"].(map[string]any)["persisted"])
	assert.True(t, f.eng.Settings().IsPaused)

	resp, _ = f.do(t, http.MethodPost, "/api/resume", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.False(t, f.eng.Settings().IsPaused)
}

func TestQueueControls(t *testing.T) {
	t.Parallel()
	f := setup(t, newStore())
	ctx := context.Background()

	f.browser.Spawn(ctx, "https://example.com/1")
	f.browser.Spawn(ctx, "https://example.com/2")
	third := f.browser.Spawn(ctx, "https://example.com/3")
	require.Eventually(t, func() bool { return len(f.eng.Queue()) == 2 }, waitFor, tick)

	resp, body := f.do(t, http.MethodPost, "/api/next", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, data(t, body)["skipped"])
	require.Len(t, f.eng.Queue(), 1)
	assert.Equal(t, third.ID, f.eng.Queue()[0].TabID)

	resp, _ = f.do(t, http.MethodPost, "/api/empty", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, f.eng.Queue())

	resp, body = f.do(t, http.MethodPost, "/api/next", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, data(t, body)["skipped"])

	resp, _ = f.do(t, http.MethodPost, "/api/resume", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSettings(t *testing.T) {
	t.Parallel()
	store := newStore()
	f := setup(t, store)
	ctx := context.Background()

	resp, body := f.do(t, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 30, data(t, body)["queueLimit"])
	assert.Equal(t, "none", data(t, body)["altClickMode"])

	t.Run("valid", func(t *testing.T) {
		resp, body := f.do(t, http.MethodPut, "/api/settings", `{"maxConcurrentTabs":2,"loadingDelay":250,"altClickMode":"queue"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		d := data(t, body)
		assert.EqualValues(t, 2, d["maxConcurrentTabs"])
		assert.EqualValues(t, 250, d["loadingDelay"])

		stored, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.MaxConcurrentTabs)
		assert.Equal(t, 250*time.Millisecond, stored.LoadingDelay)
		assert.Equal(t, settings.AltClickQueue, stored.AltClickMode)
	})

	t.Run("invalid values", func(t *testing.T) {
		resp, body := f.do(t, http.MethodPut, "/api/settings", `{"queueLimit":1000,"altClickMode":"always","maxConcurrentTabs":5}`)
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		e := body["error"].(map[string]any)
		assert.Equal(t, "validation_error", e["code"])
		details := e["details"].(map[string]any)
		assert.Contains(t, details, "queueLimit")
		assert.Contains(t, details, "altClickMode")
		assert.NotContains(t, details, "maxConcurrentTabs")

		assert.Equal(t, 2, f.eng.Settings().MaxConcurrentTabs)
	})

	t.Run("unknown key", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodPut, "/api/settings", `{"colour":"red"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong media type", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPut, f.srv.URL+"/api/settings", strings.NewReader("queueLimit=5"))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp, err := f.srv.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	})
}

func TestSettings_NotPersisted(t *testing.T) {
	t.Parallel()
	f := setup(t, readOnlyStore{newStore()})

	resp, body := f.do(t, http.MethodPut, "/api/settings", `{"queueLimit":40}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.EqualValues(t, 40, data(t, body)["queueLimit"])
	assert.Equal(t, 40, f.eng.Settings().QueueLimit)
}

func TestStream(t *testing.T) {
	t.Parallel()
	f := setup(t, newStore())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/api/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	waitLine := func(substr string) {
		t.Helper()
		deadline := time.After(waitFor)
		for {
			select {
			case l, ok := <-lines:
				require.True(t, ok, "stream ended before %q", substr)
				if strings.Contains(l, substr) {
					return
				}
			case <-deadline:
				require.Fail(t, "no stream line containing "+substr)
			}
		}
	}

	waitLine(`"paused":false`)

	_, err = f.eng.TogglePause(context.Background())
	require.NoError(t, err)
	waitLine(`"badge":"II"`)
}

func TestStream_RequiresDataStar(t *testing.T) {
	t.Parallel()
	f := setup(t, newStore())

	resp, body := f.do(t, http.MethodGet, "/api/stream", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "sse_requires_datastar", body["error"].(map[string]any)["code"])
}

func TestStream_WithoutUpdates(t *testing.T) {
	t.Parallel()
	eng := engine.New(tabstest.NewBrowser(), newStore(), presenter.LogSink{})
	srv := httptest.NewServer(controlapi.New(eng).Handle())
	t.Cleanup(srv.Close)
	t.Cleanup(eng.Close)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	var broken atomic.Bool
	check := func(context.Context) error {
		if broken.Load() {
			return errors.New("extension not connected")
		}
		return nil
	}
	mounted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	f := setup(t, newStore(),
		controlapi.WithReadinessChecks(check),
		controlapi.WithMount("/bridge", mounted),
	)

	resp, _ := f.do(t, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	broken.Store(true)
	resp, _ = f.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/bridge", "")
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestRemoteClients(t *testing.T) {
	t.Parallel()
	eng := engine.New(tabstest.NewBrowser(), newStore(), presenter.LogSink{})
	t.Cleanup(eng.Close)

	serve := func(api *controlapi.API) int {
		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		req.RemoteAddr = "203.0.113.7:40000"
		rec := httptest.NewRecorder()
		api.Handle().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, serve(controlapi.New(eng)))
	assert.Equal(t, http.StatusOK, serve(controlapi.New(eng, controlapi.WithAllowRemote(true))))
}
