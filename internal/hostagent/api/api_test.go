package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimyag/hostagent/internal/hostagent/command"
	"github.com/jimyag/hostagent/internal/hostagent/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingDispatcher struct {
	name    string
	payload json.RawMessage
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, name string, payload json.RawMessage) []json.RawMessage {
	d.name = name
	d.payload = payload
	return []json.RawMessage{json.RawMessage(`{"com.cloud.agent.api.Answer":{"result":true,"details":"ok"}}`)}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("default address", func(t *testing.T) {
		t.Parallel()

		api, err := New(&recordingDispatcher{}, "")
		require.NoError(t, err)
		assert.Equal(t, ":8250", api.server.Addr)
		assert.Equal(t, "API Server", api.Name())
	})

	t.Run("registered routes", func(t *testing.T) {
		t.Parallel()

		api, err := New(&recordingDispatcher{}, "127.0.0.1:0")
		require.NoError(t, err)

		routes := make(map[string]bool)
		for _, route := range api.engine.Routes() {
			routes[route.Method+" "+route.Path] = true
		}
		assert.True(t, routes["GET /api/HypervResource"])
		assert.True(t, routes["POST /api/HypervResource/:command"])
		assert.True(t, routes["GET /metrics"])
	})
}

func TestResource_Describe(t *testing.T) {
	t.Parallel()

	api, err := New(&recordingDispatcher{}, "")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/HypervResource", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "HypervResource controller running")
}

func TestResource_Execute(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{}
	api, err := New(d, "")
	require.NoError(t, err)

	body := `{"vmName":"i-2-3-VM","contextMap":{"job":"42"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/HypervResource/com.cloud.agent.api.StopCommand", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	api.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "com.cloud.agent.api.StopCommand", d.name)
	assert.JSONEq(t, body, string(d.payload))
	assert.JSONEq(t, `[{"com.cloud.agent.api.Answer":{"result":true,"details":"ok"}}]`, w.Body.String())
}

func TestResource_ExecuteMalformed(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{}
	api, err := New(d, "")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/HypervResource/StopCommand", strings.NewReader(`{"vmName":`))
	api.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, d.name, "dispatcher must not see malformed bodies")
}

func TestResource_UnsupportedCommand(t *testing.T) {
	t.Parallel()

	api, err := New(service.NewDispatcher(nil), "")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/HypervResource/com.cloud.agent.api.FooCommand",
		strings.NewReader(`{"contextMap":{"job":"7"}}`))
	api.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var answers []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answers))
	require.Len(t, answers, 1)
	raw, ok := answers[0][command.UnsupportedAnswer]
	require.True(t, ok)

	var ans struct {
		Result     bool              `json:"result"`
		Details    string            `json:"details"`
		ContextMap map[string]string `json:"contextMap"`
	}
	require.NoError(t, json.Unmarshal(raw, &ans))
	assert.False(t, ans.Result)
	assert.Contains(t, ans.Details, "com.cloud.agent.api.FooCommand")
	assert.Equal(t, "7", ans.ContextMap["job"])
}

func TestAPI_Metrics(t *testing.T) {
	t.Parallel()

	api, err := New(&recordingDispatcher{}, "")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestAPI_Run(t *testing.T) {
	t.Parallel()

	t.Run("run with context cancellation", func(t *testing.T) {
		t.Parallel()

		api, err := New(&recordingDispatcher{}, "127.0.0.1:0")
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			errCh <- api.Run(ctx)
		}()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if err != nil && strings.Contains(err.Error(), "operation not permitted") {
				t.Skip("Skipping Run test: socket operations not permitted in this environment")
			}
			assert.NoError(t, err, "Run should return nil when context is cancelled")
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return within timeout")
		}
	})

	t.Run("run with invalid address", func(t *testing.T) {
		t.Parallel()

		api, err := New(&recordingDispatcher{}, "invalid-address")
		require.NoError(t, err)

		err = api.Run(context.Background())
		assert.Error(t, err)
	})
}
