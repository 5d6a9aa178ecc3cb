package kernel

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimeralabs/chimera/internal/adapters/duckdb"
	appconfig "github.com/chimeralabs/chimera/internal/config"
	"github.com/chimeralabs/chimera/internal/core/domain"
	"github.com/chimeralabs/chimera/internal/core/services"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	repo, err := duckdb.NewRepository(t.TempDir() + "/kernel.db")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	bus := services.NewEventBus(logger)
	tracer := services.NewTraceCollector(logger, bus, repo)
	convStore := services.NewConversationStore(repo, 16)

	os.Setenv("CHIMERA_SECRET_KEY", "test-key-for-kernel")
	t.Cleanup(func() { os.Unsetenv("CHIMERA_SECRET_KEY") })
	secretKey, err := appconfig.NewSecretKey()
	require.NoError(t, err)
	settings, err := appconfig.NewSettingsStore(logger, repo, secretKey)
	require.NoError(t, err)

	server := NewServer(logger, nil, bus, settings, convStore, tracer, nil, repo)
	return server.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Body.Len() > 0 && strings.HasPrefix(w.Body.String(), "{") {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func TestServer_Health(t *testing.T) {
	handler := newTestHandler(t)
	w, resp := doJSON(t, handler, "GET", "/healthz", "")
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "ok", resp["status"])
}

func TestServer_PersonaCRUD(t *testing.T) {
	handler := newTestHandler(t)

	w, created := doJSON(t, handler, "POST", "/v1/personas", `{"name":"Pirate","system_prompt":"You are a pirate."}`)
	require.Equal(t, 201, w.Code)
	id, ok := created["id"].(string)
	require.True(t, ok)

	w, fetched := doJSON(t, handler, "GET", "/v1/personas/"+id, "")
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "Pirate", fetched["name"])

	w, updated := doJSON(t, handler, "PUT", "/v1/personas/"+id, `{"description":"arr"}`)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "arr", updated["description"])

	w, _ = doJSON(t, handler, "DELETE", "/v1/personas/"+id, "")
	require.Equal(t, 204, w.Code)

	w, _ = doJSON(t, handler, "GET", "/v1/personas/"+id, "")
	require.Equal(t, 404, w.Code)
}

func TestServer_BuiltinPersonaIsProtected(t *testing.T) {
	handler := newTestHandler(t)

	w, _ := doJSON(t, handler, "PUT", "/v1/personas/pers-jarvis", `{"name":"Hacked"}`)
	assert.Equal(t, 403, w.Code)

	w, _ = doJSON(t, handler, "DELETE", "/v1/personas/pers-jarvis", "")
	assert.Equal(t, 404, w.Code)
}

func TestServer_Notes(t *testing.T) {
	handler := newTestHandler(t)

	w, _ := doJSON(t, handler, "POST", "/v1/notes", `{"title":"todo","content":"buy milk"}`)
	require.Equal(t, 201, w.Code)

	w, _ = doJSON(t, handler, "POST", "/v1/notes", `{"title":"","content":"no title"}`)
	assert.Equal(t, 400, w.Code)

	req := httptest.NewRequest("GET", "/v1/notes", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var notes []domain.Note
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, "todo", notes[0].Title)
}

func TestServer_SettingsMaskSecrets(t *testing.T) {
	handler := newTestHandler(t)

	body := `{"providers":{"llm":{"mode":"remote","remote_url":"https://api.example.com/v1","api_key":"sk-secret-1234"}}}`
	w, _ := doJSON(t, handler, "PUT", "/v1/settings", body)
	require.Equal(t, 200, w.Code)

	w, resp := doJSON(t, handler, "GET", "/v1/settings", "")
	require.Equal(t, 200, w.Code)

	providers := resp["providers"].(map[string]interface{})
	llm := providers["llm"].(map[string]interface{})
	assert.Equal(t, "remote", llm["mode"])
	assert.Equal(t, "****1234", llm["api_key"])
}

func TestServer_ConversationNotFound(t *testing.T) {
	handler := newTestHandler(t)
	w, _ := doJSON(t, handler, "GET", "/v1/conversations/conv-missing", "")
	assert.Equal(t, 404, w.Code)
}

func TestServer_ChatRejectsEmptyMessage(t *testing.T) {
	handler := newTestHandler(t)
	w, resp := doJSON(t, handler, "POST", "/v1/chat", `{"message":"  "}`)
	require.Equal(t, 400, w.Code)
	assert.Contains(t, resp["error"], "message is required")
}
