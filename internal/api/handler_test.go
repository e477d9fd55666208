package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/foodbuddy-agent/internal/agent"
	"github.com/avvvet/foodbuddy-agent/internal/llm"
	"github.com/avvvet/foodbuddy-agent/internal/memory"
	"github.com/avvvet/foodbuddy-agent/internal/models"
	"github.com/avvvet/foodbuddy-agent/internal/prompts"
)

type smallTalkProvider struct{}

func (smallTalkProvider) Generate(_ context.Context, req *llm.LLMRequest) (*llm.LLMResponse, error) {
	if req.SystemPrompt == prompts.IntentSystemPrompt {
		return &llm.LLMResponse{Content: "unknown"}, nil
	}
	return &llm.LLMResponse{Content: "Anything else?"}, nil
}

func newTestServer(t *testing.T, pinned string) (*echo.Echo, *memory.Manager) {
	t.Helper()

	store, err := memory.NewFileStore(t.TempDir())
	require.NoError(t, err)
	manager := memory.NewManager(store, agent.Dependencies{Provider: smallTalkProvider{}})

	e := echo.New()
	NewHandler(manager, pinned).RegisterRoutes(e)
	return e, manager
}

func do(e *echo.Echo, method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestChatLifecycle(t *testing.T) {
	e, _ := newTestServer(t, "")

	rec := do(e, http.MethodPost, "/chat", "alice", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[models.ChatResponse](t, rec)
	assert.Equal(t, prompts.GreetingMessage, first.Response)
	assert.Equal(t, "alice", first.UserID)
	require.NotEmpty(t, first.SessionID)

	rec = do(e, http.MethodPost, "/chat", "alice", `{"message":"thanks","session_id":"`+first.SessionID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[models.ChatResponse](t, rec)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, "Anything else?", second.Response)

	rec = do(e, http.MethodGet, "/chat/sessions", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		UserID   string   `json:"user_id"`
		Sessions []string `json:"sessions"`
	}](t, rec)
	assert.Equal(t, []string{first.SessionID}, list.Sessions)

	rec = do(e, http.MethodGet, "/chat/sessions/"+first.SessionID+"/history", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[struct {
		Messages []models.ConversationMessage `json:"messages"`
	}](t, rec)
	require.Len(t, history.Messages, 4)
	assert.Equal(t, "hello", history.Messages[0].Content)
	assert.Equal(t, models.RoleAssistant, history.Messages[3].Role)

	rec = do(e, http.MethodDelete, "/chat/sessions/"+first.SessionID, "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(e, http.MethodDelete, "/chat/sessions/"+first.SessionID, "alice", "")
	require.Equal(t, http.StatusOK, rec.Code, "deleting twice is fine")

	rec = do(e, http.MethodGet, "/chat/sessions/"+first.SessionID+"/history", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	history = decode[struct {
		Messages []models.ConversationMessage `json:"messages"`
	}](t, rec)
	assert.Empty(t, history.Messages)
}

func TestDeleteAllSessions(t *testing.T) {
	e, manager := newTestServer(t, "")

	for i := 0; i < 2; i++ {
		rec := do(e, http.MethodPost, "/chat", "alice", `{"message":"hello"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, 2, manager.ActiveSessionCount())

	rec := do(e, http.MethodDelete, "/chat/sessions", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, manager.ActiveSessionCount())

	sessions, err := manager.ListSessions(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestUserHeader(t *testing.T) {
	e, _ := newTestServer(t, "alice")

	rec := do(e, http.MethodGet, "/chat/sessions", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/chat/sessions", "mallory", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodGet, "/chat/sessions", "alice", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatRejectsBadInput(t *testing.T) {
	e, _ := newTestServer(t, "")

	rec := do(e, http.MethodPost, "/chat", "alice", `{"message":"   "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[models.ChatResponse](t, rec)
	require.NotNil(t, resp.ErrorCode)
	assert.Equal(t, models.ErrorInvalidRequest, *resp.ErrorCode)

	rec = do(e, http.MethodPost, "/chat", "alice", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/chat/sessions/bad:id/history", "alice", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type brokenSessions struct {
	Sessions
}

func (brokenSessions) Process(_ context.Context, _, _, sessionID string) (string, string, error) {
	if sessionID == "" {
		sessionID = "generated-1"
	}
	return "", sessionID, errors.New("redis unavailable")
}

func (brokenSessions) ActiveSessionCount() int { return 0 }

func TestChatStoreFailure(t *testing.T) {
	e := echo.New()
	h := NewHandler(brokenSessions{}, "")

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "alice")

	require.NoError(t, h.Chat(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decode[models.ChatResponse](t, rec)
	require.NotNil(t, resp.ErrorCode)
	assert.Equal(t, models.ErrorProcessingFailed, *resp.ErrorCode)
	assert.Equal(t, "generated-1", resp.SessionID)
	assert.NotContains(t, rec.Body.String(), "redis unavailable")
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t, "")

	rec := do(e, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(0), body["active_sessions"])
}
