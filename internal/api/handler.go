// Package api serves the chat and session lifecycle endpoints over HTTP.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avvvet/foodbuddy-agent/internal/handlers"
	"github.com/avvvet/foodbuddy-agent/internal/memory"
	"github.com/avvvet/foodbuddy-agent/internal/models"
)

const userHeader = "X-User-ID"

// Sessions is the session lifecycle surface; *memory.Manager implements it.
type Sessions interface {
	handlers.SessionProcessor
	ListSessions(ctx context.Context, userID string) ([]string, error)
	History(ctx context.Context, userID, sessionID string) ([]models.ConversationMessage, error)
	ClearSession(ctx context.Context, userID, sessionID string) error
	ClearUserSessions(ctx context.Context, userID string) error
	ActiveSessionCount() int
}

// Handler handles HTTP requests.
type Handler struct {
	sessions Sessions
	chat     *handlers.ChatHandler
	// pinnedUserID, when set, is the only user this instance serves.
	pinnedUserID string
}

// NewHandler creates a new handler.
func NewHandler(sessions Sessions, pinnedUserID string) *Handler {
	return &Handler{
		sessions:     sessions,
		chat:         handlers.NewChatHandler(sessions),
		pinnedUserID: pinnedUserID,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	chat := e.Group("/chat", h.requireUser)
	chat.POST("", h.Chat)
	chat.GET("/sessions", h.ListSessions)
	chat.GET("/sessions/:session_id/history", h.GetHistory)
	chat.DELETE("/sessions/:session_id", h.DeleteSession)
	chat.DELETE("/sessions", h.DeleteUserSessions)
}

// requireUser resolves the caller from X-User-ID.
func (h *Handler) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.Request().Header.Get(userHeader)
		if userID == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "X-User-ID header is required"})
		}
		if h.pinnedUserID != "" && userID != h.pinnedUserID {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "user not served by this instance"})
		}
		if err := memory.ValidateID(userID); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		c.Set("user_id", userID)
		return next(c)
	}
}

func userID(c echo.Context) string {
	id, _ := c.Get("user_id").(string)
	return id
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":          "healthy",
		"active_sessions": h.sessions.ActiveSessionCount(),
	})
}

type chatBody struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// Chat runs one turn for the caller.
func (h *Handler) Chat(c echo.Context) error {
	var body chatBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, handlers.ErrorResponse(nil, models.ErrorParseError, "invalid request body"))
	}

	request := &models.ChatRequest{
		UserID:    userID(c),
		SessionID: body.SessionID,
		Message:   body.Message,
	}

	response, err := h.chat.ProcessChat(c.Request().Context(), request)
	if err != nil {
		log.Printf("ERROR: chat failed for user %s: %v", request.UserID, err)
		if response == nil {
			response = handlers.ErrorResponse(request, models.ErrorProcessingFailed, handlers.ProcessingFailedMessage)
		}
		return c.JSON(http.StatusInternalServerError, response)
	}
	if response.ErrorCode != nil {
		return c.JSON(http.StatusBadRequest, response)
	}
	return c.JSON(http.StatusOK, response)
}

// ListSessions lists the caller's sessions.
func (h *Handler) ListSessions(c echo.Context) error {
	user := userID(c)

	sessions, err := h.sessions.ListSessions(c.Request().Context(), user)
	if err != nil {
		log.Printf("ERROR: failed to list sessions for %s: %v", user, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list sessions"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user_id":  user,
		"sessions": sessions,
	})
}

// GetHistory returns a session's messages in chronological order.
func (h *Handler) GetHistory(c echo.Context) error {
	user := userID(c)
	sessionID := c.Param("session_id")

	messages, err := h.sessions.History(c.Request().Context(), user, sessionID)
	if errors.Is(err, memory.ErrInvalidID) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err != nil {
		log.Printf("ERROR: failed to load history for %s/%s: %v", user, sessionID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load history"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user_id":    user,
		"session_id": sessionID,
		"messages":   messages,
	})
}

// DeleteSession removes one session. Deleting a missing session succeeds.
func (h *Handler) DeleteSession(c echo.Context) error {
	user := userID(c)
	sessionID := c.Param("session_id")

	err := h.sessions.ClearSession(c.Request().Context(), user, sessionID)
	if errors.Is(err, memory.ErrInvalidID) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err != nil {
		log.Printf("ERROR: failed to delete session %s/%s: %v", user, sessionID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete session"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "session deleted"})
}

// DeleteUserSessions removes all of the caller's sessions.
func (h *Handler) DeleteUserSessions(c echo.Context) error {
	user := userID(c)

	if err := h.sessions.ClearUserSessions(c.Request().Context(), user); err != nil {
		log.Printf("ERROR: failed to delete sessions for %s: %v", user, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete sessions"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "all sessions deleted"})
}
