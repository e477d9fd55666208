package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/avvvet/foodbuddy-agent/internal/memory"
	"github.com/avvvet/foodbuddy-agent/internal/models"
	"github.com/avvvet/foodbuddy-agent/internal/prompts"
)

// ProcessingFailedMessage is the client-facing text for a turn that failed
// after validation. The cause is logged, never returned.
const ProcessingFailedMessage = "failed to process message"

// SessionProcessor runs one chat turn; *memory.Manager implements it.
type SessionProcessor interface {
	Process(ctx context.Context, userID, message, sessionID string) (string, string, error)
}

type ChatHandler struct {
	sessions SessionProcessor
}

func NewChatHandler(sessions SessionProcessor) *ChatHandler {
	return &ChatHandler{
		sessions: sessions,
	}
}

// ProcessChat validates the request and runs the turn. Invalid requests come
// back as an error envelope with a nil error. A failed turn returns the error
// together with a processing_failed envelope carrying the session id in use.
func (h *ChatHandler) ProcessChat(ctx context.Context, request *models.ChatRequest) (*models.ChatResponse, error) {
	if err := h.validateRequest(request); err != nil {
		return ErrorResponse(request, models.ErrorInvalidRequest, err.Error()), nil
	}

	reply, sessionID, err := h.sessions.Process(ctx, request.UserID, request.Message, request.SessionID)
	if err != nil {
		if errors.Is(err, memory.ErrInvalidID) {
			return ErrorResponse(request, models.ErrorInvalidRequest, err.Error()), nil
		}
		response := ErrorResponse(request, models.ErrorProcessingFailed, ProcessingFailedMessage)
		response.SessionID = sessionID
		return response, err
	}

	log.Printf("Chat processed for user %s, session %s", request.UserID, sessionID)

	return &models.ChatResponse{
		Response:  reply,
		UserID:    request.UserID,
		SessionID: sessionID,
	}, nil
}

func (h *ChatHandler) validateRequest(request *models.ChatRequest) error {
	if request.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if strings.TrimSpace(request.Message) == "" {
		return fmt.Errorf("message is required")
	}
	if err := memory.ValidateID(request.UserID); err != nil {
		return fmt.Errorf("user_id: %w", err)
	}
	if request.SessionID != "" {
		if err := memory.ValidateID(request.SessionID); err != nil {
			return fmt.Errorf("session_id: %w", err)
		}
	}
	return nil
}

// ErrorResponse builds the envelope sent when a request cannot be served.
func ErrorResponse(request *models.ChatRequest, errorCode, errorMessage string) *models.ChatResponse {
	response := &models.ChatResponse{
		Response:     prompts.ApologyMessage,
		ErrorCode:    &errorCode,
		ErrorMessage: &errorMessage,
	}
	if request != nil {
		response.UserID = request.UserID
		response.SessionID = request.SessionID
	}
	return response
}
