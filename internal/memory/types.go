package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/avvvet/foodbuddy-agent/internal/models"
)

// ErrInvalidID is returned for user or session ids that cannot be used as a
// storage key.
var ErrInvalidID = errors.New("invalid id")

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateID rejects empty ids and ids that are unsafe as a path or key segment.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Store is the append-only session log. A session with no records has an
// empty history; absence is never an error.
type Store interface {
	AppendMessage(ctx context.Context, msg models.ConversationMessage) error
	GetMessages(ctx context.Context, userID, sessionID string) ([]models.ConversationMessage, error)
	ListSessions(ctx context.Context, userID string) ([]string, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
	DeleteUserSessions(ctx context.Context, userID string) error
	Close() error
}

// record is the persisted line format. Session and user are implied by the
// log the record lives in.
type record struct {
	Timestamp string      `json:"timestamp"`
	Role      models.Role `json:"role"`
	Content   string      `json:"content"`
}

func encodeRecord(msg models.ConversationMessage) ([]byte, error) {
	if msg.Role != models.RoleUser && msg.Role != models.RoleAssistant {
		return nil, fmt.Errorf("unknown message role %q", msg.Role)
	}

	data, err := json.Marshal(record{
		Timestamp: msg.Timestamp,
		Role:      msg.Role,
		Content:   msg.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte, userID, sessionID string) (models.ConversationMessage, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return models.ConversationMessage{}, fmt.Errorf("failed to parse message: %w", err)
	}

	return models.ConversationMessage{
		SessionID: sessionID,
		UserID:    userID,
		Role:      r.Role,
		Content:   r.Content,
		Timestamp: r.Timestamp,
	}, nil
}
