package memory

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/avvvet/foodbuddy-agent/internal/models"
)

const logExt = ".jsonl"

// FileStore keeps one newline-delimited JSON file per session under
// <dir>/<user_id>/<session_id>.jsonl.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) userDir(userID string) string {
	return filepath.Join(f.dir, userID)
}

func (f *FileStore) logPath(userID, sessionID string) string {
	return filepath.Join(f.dir, userID, sessionID+logExt)
}

func (f *FileStore) AppendMessage(_ context.Context, msg models.ConversationMessage) error {
	if err := validatePair(msg.UserID, msg.SessionID); err != nil {
		return err
	}

	data, err := encodeRecord(msg)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.userDir(msg.UserID), 0755); err != nil {
		return fmt.Errorf("failed to create user directory: %w", err)
	}

	file, err := os.OpenFile(f.logPath(msg.UserID, msg.SessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (f *FileStore) GetMessages(_ context.Context, userID, sessionID string) ([]models.ConversationMessage, error) {
	if err := validatePair(userID, sessionID); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.logPath(userID, sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return []models.ConversationMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}
	defer file.Close()

	messages := []models.ConversationMessage{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		msg, err := decodeRecord([]byte(text), userID, sessionID)
		if err != nil {
			log.Printf("⚠️ Skipping unreadable line %d in session %s: %v", line, sessionID, err)
			continue
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session log: %w", err)
	}
	return messages, nil
}

func (f *FileStore) ListSessions(_ context.Context, userID string) ([]string, error) {
	if err := ValidateID(userID); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(f.userDir(userID))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, logExt) {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, logExt))
	}
	sort.Strings(sessions)
	return sessions, nil
}

func (f *FileStore) DeleteSession(_ context.Context, userID, sessionID string) error {
	if err := validatePair(userID, sessionID); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.logPath(userID, sessionID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (f *FileStore) DeleteUserSessions(_ context.Context, userID string) error {
	if err := ValidateID(userID); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.RemoveAll(f.userDir(userID)); err != nil {
		return fmt.Errorf("failed to clear user sessions: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error {
	return nil
}
