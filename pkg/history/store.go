// Package history keeps the generator chat sessions: an ordered list,
// most recent first, stored as a single JSON blob under one key of a KV.
package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
	"github.com/schardosin/formstudio/pkg/logging"
)

const (
	// Key is the KV key holding the session list.
	Key = "formstudio.chat.history"
	// MaxSessions caps the list; the oldest sessions are dropped first.
	MaxSessions = 20
	// SummaryLength is the maximum summary length in characters.
	SummaryLength = 60
	// EmptySummary is used for sessions without a user message.
	EmptySummary = "New chat"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn. Assistant turns that produced a form carry it.
type Message struct {
	Role      string       `json:"role"`
	Content   string       `json:"content"`
	Schema    *form.Schema `json:"schema,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Session is one chat conversation.
type Session struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store reads and writes sessions through a KV.
type Store struct {
	kv     KV
	mu     sync.Mutex
	now    func() time.Time
	logger *log.Logger
}

// NewStore returns a store over kv. logger may be nil.
func NewStore(kv KV, logger *log.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{kv: kv, now: time.Now, logger: logger}
}

// Summarize returns the first user message, trimmed and cut to
// SummaryLength characters.
func Summarize(messages []Message) string {
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		if r := []rune(text); len(r) > SummaryLength {
			text = string(r[:SummaryLength])
		}
		return text
	}
	return EmptySummary
}

// List returns all sessions, most recent first.
func (s *Store) List() ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Get returns the session id.
func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions, err := s.load()
	if err != nil {
		return Session{}, err
	}
	for _, sess := range sessions {
		if sess.ID == id {
			return sess, nil
		}
	}
	return Session{}, ferrors.New(ferrors.CodeNotFound, "chat session %q not found", id)
}

// Save inserts or replaces sess and moves it to the front. A missing id is
// generated; the summary and timestamps are maintained by the store.
func (s *Store) Save(sess Session) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return Session{}, err
	}
	return s.saveLocked(sessions, sess)
}

// Append adds messages to session id, creating the session when id is
// empty or unknown. The read and the write happen under one lock so
// concurrent appends to a session are never lost.
func (s *Store) Append(id string, messages ...Message) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return Session{}, err
	}
	sess := Session{ID: id}
	for _, existing := range sessions {
		if id != "" && existing.ID == id {
			sess = existing
			break
		}
	}
	now := s.now()
	for _, m := range messages {
		if m.Timestamp.IsZero() {
			m.Timestamp = now
		}
		sess.Messages = append(sess.Messages, m)
	}
	return s.saveLocked(sessions, sess)
}

// saveLocked writes sess to the front of sessions. s.mu must be held.
func (s *Store) saveLocked(sessions []Session, sess Session) (Session, error) {
	now := s.now()
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.Messages == nil {
		sess.Messages = []Message{}
	}
	sess.UpdatedAt = now
	sess.Summary = Summarize(sess.Messages)

	out := make([]Session, 0, len(sessions)+1)
	out = append(out, sess)
	for _, existing := range sessions {
		if existing.ID == sess.ID {
			if existing.CreatedAt.Before(sess.CreatedAt) {
				out[0].CreatedAt = existing.CreatedAt
			}
			continue
		}
		out = append(out, existing)
	}
	if len(out) > MaxSessions {
		s.logger.Debug("dropping old chat sessions", "count", len(out)-MaxSessions)
		out = out[:MaxSessions]
	}
	if err := s.store(out); err != nil {
		return Session{}, err
	}
	return out[0], nil
}

// Delete removes session id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return err
	}
	out := sessions[:0]
	found := false
	for _, sess := range sessions {
		if sess.ID == id {
			found = true
			continue
		}
		out = append(out, sess)
	}
	if !found {
		return ferrors.New(ferrors.CodeNotFound, "chat session %q not found", id)
	}
	return s.store(out)
}

// Clear removes every session.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(Key); err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}
	return nil
}

func (s *Store) load() ([]Session, error) {
	data, ok, err := s.kv.Get(Key)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}
	if !ok || len(data) == 0 {
		return []Session{}, nil
	}
	var sessions []Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		// a corrupt blob is treated as an empty history
		s.logger.Warn("ignoring unreadable chat history", "err", err)
		return []Session{}, nil
	}
	if sessions == nil {
		sessions = []Session{}
	}
	return sessions, nil
}

func (s *Store) store(sessions []Session) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to marshal chat history: %w", err)
	}
	if err := s.kv.Set(Key, data); err != nil {
		return fmt.Errorf("failed to write chat history: %w", err)
	}
	return nil
}
