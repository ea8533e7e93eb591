package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/civicconnect/civicconnect-ai/internal/model/chat"
	"github.com/civicconnect/civicconnect-ai/internal/service/ai"
)

var (
	ErrSessionIDRequired = errors.New("session id is required")
	ErrSessionNotFound   = errors.New("session not found")
)

// Service is the process-wide session registry. Sessions are created lazily,
// never evicted and never persisted: memory grows with the number of distinct
// session ids and everything is lost on restart.
type Service struct {
	provider    ai.Provider
	instruction string

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService returns an empty registry whose conversations open with instruction.
func NewService(provider ai.Provider, instruction string) *Service {
	return &Service{
		provider:    provider,
		instruction: instruction,
		sessions:    make(map[string]*Session),
	}
}

// GetOrCreate returns the session for id, starting a new conversation seeded
// with the system instruction on first use.
func (s *Service) GetOrCreate(_ context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionIDRequired
	}

	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return session, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[id]; ok {
		return session, nil
	}

	session = &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		conv:      s.provider.StartConversation([]chat.Turn{chat.InstructionTurn(s.instruction)}),
	}
	s.sessions[id] = session
	return session, nil
}

// GetSession retrieves an existing session.
func (s *Service) GetSession(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Len returns the number of known sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Session binds a caller-supplied id to a provider conversation.
type Session struct {
	ID        string
	CreatedAt time.Time

	// mu serializes exchanges within this session only.
	mu   sync.Mutex
	conv ai.Conversation
}

// Send forwards parts to the model and returns its reply. Concurrent calls on
// the same session run one at a time, so each exchange lands in the transcript
// as a contiguous user/model pair; their relative order is unspecified.
func (s *Session) Send(ctx context.Context, parts ...chat.Part) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.SendMessage(ctx, parts...)
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []chat.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.History()
}
