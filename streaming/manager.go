package streaming

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/skillsenselab/callscribe/llm"
	"github.com/skillsenselab/callscribe/logger"
	"github.com/skillsenselab/callscribe/observability"
	"github.com/skillsenselab/callscribe/transcription"
)

// Manager owns the active session registry and creates sessions bound to
// the ASR and LLM collaborators.
type Manager struct {
	cfg     Config
	asr     transcription.Provider
	llm     *llm.Client
	log     *logger.Logger
	metrics *observability.Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager. A nil logger discards output.
func NewManager(cfg Config, asr transcription.Provider, client *llm.Client, metrics *observability.Metrics, log *logger.Logger) *Manager {
	cfg.applyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		cfg:      cfg,
		asr:      asr,
		llm:      client,
		log:      log.WithComponent("streaming"),
		metrics:  metrics,
		sessions: make(map[string]*Session),
	}
}

// Open creates and registers a new session.
func (m *Manager) Open(ctx context.Context) *Session {
	s := &Session{
		id:      uuid.NewString(),
		cfg:     m.cfg,
		asr:     m.asr,
		llm:     m.llm,
		log:     m.log,
		metrics: m.metrics,
	}
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.metrics.SessionOpened(ctx)
	m.log.Info("session opened", logger.Fields(logger.FieldSessionID, s.id))
	return s
}

// Get returns the session, if registered.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close discards the session's state immediately. Buffered audio is never
// flushed on close; that is the disconnect contract.
func (m *Manager) Close(ctx context.Context, id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		m.metrics.SessionClosed(ctx)
		m.log.Info("session closed", logger.Fields(logger.FieldSessionID, id))
	}
}

// Active returns the number of registered sessions.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
