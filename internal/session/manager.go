package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"supplement-coach/internal/supplement"
	"supplement-coach/internal/tracker"
)

// Options configures a Manager.
type Options struct {
	TTL            time.Duration
	Location       *time.Location
	DefaultProfile supplement.Profile
	// Now is the clock for expiry and the checklist date. Defaults to time.Now.
	Now func() time.Time
}

// Manager keeps sessions in memory. Nothing survives a restart.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opts     Options
}

// NewManager creates an empty Manager.
func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultProfile == "" {
		opts.DefaultProfile = supplement.ProfileEugen
	}
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
	}
}

// Create starts a new session with a random ID.
func (m *Manager) Create(profile supplement.Profile) *Session {
	return m.GetOrCreate(uuid.NewString(), profile)
}

// Get returns a live session and refreshes its idle timer.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.opts.Now()
	m.sweepLocked(now)
	s, ok := m.sessions[id]
	if ok {
		s.touch(now)
	}
	return s, ok
}

// GetOrCreate returns the session with id, creating it with profile (or the
// default profile when empty) if it does not exist.
func (m *Manager) GetOrCreate(id string, profile supplement.Profile) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.opts.Now()
	m.sweepLocked(now)
	if s, ok := m.sessions[id]; ok {
		s.touch(now)
		return s
	}
	if profile == "" {
		profile = m.opts.DefaultProfile
	}
	s := newSession(id, profile, tracker.New(m.opts.Now, m.opts.Location), now)
	m.sessions[id] = s
	return s
}

// Preview returns a session on the default profile that is not registered.
// Changes to it are not kept. It serves read-only requests from clients
// without a session.
func (m *Manager) Preview() *Session {
	now := m.opts.Now()
	return newSession("", m.opts.DefaultProfile, tracker.New(m.opts.Now, m.opts.Location), now)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked(m.opts.Now())
	return len(m.sessions)
}

func (m *Manager) sweepLocked(now time.Time) {
	if m.opts.TTL <= 0 {
		return
	}
	for id, s := range m.sessions {
		if s.idleSince(now) > m.opts.TTL {
			delete(m.sessions, id)
		}
	}
}
