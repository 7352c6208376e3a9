package session

import (
	"fmt"
	"sync"
	"time"

	"supplement-coach/internal/supplement"
	"supplement-coach/internal/tracker"
)

// Session is the per-user state: active profile, its plan and today's checklist.
type Session struct {
	ID string

	mu       sync.Mutex
	profile  supplement.Profile
	plan     supplement.Plan
	tracker  *tracker.Tracker
	lastSeen time.Time
}

// EntryView is an entry plus its checkbox state.
type EntryView struct {
	supplement.Entry
	Checked bool `json:"checked"`
}

// CategoryView is a non-empty category as displayed.
type CategoryView struct {
	Name    string      `json:"name"`
	Entries []EntryView `json:"entries"`
}

// View is a consistent snapshot of a session for rendering.
type View struct {
	Profile    supplement.Profile `json:"profile"`
	Date       time.Time          `json:"date"`
	Categories []CategoryView     `json:"categories"`
	Completed  int                `json:"completed"`
	Total      int                `json:"total"`
	Progress   float64            `json:"progress"`
}

func newSession(id string, profile supplement.Profile, tr *tracker.Tracker, now time.Time) *Session {
	return &Session{
		ID:       id,
		profile:  profile,
		plan:     supplement.DefaultPlan(profile),
		tracker:  tr,
		lastSeen: now,
	}
}

// Profile returns the active profile.
func (s *Session) Profile() supplement.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Plan returns a copy of the active plan.
func (s *Session) Plan() supplement.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan.Clone()
}

// SwitchProfile loads the profile's default plan and clears the checklist.
// Selecting the active profile again changes nothing.
func (s *Session) SwitchProfile(p supplement.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == s.profile {
		return
	}
	s.profile = p
	s.plan = supplement.DefaultPlan(p)
	s.tracker.Reset()
	s.tracker.Observe(string(p))
}

// DeleteEntry removes an entry from the plan. Unknown entries are ignored.
func (s *Session) DeleteEntry(category, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = s.plan.Delete(category, name)
}

// Toggle flips the checkbox of an entry in the active plan.
func (s *Session) Toggle(category, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plan.Lookup(category, name); !ok {
		return false, fmt.Errorf("%w: %s/%s", supplement.ErrEntryNotFound, category, name)
	}
	return s.tracker.Toggle(string(s.profile), category, name), nil
}

// Progress returns today's completion ratio.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Progress(string(s.profile), s.plan)
}

// Snapshot renders the session. Empty categories are left out.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := string(s.profile)
	v := View{
		Profile:    s.profile,
		Date:       s.tracker.Today(),
		Categories: []CategoryView{},
		Total:      s.plan.Total(),
	}
	for _, c := range s.plan.NonEmpty() {
		cv := CategoryView{Name: c.Name}
		for _, e := range c.Entries {
			cv.Entries = append(cv.Entries, EntryView{
				Entry:   e,
				Checked: s.tracker.Checked(user, c.Name, e.Name),
			})
		}
		v.Categories = append(v.Categories, cv)
	}
	v.Completed = s.tracker.Completed(user, s.plan)
	v.Progress = s.tracker.Progress(user, s.plan)
	return v
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}
