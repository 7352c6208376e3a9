package tracker

import (
	"time"

	"supplement-coach/internal/supplement"
)

const dateLayout = "2006-01-02"

// Key identifies one checkbox.
type Key struct {
	User     string
	Category string
	Name     string
}

// Tracker holds today's completion state for the active user. It is cleared
// whenever the observed date or the active user changes. Not safe for
// concurrent use; the owning session serialises access.
type Tracker struct {
	now     func() time.Time
	loc     *time.Location
	user    string
	day     string
	checked map[Key]bool
}

// New creates a Tracker. A nil clock means time.Now, a nil location means time.Local.
func New(now func() time.Time, loc *time.Location) *Tracker {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{
		now:     now,
		loc:     loc,
		checked: make(map[Key]bool),
	}
}

// Today returns the observed date in the tracker's location.
func (t *Tracker) Today() time.Time {
	y, m, d := t.now().In(t.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.loc)
}

// Observe records the active user and clears the state if the user or the
// date differs from the previous observation.
func (t *Tracker) Observe(user string) {
	day := t.Today().Format(dateLayout)
	if user == t.user && day == t.day {
		return
	}
	t.user = user
	t.day = day
	t.checked = make(map[Key]bool)
}

// Toggle flips the checkbox and returns its new value.
func (t *Tracker) Toggle(user, category, name string) bool {
	t.Observe(user)
	k := Key{User: user, Category: category, Name: name}
	t.checked[k] = !t.checked[k]
	return t.checked[k]
}

// set stores an explicit value.
func (t *Tracker) set(user, category, name string, checked bool) {
	t.Observe(user)
	t.checked[Key{User: user, Category: category, Name: name}] = checked
}

// Checked reports whether the entry has been ticked today.
func (t *Tracker) Checked(user, category, name string) bool {
	t.Observe(user)
	return t.checked[Key{User: user, Category: category, Name: name}]
}

// Reset clears all state.
func (t *Tracker) Reset() {
	t.checked = make(map[Key]bool)
}

// size returns the number of stored checkbox values, checked or not.
func (t *Tracker) size() int {
	return len(t.checked)
}

// Completed counts the plan's entries that are checked for user.
func (t *Tracker) Completed(user string, plan supplement.Plan) int {
	t.Observe(user)
	n := 0
	for _, c := range plan.NonEmpty() {
		for _, e := range c.Entries {
			if t.checked[Key{User: user, Category: c.Name, Name: e.Name}] {
				n++
			}
		}
	}
	return n
}

// Progress is the share of the plan's entries checked today, in [0,1].
func (t *Tracker) Progress(user string, plan supplement.Plan) float64 {
	total := plan.Total()
	if total == 0 {
		return 0
	}
	ratio := float64(t.Completed(user, plan)) / float64(total)
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	}
	return ratio
}
