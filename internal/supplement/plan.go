package supplement

import (
	"errors"
	"fmt"
)

// Well-known category names, in display order.
const (
	CategoryPriority = "PRIO (Arzt)"
	CategoryMorning  = "Morgens"
	CategoryMidday   = "Mittags"
	CategoryEvening  = "Abends"
	CategoryNight    = "Nachts"
)

// ErrEntryNotFound is returned when an entry is not part of a plan.
var ErrEntryNotFound = errors.New("entry not found")

// Entry is a single supplement within a category.
type Entry struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
	Note   string `json:"note,omitempty"`
}

// Category groups entries taken at the same time of day.
type Category struct {
	Name    string  `json:"name"`
	Entries []Entry `json:"entries"`
}

// Plan is an ordered list of categories. Entry names are unique within a category.
type Plan struct {
	Categories []Category `json:"categories"`
}

// newPlan builds a plan and checks the unique-name invariant.
func newPlan(categories ...Category) (Plan, error) {
	p := Plan{Categories: categories}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p.Clone(), nil
}

// Validate reports the first duplicate entry name within a category.
func (p Plan) Validate() error {
	for _, c := range p.Categories {
		seen := make(map[string]struct{}, len(c.Entries))
		for _, e := range c.Entries {
			if _, dup := seen[e.Name]; dup {
				return fmt.Errorf("duplicate entry %q in category %q", e.Name, c.Name)
			}
			seen[e.Name] = struct{}{}
		}
	}
	return nil
}

// Clone returns a deep copy so callers never share entry slices.
func (p Plan) Clone() Plan {
	out := Plan{Categories: make([]Category, len(p.Categories))}
	for i, c := range p.Categories {
		out.Categories[i] = Category{
			Name:    c.Name,
			Entries: append([]Entry(nil), c.Entries...),
		}
	}
	return out
}

// Delete returns a copy of the plan without the entry called name in category.
// Unknown categories and names leave the plan unchanged.
func (p Plan) Delete(category, name string) Plan {
	out := p.Clone()
	for i, c := range out.Categories {
		if c.Name != category {
			continue
		}
		kept := c.Entries[:0]
		for _, e := range c.Entries {
			if e.Name != name {
				kept = append(kept, e)
			}
		}
		out.Categories[i].Entries = kept
	}
	return out
}

// Lookup finds an entry by category and name.
func (p Plan) Lookup(category, name string) (Entry, bool) {
	for _, c := range p.Categories {
		if c.Name != category {
			continue
		}
		for _, e := range c.Entries {
			if e.Name == name {
				return e, true
			}
		}
	}
	return Entry{}, false
}

// category returns the named category.
func (p Plan) category(name string) (Category, bool) {
	for _, c := range p.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// NonEmpty returns the categories that have at least one entry.
func (p Plan) NonEmpty() []Category {
	var out []Category
	for _, c := range p.Categories {
		if len(c.Entries) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Total counts all entries across categories.
func (p Plan) Total() int {
	n := 0
	for _, c := range p.Categories {
		n += len(c.Entries)
	}
	return n
}
