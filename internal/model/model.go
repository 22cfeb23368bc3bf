package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Recurrence is a descriptive repeat tag. It has no scheduling effect on the
// store; only the agenda/export code in internal/ics expands it.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "None"
	RecurrenceDaily   Recurrence = "Daily"
	RecurrenceWeekly  Recurrence = "Weekly"
	RecurrenceMonthly Recurrence = "Monthly"
)

// Recurrences lists every recurrence in picker order.
var Recurrences = []Recurrence{RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly}

// ParseRecurrence accepts the exact persisted names. An empty string is None.
func ParseRecurrence(s string) (Recurrence, error) {
	if s == "" {
		return RecurrenceNone, nil
	}
	for _, r := range Recurrences {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown recurrence %q", s)
}

// UnmarshalText rejects unknown recurrences so that a malformed data file
// fails decoding instead of loading garbage.
func (r *Recurrence) UnmarshalText(text []byte) error {
	parsed, err := ParseRecurrence(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Recurrence) MarshalText() ([]byte, error) {
	if r == "" {
		return []byte(RecurrenceNone), nil
	}
	return []byte(r), nil
}

// Known categories. The store accepts any string; these are what the
// add/edit flows offer.
const (
	CategoryPersonal   = "Personal"
	CategoryInterviews = "Interviews"
	CategoryHackathons = "Hackathons"
	CategoryTechEvents = "Tech Events"
	CategoryCultural   = "Cultural Events"
)

var Categories = []string{
	CategoryPersonal,
	CategoryInterviews,
	CategoryHackathons,
	CategoryTechEvents,
	CategoryCultural,
}

// ChecklistItem is a titled, completable preparation task owned by one Event.
type ChecklistItem struct {
	ID        uuid.UUID `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Completed bool      `json:"completed" yaml:"completed"`
}

// NewChecklistItem returns an open item with a fresh identifier.
func NewChecklistItem(title string) ChecklistItem {
	return ChecklistItem{ID: uuid.New(), Title: title}
}

// Event is a user-scheduled item. Name is required by the add/edit flows
// only; the store does not validate it.
type Event struct {
	ID          uuid.UUID       `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Date        time.Time       `json:"date" yaml:"date"`
	Description string          `json:"description" yaml:"description"`
	Category    string          `json:"category" yaml:"category"`
	Recurrence  Recurrence      `json:"recurrence" yaml:"recurrence"`
	Checklist   []ChecklistItem `json:"checklist" yaml:"checklist"`
}

// NewEvent returns an event as the add flow creates it: fresh ID,
// Personal category, no recurrence, empty checklist.
func NewEvent(name string, date time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Name:       name,
		Date:       date,
		Category:   CategoryPersonal,
		Recurrence: RecurrenceNone,
		Checklist:  []ChecklistItem{},
	}
}

// Clone returns a copy that shares no checklist storage with e.
func (e Event) Clone() Event {
	out := e
	if e.Checklist != nil {
		out.Checklist = make([]ChecklistItem, len(e.Checklist))
		copy(out.Checklist, e.Checklist)
	}
	return out
}

// AddChecklistItem appends a new item. Blank titles are ignored and the
// title is trimmed; the returned bool reports whether an item was added.
func (e *Event) AddChecklistItem(title string) (ChecklistItem, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return ChecklistItem{}, false
	}
	item := NewChecklistItem(title)
	e.Checklist = append(e.Checklist, item)
	return item, true
}

// RemoveChecklistItem drops the item with the given ID.
func (e *Event) RemoveChecklistItem(id uuid.UUID) bool {
	for i, it := range e.Checklist {
		if it.ID == id {
			e.Checklist = append(e.Checklist[:i], e.Checklist[i+1:]...)
			return true
		}
	}
	return false
}

// ToggleChecklistItem flips the completed flag of one item.
func (e *Event) ToggleChecklistItem(id uuid.UUID) bool {
	for i := range e.Checklist {
		if e.Checklist[i].ID == id {
			e.Checklist[i].Completed = !e.Checklist[i].Completed
			return true
		}
	}
	return false
}

// CompletedCount returns how many checklist items are done.
func (e Event) CompletedCount() int {
	n := 0
	for _, it := range e.Checklist {
		if it.Completed {
			n++
		}
	}
	return n
}
