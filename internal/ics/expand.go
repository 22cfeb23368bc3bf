package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	appLog "juggle/internal/log"
	"juggle/internal/model"
)

const defaultMaxOccurrencesPerEvent = 1000

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// Location is the zone occurrences are converted to. Nil means time.Local.
	Location *time.Location

	// RangeStart / RangeEnd define the inclusive window.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxPerEvent caps a single event's expansion. Zero means the default.
	MaxPerEvent int
}

// Occurrence is one concrete instance of a stored event.
type Occurrence struct {
	EventID  uuid.UUID
	Name     string
	Category string
	Start    time.Time
	// Recurring is false for events whose recurrence is None.
	Recurring bool
	// Done / Total summarize the owning event's checklist.
	Done  int
	Total int
}

// ExpandResult wraps the occurrences and the events that hit the cap.
type ExpandResult struct {
	Occurrences []Occurrence
	Truncated   []uuid.UUID
}

// Expand turns stored events into occurrences within the window, sorted
// by start time (ties by name). The store's events are not modified.
func Expand(events []model.Event, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxPerEvent <= 0 {
		cfg.MaxPerEvent = defaultMaxOccurrencesPerEvent
	}

	out := make([]Occurrence, 0, len(events))
	for _, ev := range events {
		starts, hitCap, err := occurrenceTimes(ev, cfg)
		if err != nil {
			appLog.Error("expand: skipping event", err, "id", ev.ID, "recurrence", ev.Recurrence)
			continue
		}
		if hitCap {
			result.Truncated = append(result.Truncated, ev.ID)
			appLog.Warn("expand: truncated occurrences", "id", ev.ID, "cap", cfg.MaxPerEvent)
		}
		for _, st := range starts {
			out = append(out, Occurrence{
				EventID:   ev.ID,
				Name:      ev.Name,
				Category:  ev.Category,
				Start:     st.In(cfg.Location),
				Recurring: ev.Recurrence != model.RecurrenceNone && ev.Recurrence != "",
				Done:      ev.CompletedCount(),
				Total:     len(ev.Checklist),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].Name < out[j].Name
		}
		return out[i].Start.Before(out[j].Start)
	})

	result.Occurrences = out
	return result, nil
}

func occurrenceTimes(ev model.Event, cfg ExpandConfig) ([]time.Time, bool, error) {
	freq, recurring := Frequency(ev.Recurrence)
	if !recurring {
		if ev.Date.Before(cfg.RangeStart) || ev.Date.After(cfg.RangeEnd) {
			return nil, false, nil
		}
		return []time.Time{ev.Date}, false, nil
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    freq,
		Dtstart: ev.Date,
	})
	if err != nil {
		return nil, false, err
	}

	// Between works in the rule's zone; align the window with it.
	loc := ev.Date.Location()
	times := r.Between(cfg.RangeStart.In(loc), cfg.RangeEnd.In(loc), true)
	if len(times) > cfg.MaxPerEvent {
		return times[:cfg.MaxPerEvent], true, nil
	}
	return times, false, nil
}

// Frequency maps a recurrence tag to an RRULE frequency. The bool is false
// for None and unknown tags.
func Frequency(r model.Recurrence) (rrule.Frequency, bool) {
	switch r {
	case model.RecurrenceDaily:
		return rrule.DAILY, true
	case model.RecurrenceWeekly:
		return rrule.WEEKLY, true
	case model.RecurrenceMonthly:
		return rrule.MONTHLY, true
	default:
		return 0, false
	}
}

// RecurrenceFor is the inverse of Frequency. Frequencies without a tag
// (yearly, hourly, ...) map to None.
func RecurrenceFor(f rrule.Frequency) model.Recurrence {
	switch f {
	case rrule.DAILY:
		return model.RecurrenceDaily
	case rrule.WEEKLY:
		return model.RecurrenceWeekly
	case rrule.MONTHLY:
		return model.RecurrenceMonthly
	default:
		return model.RecurrenceNone
	}
}
