package ics

import (
	"bytes"
	"errors"
	"strings"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "juggle/internal/log"
	"juggle/internal/model"
)

// Parse reads VEVENTs into events. Broken VEVENTs are logged and skipped;
// only an unreadable calendar is an error.
//
//   - UIDs written by Export map back to the original IDs.
//   - RRULE FREQ maps to a recurrence tag; other rule parts are dropped.
//   - A trailing checklist block in DESCRIPTION becomes the checklist.
//   - Overridden instances (RECURRENCE-ID) are skipped; the base event wins.
func Parse(body []byte) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		if ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")) != nil {
			appLog.Debug("ics: skipping recurrence override", "uid", ev.ID)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (model.Event, error) {
	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return model.Event{}, errors.New("missing UID")
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return model.Event{}, err
	}

	ev := model.Event{
		ID:         eventIDFromUID(uidProp.Value),
		Date:       start,
		Category:   model.CategoryPersonal,
		Recurrence: model.RecurrenceNone,
		Checklist:  []model.ChecklistItem{},
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Name = unescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description, ev.Checklist = splitDescription(unescapeText(p.Value))
	}
	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil && p.Value != "" {
		ev.Category = firstCategory(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil && p.Value != "" {
		opt, rerr := rrule.StrToROption(p.Value)
		if rerr != nil {
			appLog.Warn("ics: ignoring unparsable RRULE", "uid", uidProp.Value, "rrule", p.Value)
		} else {
			ev.Recurrence = RecurrenceFor(opt.Freq)
			if opt.Interval > 1 {
				appLog.Debug("ics: RRULE interval dropped", "uid", uidProp.Value, "interval", opt.Interval)
			}
		}
	}

	return ev, nil
}

// firstCategory returns the first entry of an escaped, comma-separated
// CATEGORIES value.
func firstCategory(v string) string {
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '\\':
			i++
		case ',':
			return unescapeText(v[:i])
		}
	}
	return unescapeText(strings.TrimSpace(v))
}
