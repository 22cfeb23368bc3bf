package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"juggle/internal/model"
)

const (
	ProductID = "-//juggle//juggle//EN"
	uidSuffix = "@juggle"

	// DefaultDuration is the DTEND offset; events only carry a start time.
	DefaultDuration = time.Hour

	checklistHeader = "Checklist:"
)

// Export renders events as a VCALENDAR. now is used for DTSTAMP.
func Export(events []model.Event, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.MethodPublish)

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID.String() + uidSuffix)
		ve.SetDtStampTime(now)
		ve.SetStartAt(ev.Date)
		ve.SetEndAt(ev.Date.Add(DefaultDuration))
		ve.SetSummary(ev.Name)
		if desc := composeDescription(ev); desc != "" {
			ve.SetDescription(desc)
		}
		if ev.Category != "" {
			ve.SetProperty(ical.ComponentPropertyCategories, escapeText(ev.Category))
		}
		if freq, ok := Frequency(ev.Recurrence); ok {
			ve.AddRrule("FREQ=" + freq.String())
		}
	}

	return cal.Serialize()
}

// composeDescription appends a "[x] title" checklist block to the free text.
func composeDescription(ev model.Event) string {
	parts := make([]string, 0, 2)
	if ev.Description != "" {
		parts = append(parts, ev.Description)
	}
	if len(ev.Checklist) > 0 {
		var b strings.Builder
		b.WriteString(checklistHeader)
		for _, it := range ev.Checklist {
			b.WriteString("\n")
			if it.Completed {
				b.WriteString("[x] ")
			} else {
				b.WriteString("[ ] ")
			}
			b.WriteString(it.Title)
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

// splitDescription is the inverse of composeDescription. Checklist items
// get fresh IDs. A "Checklist:" block counts only when every line after
// the header is an item; otherwise the text is kept as is.
func splitDescription(s string) (string, []model.ChecklistItem) {
	items := []model.ChecklistItem{}

	var block, rest string
	switch {
	case strings.HasPrefix(s, checklistHeader+"\n"):
		block, rest = s, ""
	default:
		idx := strings.LastIndex(s, "\n\n"+checklistHeader+"\n")
		if idx < 0 {
			return s, items
		}
		block, rest = s[idx+2:], s[:idx]
	}

	for _, line := range strings.Split(block, "\n")[1:] {
		switch {
		case strings.HasPrefix(line, "[x] "):
			it := model.NewChecklistItem(line[4:])
			it.Completed = true
			items = append(items, it)
		case strings.HasPrefix(line, "[ ] "):
			items = append(items, model.NewChecklistItem(line[4:]))
		default:
			return s, []model.ChecklistItem{}
		}
	}
	return rest, items
}

// eventIDFromUID recovers our own UUIDs and derives a stable one for
// foreign UIDs, so importing the same feed twice updates in place.
func eventIDFromUID(uid string) uuid.UUID {
	if id, err := uuid.Parse(strings.TrimSuffix(uid, uidSuffix)); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("ics:"+uid))
}

var textEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

var textUnescaper = strings.NewReplacer(`\\`, `\`, `\;`, ";", `\,`, ",", `\n`, "\n", `\N`, "\n")

func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}
