package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"juggle/internal/model"
)

func at(d, h int) time.Time {
	return time.Date(2025, 6, d, h, 0, 0, 0, time.UTC)
}

func TestExpandSingleAndRecurring(t *testing.T) {
	once := model.NewEvent("Dentist", at(3, 9))
	daily := model.NewEvent("Standup", at(1, 8))
	daily.Recurrence = model.RecurrenceDaily
	weekly := model.NewEvent("Meetup", at(2, 19))
	weekly.Recurrence = model.RecurrenceWeekly
	outside := model.NewEvent("Later", at(28, 9))

	res, err := Expand([]model.Event{once, daily, weekly, outside}, ExpandConfig{
		Location:   time.UTC,
		RangeStart: at(1, 0),
		RangeEnd:   at(7, 23),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Truncated)

	counts := map[string]int{}
	for _, o := range res.Occurrences {
		counts[o.Name]++
	}
	assert.Equal(t, 1, counts["Dentist"])
	assert.Equal(t, 7, counts["Standup"])
	assert.Equal(t, 1, counts["Meetup"])
	assert.Zero(t, counts["Later"])

	for i := 1; i < len(res.Occurrences); i++ {
		assert.False(t, res.Occurrences[i].Start.Before(res.Occurrences[i-1].Start), "sorted by start")
	}
	assert.Equal(t, "Standup", res.Occurrences[0].Name)
	assert.True(t, res.Occurrences[0].Recurring)
}

func TestExpandCapAndBadRange(t *testing.T) {
	daily := model.NewEvent("Standup", at(1, 8))
	daily.Recurrence = model.RecurrenceDaily

	res, err := Expand([]model.Event{daily}, ExpandConfig{
		RangeStart:  at(1, 0),
		RangeEnd:    at(30, 0),
		MaxPerEvent: 5,
	})
	require.NoError(t, err)
	assert.Len(t, res.Occurrences, 5)
	assert.Equal(t, []uuid.UUID{daily.ID}, res.Truncated)

	_, err = Expand(nil, ExpandConfig{RangeStart: at(2, 0), RangeEnd: at(1, 0)})
	assert.Error(t, err)
}

func TestExportParseRoundTrip(t *testing.T) {
	ev := model.NewEvent("Hackathon Prep, day 1", at(14, 10))
	ev.Description = "Bring snacks; and a charger\nsecond line"
	ev.Category = model.CategoryHackathons
	ev.Recurrence = model.RecurrenceMonthly
	ev.AddChecklistItem("register team")
	done, _ := ev.AddChecklistItem("book room")
	ev.ToggleChecklistItem(done.ID)

	plain := model.NewEvent("Coffee", at(15, 7))

	body := Export([]model.Event{ev, plain}, at(1, 0))
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, ProductID)
	assert.Contains(t, body, "FREQ=MONTHLY")

	got, err := Parse([]byte(body))
	require.NoError(t, err)
	require.Len(t, got, 2)

	byID := map[uuid.UUID]model.Event{}
	for _, g := range got {
		byID[g.ID] = g
	}

	g := byID[ev.ID]
	assert.Equal(t, ev.Name, g.Name)
	assert.True(t, ev.Date.Equal(g.Date))
	assert.Equal(t, ev.Description, g.Description)
	assert.Equal(t, ev.Category, g.Category)
	assert.Equal(t, ev.Recurrence, g.Recurrence)
	require.Len(t, g.Checklist, 2)
	assert.Equal(t, "register team", g.Checklist[0].Title)
	assert.False(t, g.Checklist[0].Completed)
	assert.Equal(t, "book room", g.Checklist[1].Title)
	assert.True(t, g.Checklist[1].Completed)

	p := byID[plain.ID]
	assert.Equal(t, "", p.Description)
	assert.Empty(t, p.Checklist)
	assert.Equal(t, model.RecurrenceNone, p.Recurrence)
}

func TestParseForeignCalendar(t *testing.T) {
	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Other//EN",
		"BEGIN:VEVENT",
		"UID:abc-123@example.com",
		"DTSTAMP:20250101T000000Z",
		"DTSTART:20250610T170000Z",
		"SUMMARY:Culture night",
		"CATEGORIES:Cultural Events,Music",
		"RRULE:FREQ=YEARLY",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"DTSTART:20250611T170000Z",
		"SUMMARY:No uid",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	got, err := Parse([]byte(body))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Culture night", got[0].Name)
	assert.Equal(t, model.CategoryCultural, got[0].Category)
	assert.Equal(t, model.RecurrenceNone, got[0].Recurrence)

	again, err := Parse([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, got[0].ID, again[0].ID, "foreign UIDs map to stable IDs")

	_, err = Parse(nil)
	assert.Error(t, err)
}

func TestSplitDescription(t *testing.T) {
	desc, items := splitDescription("Checklist:\n[x] a\n[ ] b")
	assert.Equal(t, "", desc)
	require.Len(t, items, 2)
	assert.True(t, items[0].Completed)

	desc, items = splitDescription("just text")
	assert.Equal(t, "just text", desc)
	assert.Empty(t, items)

	desc, items = splitDescription("Checklist:\nbring passport")
	assert.Equal(t, "Checklist:\nbring passport", desc)
	assert.Empty(t, items)

	desc, items = splitDescription("notes\n\nChecklist:\n[x] a\nfree text")
	assert.Equal(t, "notes\n\nChecklist:\n[x] a\nfree text", desc)
	assert.Empty(t, items)
}

func TestExportKeepsChecklistLookingDescription(t *testing.T) {
	ev := model.NewEvent("Trip", at(20, 8))
	ev.Description = "Checklist:\nbring passport\npack charger"

	got, err := Parse([]byte(Export([]model.Event{ev}, at(1, 0))))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev.Description, got[0].Description)
	assert.Empty(t, got[0].Checklist)
}

func TestFetcherRevalidates(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	body, fromCache, err := f.Fetch(context.Background(), srv.URL+"/feed.ics?token=secret")
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Contains(t, string(body), "VCALENDAR")

	body2, fromCache, err := f.Fetch(context.Background(), srv.URL+"/feed.ics?token=secret")
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, body, body2)
	assert.Equal(t, int32(2), hits.Load())
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://cal.example.com/...(redacted)", redactURL("https://cal.example.com/p/x.ics?token=1"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
