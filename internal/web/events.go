package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"juggle/internal/ics"
	appLog "juggle/internal/log"
	"juggle/internal/model"
	"juggle/internal/palette"
)

// itemDTO is the JSON shape of a checklist item.
type itemDTO struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
}

// eventDTO is an event plus fields derived for display.
type eventDTO struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Date        time.Time        `json:"date"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Color       palette.Color    `json:"color"`
	Recurrence  model.Recurrence `json:"recurrence"`
	Checklist   []itemDTO        `json:"checklist"`
	Done        int              `json:"done"`
	Total       int              `json:"total"`
}

func toDTO(ev model.Event) eventDTO {
	items := make([]itemDTO, 0, len(ev.Checklist))
	for _, it := range ev.Checklist {
		items = append(items, itemDTO(it))
	}
	return eventDTO{
		ID:          ev.ID,
		Name:        ev.Name,
		Date:        ev.Date,
		Description: ev.Description,
		Category:    ev.Category,
		Color:       palette.For(ev.Category),
		Recurrence:  ev.Recurrence,
		Checklist:   items,
		Done:        ev.CompletedCount(),
		Total:       len(ev.Checklist),
	}
}

func toDTOs(events []model.Event) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, toDTO(ev))
	}
	return out
}

// eventInput is the body of create and update requests. Checklist items
// without an id get a fresh one.
type eventInput struct {
	Name        string           `json:"name"`
	Date        time.Time        `json:"date"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Recurrence  model.Recurrence `json:"recurrence"`
	Checklist   []itemDTO        `json:"checklist"`
}

// toEvent validates the add/edit form rules: a non-blank name and a date.
func (in eventInput) toEvent(id uuid.UUID) (model.Event, string) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Event{}, "name is required"
	}
	if in.Date.IsZero() {
		return model.Event{}, "date is required"
	}

	ev := model.NewEvent(name, in.Date)
	ev.ID = id
	ev.Description = in.Description
	if in.Category != "" {
		ev.Category = in.Category
	}
	if in.Recurrence != "" {
		ev.Recurrence = in.Recurrence
	}
	for _, it := range in.Checklist {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		item := model.ChecklistItem{ID: it.ID, Title: title, Completed: it.Completed}
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		ev.Checklist = append(ev.Checklist, item)
	}
	return ev, ""
}

func decodeInput(w http.ResponseWriter, r *http.Request) (eventInput, bool) {
	var in eventInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return in, false
	}
	return in, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+key)
		return uuid.Nil, false
	}
	return id, true
}

// writeStored responds with the event as the store holds it after a write.
func (s *Server) writeStored(w http.ResponseWriter, status int, id uuid.UUID) {
	ev, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, status, toDTO(ev))
}

// GET /api/events?q=hack
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events := s.store.Search(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, toDTOs(events))
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	ev, msg := in.toEvent(uuid.New())
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	s.store.Add(ev)
	appLog.Info("event created", "id", ev.ID, "name", ev.Name)
	s.writeStored(w, http.StatusCreated, ev.ID)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	ev, found := s.store.Get(id)
	if !found {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, toDTO(ev))
}

// PUT replaces the full record; an unknown id creates it (upsert).
func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	ev, msg := in.toEvent(id)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	s.store.Update(ev)
	appLog.Info("event updated", "id", ev.ID)
	s.writeStored(w, http.StatusOK, ev.ID)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if s.store.Delete(id) == 0 {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	appLog.Info("event deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	ev, found := s.store.Get(id)
	if !found {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if _, added := ev.AddChecklistItem(body.Title); !added {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	s.store.Update(ev)
	s.writeStored(w, http.StatusCreated, ev.ID)
}

func (s *Server) handleToggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}
	if !s.store.ToggleChecklistItem(id, itemID) {
		writeError(w, http.StatusNotFound, "checklist item not found")
		return
	}
	s.writeStored(w, http.StatusOK, id)
}

func (s *Server) handleRemoveChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}
	ev, found := s.store.Get(id)
	if !found || !ev.RemoveChecklistItem(itemID) {
		writeError(w, http.StatusNotFound, "checklist item not found")
		return
	}
	s.store.Update(ev)
	s.writeStored(w, http.StatusOK, ev.ID)
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, palette.Table())
}

// agendaResponse is the JSON response shape for /api/agenda.
type agendaResponse struct {
	Occurrences     []occurrenceDTO `json:"occurrences"`
	Truncated       []uuid.UUID     `json:"truncated,omitempty"`
	RangeStart      time.Time       `json:"range_start"`
	RangeEnd        time.Time       `json:"range_end"`
	DisplayTimeZone string          `json:"display_timezone"`
}

type occurrenceDTO struct {
	EventID   uuid.UUID     `json:"event_id"`
	Name      string        `json:"name"`
	Category  string        `json:"category"`
	Color     palette.Color `json:"color"`
	Start     time.Time     `json:"start"`
	Recurring bool          `json:"recurring"`
	Done      int           `json:"done"`
	Total     int           `json:"total"`
}

// handleAgenda expands recurring events over a window.
//
// GET /api/agenda?days=7&backfill=1
//   - days:     look-ahead in days (default from config)
//   - backfill: days in the past to include (default 0)
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), s.cfg.AgendaDays)
	if days <= 0 {
		days = s.cfg.AgendaDays
	}
	backfill := parseIntDefault(q.Get("backfill"), 0)
	if backfill < 0 {
		backfill = 0
	}

	loc := s.cfg.Location()
	now := s.now().In(loc)
	rangeStart := now.AddDate(0, 0, -backfill)
	rangeEnd := now.AddDate(0, 0, days)

	res, err := ics.Expand(s.store.SortedView(), ics.ExpandConfig{
		Location:   loc,
		RangeStart: rangeStart,
		RangeEnd:   rangeEnd,
	})
	if err != nil {
		appLog.Error("api agenda: expand failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand events")
		return
	}

	dtos := make([]occurrenceDTO, 0, len(res.Occurrences))
	for _, o := range res.Occurrences {
		dtos = append(dtos, occurrenceDTO{
			EventID:   o.EventID,
			Name:      o.Name,
			Category:  o.Category,
			Color:     palette.For(o.Category),
			Start:     o.Start,
			Recurring: o.Recurring,
			Done:      o.Done,
			Total:     o.Total,
		})
	}

	writeJSON(w, http.StatusOK, agendaResponse{
		Occurrences:     dtos,
		Truncated:       res.Truncated,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: loc.String(),
	})
}

// handleICS serves the whole store as an iCalendar feed.
func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	s.icsMu.RLock()
	body, gen := s.icsCache, s.icsGen
	s.icsMu.RUnlock()

	if body == nil {
		body = []byte(ics.Export(s.store.SortedView(), s.now()))
		s.icsMu.Lock()
		// Only cache if no change landed while rendering.
		if s.icsGen == gen {
			s.icsCache = body
		}
		s.icsMu.Unlock()
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="juggle.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
