package store

import (
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"juggle/internal/atomicfile"
	appLog "juggle/internal/log"
	"juggle/internal/model"
)

// Store owns the event collection and its file. Every mutation rewrites
// the whole file and then notifies listeners.
//
// Load and Save never return errors: failures are logged and the store
// keeps working in memory. A failed Save leaves disk and memory diverged
// until the next successful one.
type Store struct {
	path  string
	codec Codec

	mu     sync.RWMutex
	events []model.Event

	subMu     sync.Mutex
	listeners map[int]func(events []model.Event)
	nextSub   int
}

// New returns an empty store bound to path. Call Load to read the file.
func New(path string) *Store {
	return &Store{
		path:      path,
		codec:     CodecFor(path),
		events:    []model.Event{},
		listeners: make(map[int]func(events []model.Event)),
	}
}

// Open is New followed by Load.
func Open(path string) *Store {
	s := New(path)
	s.Load()
	return s
}

// Path returns the data file location.
func (s *Store) Path() string { return s.path }

// Load replaces the in-memory collection with the file contents. A missing
// file yields an empty collection; a malformed one is logged and also
// yields an empty collection.
func (s *Store) Load() {
	events, err := s.load()
	if err != nil {
		var decErr *DecodeError
		if errors.As(err, &decErr) {
			appLog.Error("store: data file is malformed; starting empty", err, "path", s.path)
		} else {
			appLog.Error("store: failed to read data file; starting empty", err, "path", s.path)
		}
		events = []model.Event{}
	}

	s.mu.Lock()
	s.events = events
	s.mu.Unlock()

	appLog.Info("store loaded", "path", s.path, "count", len(events))
}

func (s *Store) load() ([]model.Event, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []model.Event{}, nil
		}
		return nil, &IOError{Op: "read", Path: s.path, Err: err}
	}

	events, err := s.codec.Unmarshal(data)
	if err != nil {
		return nil, &DecodeError{Path: s.path, Err: err}
	}
	return dedupeEvents(events), nil
}

// Save writes the current collection to disk. Failures are logged only.
func (s *Store) Save() {
	s.mu.RLock()
	err := s.save()
	s.mu.RUnlock()
	if err != nil {
		appLog.Error("store: save failed; keeping in-memory state", err, "path", s.path)
	}
}

// save writes the file atomically with 0600 perms. Caller must hold at
// least a read lock.
func (s *Store) save() error {
	data, err := s.codec.Marshal(s.events)
	if err != nil {
		return &IOError{Op: "encode", Path: s.path, Err: err}
	}
	if err := atomicfile.Write(s.path, data, 0o600); err != nil {
		return &IOError{Op: "write", Path: s.path, Err: err}
	}

	appLog.Debug("store saved", "path", s.path, "count", len(s.events))
	return nil
}

// Add inserts ev, or replaces the event with the same ID, keeps the
// collection sorted by date and persists it.
func (s *Store) Add(ev model.Event) {
	ev = dedupeChecklist(ev.Clone())
	if ev.Checklist == nil {
		ev.Checklist = []model.ChecklistItem{}
	}

	s.mu.Lock()
	replaced := false
	for i := range s.events {
		if s.events[i].ID == ev.ID {
			s.events[i] = ev
			replaced = true
			break
		}
	}
	if !replaced {
		s.events = append(s.events, ev)
	}
	sortByDate(s.events)
	s.mu.Unlock()

	appLog.Debug("store upsert", "id", ev.ID, "replaced", replaced)
	s.commit()
}

// Update is Add: an upsert keyed by ID.
func (s *Store) Update(ev model.Event) {
	s.Add(ev)
}

// Delete removes the events with the given IDs and returns how many were
// removed. Nothing is written when no ID matched.
func (s *Store) Delete(ids ...uuid.UUID) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	kept := s.events[:0]
	removed := 0
	for _, ev := range s.events {
		if _, ok := drop[ev.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	s.mu.Unlock()

	if removed > 0 {
		appLog.Debug("store delete", "removed", removed)
		s.commit()
	}
	return removed
}

// DeleteAt removes events by their positions in SortedView. Out-of-range
// positions are ignored.
func (s *Store) DeleteAt(positions ...int) int {
	view := s.SortedView()
	ids := make([]uuid.UUID, 0, len(positions))
	for _, p := range positions {
		if p < 0 || p >= len(view) {
			continue
		}
		ids = append(ids, view[p].ID)
	}
	return s.Delete(ids...)
}

// ToggleChecklistItem flips one checklist item and persists the event.
func (s *Store) ToggleChecklistItem(eventID, itemID uuid.UUID) bool {
	ev, ok := s.Get(eventID)
	if !ok {
		return false
	}
	if !ev.ToggleChecklistItem(itemID) {
		return false
	}
	s.Update(ev)
	return true
}

// Get looks up one event by ID.
func (s *Store) Get(id uuid.UUID) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.events {
		if ev.ID == id {
			return ev.Clone(), true
		}
	}
	return model.Event{}, false
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// SortedView returns a copy of the collection ordered by ascending date.
// Events with equal dates keep their insertion order.
func (s *Store) SortedView() []model.Event {
	s.mu.RLock()
	out := cloneAll(s.events)
	s.mu.RUnlock()
	sortByDate(out)
	return out
}

// Search returns the events of SortedView whose name contains query,
// ignoring case. An empty query returns the whole view.
func (s *Store) Search(query string) []model.Event {
	view := s.SortedView()
	if query == "" {
		return view
	}
	needle := strings.ToLower(query)
	out := make([]model.Event, 0, len(view))
	for _, ev := range view {
		if strings.Contains(strings.ToLower(ev.Name), needle) {
			out = append(out, ev)
		}
	}
	return out
}

// Subscribe registers fn to receive the date-sorted collection after every
// mutation. The returned function unregisters it.
func (s *Store) Subscribe(fn func(events []model.Event)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.listeners, id)
			s.subMu.Unlock()
		})
	}
}

// commit persists and notifies. Listeners run without any store lock held.
func (s *Store) commit() {
	s.Save()

	view := s.SortedView()

	s.subMu.Lock()
	fns := make([]func(events []model.Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(cloneAll(view))
	}
}

func sortByDate(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
}

func cloneAll(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	for i, ev := range events {
		out[i] = ev.Clone()
	}
	return out
}

// dedupeEvents keeps one event per ID. A later duplicate replaces the
// earlier one in place, as an upsert would. Checklists are deduped too.
func dedupeEvents(events []model.Event) []model.Event {
	out := make([]model.Event, 0, len(events))
	index := make(map[uuid.UUID]int, len(events))
	for _, ev := range events {
		ev = dedupeChecklist(ev)
		if i, dup := index[ev.ID]; dup {
			appLog.Warn("store: duplicate event id in data file; keeping the last one", "id", ev.ID)
			out[i] = ev
			continue
		}
		index[ev.ID] = len(out)
		out = append(out, ev)
	}
	return out
}

// dedupeChecklist keeps the first item for each checklist ID.
func dedupeChecklist(ev model.Event) model.Event {
	if len(ev.Checklist) < 2 {
		return ev
	}
	seen := make(map[uuid.UUID]struct{}, len(ev.Checklist))
	kept := ev.Checklist[:0]
	for _, it := range ev.Checklist {
		if _, dup := seen[it.ID]; dup {
			appLog.Warn("store: dropping duplicate checklist item", "event", ev.ID, "item", it.ID)
			continue
		}
		seen[it.ID] = struct{}{}
		kept = append(kept, it)
	}
	ev.Checklist = kept
	return ev
}
