package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"juggle/internal/model"
	"juggle/internal/store"
)

func TestPublishNowWritesCalendar(t *testing.T) {
	dir := t.TempDir()
	s := store.New(filepath.Join(dir, "events.json"))
	s.Add(model.NewEvent("Hackathon", time.Date(2025, 7, 4, 9, 0, 0, 0, time.UTC)))

	out := filepath.Join(dir, "public", "juggle.ics")
	p := New(s, out, "@every 1h")
	require.NoError(t, p.PublishNow())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "SUMMARY:Hackathon")
	assert.False(t, p.dirty)
}

func TestTickSkipsWhenClean(t *testing.T) {
	dir := t.TempDir()
	s := store.New(filepath.Join(dir, "events.json"))
	out := filepath.Join(dir, "juggle.ics")
	p := New(s, out, "@every 1h")

	p.tick()
	_, err := os.Stat(out)
	require.NoError(t, err)

	require.NoError(t, os.Remove(out))
	p.tick()
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err), "clean publisher must not rewrite")
}

func TestRunMarksDirtyOnChange(t *testing.T) {
	dir := t.TempDir()
	s := store.New(filepath.Join(dir, "events.json"))
	p := New(s, filepath.Join(dir, "juggle.ics"), "@every 1h")
	p.dirty = false

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		s.Add(model.NewEvent("Concert", time.Now()))
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.dirty
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRunRejectsBadSchedule(t *testing.T) {
	s := store.New(filepath.Join(t.TempDir(), "events.json"))
	p := New(s, filepath.Join(t.TempDir(), "juggle.ics"), "not a schedule")

	err := p.Run(context.Background())
	assert.Error(t, err)
}
