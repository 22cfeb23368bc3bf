// Package feed keeps an .ics copy of the store on disk so other calendar
// apps can subscribe to it. Writes happen on a cron schedule and only when
// the store changed since the last write.
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"juggle/internal/atomicfile"
	"juggle/internal/ics"
	appLog "juggle/internal/log"
	"juggle/internal/model"
)

// Source is the part of the store the publisher needs.
type Source interface {
	SortedView() []model.Event
	Subscribe(fn func(events []model.Event)) (cancel func())
}

// Publisher rewrites Path from Source on Schedule.
type Publisher struct {
	src      Source
	path     string
	schedule string
	now      func() time.Time

	mu    sync.Mutex
	dirty bool
}

// New returns a publisher. The first scheduled tick always writes.
func New(src Source, path, schedule string) *Publisher {
	return &Publisher{
		src:      src,
		path:     path,
		schedule: schedule,
		now:      time.Now,
		dirty:    true,
	}
}

// Run starts the cron scheduler and blocks until ctx is canceled.
func (p *Publisher) Run(ctx context.Context) error {
	cancelSub := p.src.Subscribe(func([]model.Event) {
		p.mu.Lock()
		p.dirty = true
		p.mu.Unlock()
	})
	defer cancelSub()

	c := cron.New()
	if _, err := c.AddFunc(p.schedule, p.tick); err != nil {
		return err
	}

	appLog.Info("feed publisher started", "path", p.path, "schedule", p.schedule)
	c.Start()

	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	appLog.Info("feed publisher stopped")
	return nil
}

func (p *Publisher) tick() {
	p.mu.Lock()
	dirty := p.dirty
	p.mu.Unlock()
	if !dirty {
		appLog.Debug("feed unchanged; skipping write", "path", p.path)
		return
	}
	if err := p.PublishNow(); err != nil {
		appLog.Error("feed publish failed", err, "path", p.path)
	}
}

// PublishNow writes the feed immediately.
func (p *Publisher) PublishNow() error {
	p.mu.Lock()
	p.dirty = false
	p.mu.Unlock()

	events := p.src.SortedView()
	body := ics.Export(events, p.now())

	if err := atomicfile.Write(p.path, []byte(body), 0o644); err != nil {
		p.mu.Lock()
		p.dirty = true
		p.mu.Unlock()
		return err
	}

	appLog.Info("feed published", "path", p.path, "count", len(events))
	return nil
}
