package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"juggle/internal/config"
	"juggle/internal/feed"
	"juggle/internal/ics"
	appLog "juggle/internal/log"
	"juggle/internal/model"
	"juggle/internal/palette"
	"juggle/internal/store"
	"juggle/internal/web"
)

// runServe starts the API and, if configured, the .ics publisher. It
// returns when ctx is canceled.
func runServe(ctx context.Context, conf *config.Config, st *store.Store) error {
	srv := web.NewServer(conf, st)
	defer srv.Close()

	errCh := make(chan error, 2)
	running := 1
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	if conf.Feed.Enabled() {
		pub := feed.New(st, conf.Feed.Path, conf.Feed.Cron)
		running++
		go func() { errCh <- pub.Run(ctx) }()
	}

	var firstErr error
	for i := 0; i < running; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// dotColors maps palette names onto terminal attributes.
var dotColors = map[string]color.Attribute{
	"mint":   color.FgHiCyan,
	"purple": color.FgMagenta,
	"orange": color.FgYellow,
	"green":  color.FgGreen,
	"pink":   color.FgHiRed,
	"gray":   color.FgHiBlack,
}

func categoryDot(category string) string {
	attr, ok := dotColors[palette.For(category).Name]
	if !ok {
		attr = color.FgHiBlack
	}
	return color.New(attr).Sprint("●")
}

// runList prints the sorted view, optionally filtered by -q.
func runList(w io.Writer, conf *config.Config, st *store.Store, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(w)
	query := fs.String("q", "", "case-insensitive name filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	events := st.Search(*query)
	if len(events) == 0 {
		fmt.Fprintln(w, "No events")
		return nil
	}

	loc := conf.Location()
	for _, ev := range events {
		line := fmt.Sprintf("%s %s  %s", categoryDot(ev.Category), ev.Date.In(loc).Format("Mon Jan 2 2006 15:04"), ev.Name)
		if ev.Recurrence != model.RecurrenceNone {
			line += color.New(color.Faint).Sprintf("  (%s)", ev.Recurrence)
		}
		if n := len(ev.Checklist); n > 0 {
			line += fmt.Sprintf("  [%d/%d]", ev.CompletedCount(), n)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// runExport writes the store as iCalendar to -o or w.
func runExport(w io.Writer, st *store.Store, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(w)
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	body := ics.Export(st.SortedView(), time.Now())
	if *out == "" {
		_, err := io.WriteString(w, body)
		return err
	}
	if err := os.WriteFile(*out, []byte(body), 0o644); err != nil {
		return err
	}
	appLog.Info("exported calendar", "path", *out, "count", st.Len())
	return nil
}

// runImport adds every VEVENT from a local file or an http(s) URL.
// Re-importing the same calendar updates events in place.
func runImport(ctx context.Context, w io.Writer, st *store.Store, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: juggle import <file.ics|url>")
	}
	src := args[0]

	var (
		body []byte
		err  error
	)
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		f := ics.NewFetcher(filepath.Join(config.DefaultDir(), "ics-cache"))
		body, _, err = f.Fetch(ctx, src)
	} else {
		body, err = os.ReadFile(src)
	}
	if err != nil {
		return err
	}

	events, err := ics.Parse(body)
	if err != nil {
		return err
	}
	for _, ev := range events {
		st.Add(ev)
	}
	fmt.Fprintf(w, "Imported %d event(s)\n", len(events))
	return nil
}
