package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dreamofone.ai/internal/persistence/indexdb"
)

// indexFlags registers -data/-db and returns the resolved index path after Parse.
func indexFlags(fs *flag.FlagSet) func() string {
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite index path (default: <data>/index/events.sqlite)")
	return func() string {
		if p := strings.TrimSpace(*dbPath); p != "" {
			return p
		}
		return filepath.Join(*dataDir, "index", "events.sqlite")
	}
}

func openIndex(path string) *indexdb.Reader {
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "index:", err)
		os.Exit(1)
	}
	r, err := indexdb.OpenReader(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return r
}

func queryContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func sessionsCmd(args []string) {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	path := indexFlags(fs)
	_ = fs.Parse(args)

	r := openIndex(path())
	defer r.Close()
	ctx, cancel := queryContext()
	defer cancel()

	rows, err := r.Sessions(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	printJSONLines(rows)
}

func eventsCmd(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	path := indexFlags(fs)
	session := fs.String("session", "", "session id filter")
	typ := fs.String("type", "", "event type filter (e.g. ViolationDetected)")
	category := fs.String("category", "", "category filter (e.g. Rule)")
	actor := fs.String("actor", "", "actor id filter")
	rule := fs.String("rule", "", "rule id filter")
	limit := fs.Int("limit", 50, "result limit (newest rows)")
	_ = fs.Parse(args)

	r := openIndex(path())
	defer r.Close()
	ctx, cancel := queryContext()
	defer cancel()

	rows, err := r.Events(ctx, indexdb.EventFilter{
		SessionID: strings.TrimSpace(*session),
		Type:      strings.TrimSpace(*typ),
		Category:  strings.TrimSpace(*category),
		ActorID:   strings.TrimSpace(*actor),
		RuleID:    strings.TrimSpace(*rule),
		Limit:     *limit,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	printJSONLines(rows)
}

func countsCmd(args []string) {
	fs := flag.NewFlagSet("counts", flag.ExitOnError)
	path := indexFlags(fs)
	session := fs.String("session", "", "session id (required)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*session) == "" {
		fmt.Fprintln(os.Stderr, "missing -session")
		os.Exit(2)
	}
	r := openIndex(path())
	defer r.Close()
	ctx, cancel := queryContext()
	defer cancel()

	counts, err := r.CountByType(ctx, *session)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("%-22s %d\n", t, counts[t])
	}
}
