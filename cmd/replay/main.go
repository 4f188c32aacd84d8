package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	persistlog "dreamofone.ai/internal/persistence/log"
	"dreamofone.ai/internal/sim/events"
	"dreamofone.ai/internal/sim/session"
)

var errStop = errors.New("stop")

func main() {
	var (
		dir       = flag.String("dir", "", "session archive dir (data/sessions/<id>)")
		eventType = flag.String("type", "", "only print records of this event type")
		printAll  = flag.Bool("print", false, "print one summary line per record")
		limit     = flag.Int("limit", 0, "stop after this many records (0 = all)")
	)
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "missing -dir")
		os.Exit(2)
	}

	files, err := persistlog.Files(filepath.Join(*dir, "events"), "events")
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", *dir)
		os.Exit(1)
	}

	r := &replayer{
		filter: events.Type(strings.TrimSpace(*eventType)),
		print:  *printAll,
		limit:  *limit,
		counts: map[events.Type]int{},
	}
	for _, path := range files {
		err := persistlog.ReadFile(path, r.visit)
		if errors.Is(err, errStop) {
			break
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}
	r.report(os.Stdout)
	if r.disorder > 0 {
		os.Exit(1)
	}
}

type replayer struct {
	filter events.Type
	print  bool
	limit  int

	sessions map[string]bool
	records  []events.Record
	counts   map[events.Type]int
	lastAt   float64
	disorder int
}

// visit checks stamps never go backwards within a session and tallies records.
func (r *replayer) visit(e persistlog.Entry) error {
	if r.sessions == nil {
		r.sessions = map[string]bool{}
	}
	rec := e.Record
	if !r.sessions[e.SessionID] {
		r.sessions[e.SessionID] = true
		r.lastAt = rec.Stamp
	}
	if rec.Stamp < r.lastAt {
		r.disorder++
		fmt.Fprintf(os.Stderr, "out of order: %s at %.2f after %.2f\n", rec.ID, rec.Stamp, r.lastAt)
	}
	r.lastAt = rec.Stamp
	r.records = append(r.records, rec)
	r.counts[rec.Type]++

	if r.print && (r.filter == "" || r.filter == rec.Type) {
		fmt.Printf("%8.2f %-20s %s\n", rec.Stamp, rec.Type, events.Summarize(rec))
	}
	if r.limit > 0 && len(r.records) >= r.limit {
		return errStop
	}
	return nil
}

func (r *replayer) report(out io.Writer) {
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Fprintf(out, "sessions=%s records=%d out_of_order=%d\n", strings.Join(ids, ","), len(r.records), r.disorder)

	types := make([]string, 0, len(r.counts))
	for t := range r.counts {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(out, "  %-22s %d\n", t, r.counts[events.Type(t)])
	}
	fmt.Fprintln(out, session.Summarize(r.records).String())
}
