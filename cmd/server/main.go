package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"dreamofone.ai/internal/crashreport"
	"dreamofone.ai/internal/llm"
	"dreamofone.ai/internal/persistence/indexdb"
	persistlog "dreamofone.ai/internal/persistence/log"
	"dreamofone.ai/internal/sim/catalogs"
	"dreamofone.ai/internal/sim/laws"
	"dreamofone.ai/internal/sim/planning"
	"dreamofone.ai/internal/sim/tuning"
	"dreamofone.ai/internal/sim/world"
)

var version = "dev"

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		sessionID  = flag.String("session", "", "session id (default: random)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		rosterPath = flag.String("roster", "", "path to world.yaml (default: <configs>/world.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite event index")
		noArchive  = flag.Bool("disable_archive", false, "disable the jsonl event archive")
		walkSpeed  = flag.Float64("walk_speed", 4, "npc walk speed in world units per second")
	)
	flag.Parse()

	logger := log.New(crashreport.NewWriter(os.Stdout, crashreport.LevelInfo), "[server] ", log.LstdFlags|log.Lmicroseconds)

	if err := crashreport.Init(strings.TrimSpace(os.Getenv("SENTRY_DSN")), "dreamofone-server", version); err != nil {
		// Non-fatal: crash reporting must not prevent startup.
		logger.Printf("sentry init: %v", err)
	}
	defer crashreport.Flush()
	defer crashreport.RecoverPanic()

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	for _, issue := range cats.Validate(laws.KnownDetector) {
		logger.Printf("catalogs: %s", issue)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	rp := strings.TrimSpace(*rosterPath)
	if rp == "" {
		rp = filepath.Join(*configDir, "world.yaml")
	}
	roster, err := world.LoadRoster(rp)
	if err != nil {
		logger.Fatalf("load roster: %v", err)
	}

	sid := strings.TrimSpace(*sessionID)
	if sid == "" {
		sid = "S" + strings.ReplaceAll(uuid.NewString()[:13], "-", "")
	}
	crashreport.SetSession(sid, tune.TickRateHz)

	var planner planning.Planner
	client := llm.NewClient(llm.Config{
		APIKey:       os.Getenv("DREAM_PLANNER_API_KEY"),
		Endpoint:     tune.Planner.Endpoint,
		Model:        tune.Planner.Model,
		Timeout:      time.Duration(tune.Planner.TimeoutSeconds * float64(time.Second)),
		MaxPerMinute: tune.Planner.MaxPerMinute,
	})
	if client != nil {
		client.SetLogger(logger)
		planner = client
	} else {
		logger.Printf("planner disabled (DREAM_PLANNER_API_KEY not set); agents use fallback lines")
	}

	w, err := world.New(world.Config{
		SessionID: sid,
		Tuning:    tune,
		Catalogs:  cats,
		Roster:    roster,
		WalkSpeed: *walkSpeed,
	}, planner)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	w.SetLogger(logger)
	w.SetPanicHandler(crashreport.CaptureRecovered)

	sessionDir := filepath.Join(*dataDir, "sessions", sid)
	if !*noArchive {
		archive := persistlog.NewArchive(sessionDir, sid)
		archive.SetLogger(logger)
		defer archive.Close()
		w.Log().Subscribe(archive.Observe)
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "events.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.StartSession(sid, tune.TickRateHz); err != nil {
			logger.Printf("index: start session: %v", err)
		}
		if err := idx.UpsertCatalogs(cats.Digests(), tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
		w.Log().Subscribe(idx.ObserverFor(sid))
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()
	go watchOutcome(ctx, w, idx, logger)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           crashreport.Middleware(newMux(w, idx, logger)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("session %s listening on %s", sid, *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	<-w.Done()
}

// watchOutcome records the session outcome in the index once it ends.
func watchOutcome(ctx context.Context, w *world.World, idx *indexdb.SQLiteIndex, logger *log.Logger) {
	t := time.NewTicker(500 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st := w.Status()
			if st.Outcome == nil {
				continue
			}
			logger.Printf("session %s ended: %s (%s) %s", st.SessionID, st.Outcome.Cause, st.Outcome.Reason, st.Outcome.Summary)
			if idx != nil {
				idx.RecordOutcome(st.SessionID, *st.Outcome)
			}
			return
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
