package log

import (
	stdlog "log"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"dreamofone.ai/internal/sim/events"
)

// Entry is one archived record tagged with its session.
type Entry struct {
	SessionID string        `json:"session_id"`
	Wall      string        `json:"wall"`
	Record    events.Record `json:"record"`
}

type ArchiveStats struct {
	Written uint64 `json:"written"`
	Dropped uint64 `json:"dropped"`
	Errors  uint64 `json:"errors"`
}

// Archive is a write-only audit trail of every record appended to a session
// log. Observe never blocks the world loop: when the queue is full the record
// is dropped and counted.
type Archive struct {
	session string
	w       *JSONLZstdWriter
	logger  *stdlog.Logger

	ch     chan events.Record
	wg     sync.WaitGroup
	once   sync.Once
	closed atomic.Bool

	written atomic.Uint64
	dropped atomic.Uint64
	errors  atomic.Uint64
}

func NewArchive(dir, sessionID string) *Archive {
	a := &Archive{
		session: sessionID,
		w:       NewJSONLZstdWriter(filepath.Join(dir, "events"), "events"),
		ch:      make(chan events.Record, 4096),
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.loop()
	}()
	return a
}

func (a *Archive) SetLogger(l *stdlog.Logger) { a.logger = l }

// Observe matches events.Observer.
func (a *Archive) Observe(rec events.Record) {
	if a == nil || a.closed.Load() {
		return
	}
	select {
	case a.ch <- rec:
	default:
		a.dropped.Add(1)
	}
}

func (a *Archive) loop() {
	flush := time.NewTicker(time.Second)
	defer flush.Stop()
	for {
		select {
		case rec, ok := <-a.ch:
			if !ok {
				return
			}
			err := a.w.Write(Entry{SessionID: a.session, Wall: time.Now().UTC().Format(time.RFC3339Nano), Record: rec})
			if err != nil {
				if a.errors.Add(1) == 1 && a.logger != nil {
					a.logger.Printf("archive: write: %v", err)
				}
				continue
			}
			a.written.Add(1)
		case <-flush.C:
			_ = a.w.Flush()
		}
	}
}

func (a *Archive) Stats() ArchiveStats {
	return ArchiveStats{Written: a.written.Load(), Dropped: a.dropped.Load(), Errors: a.errors.Load()}
}

// Close drains the queue and closes the current file.
func (a *Archive) Close() error {
	var err error
	a.once.Do(func() {
		a.closed.Store(true)
		close(a.ch)
		a.wg.Wait()
		err = a.w.Close()
	})
	return err
}
