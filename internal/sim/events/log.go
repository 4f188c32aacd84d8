package events

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultCapacity = 512

// Observer receives every finalised record in insertion order.
type Observer func(Record)

type Stats struct {
	Appended       uint64 `json:"appended"`
	Evicted        uint64 `json:"evicted"`
	ObserverPanics uint64 `json:"observer_panics"`
	Size           int    `json:"size"`
	Capacity       int    `json:"capacity"`
}

type observerEntry struct {
	id uint64
	fn Observer
}

// Log is the bounded, append-only world event history.
//
// Appends may come from observers reacting to an earlier record. Those records
// are stored immediately but dispatched only after the current record reached
// every observer, so all observers see one total order.
type Log struct {
	clock  Clock
	logger *log.Logger

	mu       sync.Mutex
	buf      []Record
	head     int
	size     int
	appended uint64
	evicted  uint64
	panics   uint64

	observers []observerEntry
	nextObsID uint64

	pending     []Record
	dispatching bool
}

// NewLog creates a log holding at most capacity records. A nil clock measures
// wall time since creation.
func NewLog(capacity int, clock Clock) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if clock == nil {
		clock = wallClock{start: time.Now()}
	}
	return &Log{
		clock: clock,
		buf:   make([]Record, capacity),
	}
}

func (l *Log) SetLogger(logger *log.Logger) {
	l.mu.Lock()
	l.logger = logger
	l.mu.Unlock()
}

func (l *Log) Capacity() int { return len(l.buf) }

func (l *Log) Now() float64 { return l.clock.Now() }

// Append finalises rec (id, stamp, category), stores it and notifies observers.
// The record is accepted as given otherwise.
func (l *Log) Append(rec Record) Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Stamp = l.clock.Now()
	if rec.Category == "" {
		rec.Category = InferCategory(rec.Type)
	}

	l.mu.Lock()
	l.storeLocked(rec)
	l.pending = append(l.pending, rec)
	if l.dispatching {
		l.mu.Unlock()
		return rec
	}
	l.dispatching = true
	l.mu.Unlock()

	l.drain()
	return rec
}

func (l *Log) storeLocked(rec Record) {
	capacity := len(l.buf)
	if l.size < capacity {
		l.buf[(l.head+l.size)%capacity] = rec
		l.size++
	} else {
		l.buf[l.head] = rec
		l.head = (l.head + 1) % capacity
		l.evicted++
	}
	l.appended++
}

func (l *Log) drain() {
	for {
		l.mu.Lock()
		if len(l.pending) == 0 {
			l.dispatching = false
			l.mu.Unlock()
			return
		}
		rec := l.pending[0]
		l.pending[0] = Record{}
		l.pending = l.pending[1:]
		obs := make([]observerEntry, len(l.observers))
		copy(obs, l.observers)
		l.mu.Unlock()

		for _, o := range obs {
			l.notify(o, rec)
		}
	}
}

func (l *Log) notify(o observerEntry, rec Record) {
	defer func() {
		if r := recover(); r != nil {
			l.mu.Lock()
			l.panics++
			logger := l.logger
			l.mu.Unlock()
			if logger != nil {
				logger.Printf("events: observer %d panicked on %s %s: %v", o.id, rec.Type, rec.ID, r)
			}
		}
	}()
	o.fn(rec)
}

// Subscribe registers fn and returns a function that removes it.
func (l *Log) Subscribe(fn Observer) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	l.mu.Lock()
	l.nextObsID++
	id := l.nextObsID
	l.observers = append(l.observers, observerEntry{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, o := range l.observers {
				if o.id == id {
					l.observers = append(l.observers[:i:i], l.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// RecentEvents returns the last min(n, size) records, oldest first.
func (l *Log) RecentEvents(n int) []Record {
	if n <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > l.size {
		n = l.size
	}
	out := make([]Record, n)
	capacity := len(l.buf)
	start := l.size - n
	for i := 0; i < n; i++ {
		out[i] = l.buf[(l.head+start+i)%capacity]
	}
	return out
}

// FindByID scans retained records, newest first.
func (l *Log) FindByID(id string) (Record, bool) {
	if id == "" {
		return Record{}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	capacity := len(l.buf)
	for i := l.size - 1; i >= 0; i-- {
		rec := l.buf[(l.head+i)%capacity]
		if rec.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

func (l *Log) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Appended:       l.appended,
		Evicted:        l.evicted,
		ObserverPanics: l.panics,
		Size:           l.size,
		Capacity:       len(l.buf),
	}
}

// Clear drops retained history. Observers and counters are kept.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.buf {
		l.buf[i] = Record{}
	}
	l.head = 0
	l.size = 0
}
