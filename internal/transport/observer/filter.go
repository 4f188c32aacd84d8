package observer

import (
	"strings"

	"dreamofone.ai/internal/protocol"
	"dreamofone.ai/internal/sim/events"
)

const (
	defaultBacklog = 32
	maxBacklog     = 512
)

// filter matches records against a SUBSCRIBE. Empty lists match everything.
type filter struct {
	categories map[string]bool
	types      map[string]bool
}

func newFilter(sub protocol.SubscribeMsg) *filter {
	f := &filter{}
	if len(sub.Categories) > 0 {
		f.categories = map[string]bool{}
		for _, c := range sub.Categories {
			f.categories[strings.ToLower(strings.TrimSpace(c))] = true
		}
	}
	if len(sub.EventTypes) > 0 {
		f.types = map[string]bool{}
		for _, t := range sub.EventTypes {
			f.types[strings.ToLower(strings.TrimSpace(t))] = true
		}
	}
	return f
}

func (f *filter) match(rec events.Record) bool {
	if f.categories != nil && !f.categories[strings.ToLower(string(rec.Category))] {
		return false
	}
	if f.types != nil && !f.types[strings.ToLower(string(rec.Type))] {
		return false
	}
	return true
}

func normalizeBacklog(n int) int {
	if n <= 0 {
		return defaultBacklog
	}
	if n > maxBacklog {
		return maxBacklog
	}
	return n
}
