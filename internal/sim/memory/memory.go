// Package memory is the bounded working memory an agent carries between
// planning rounds.
package memory

import "strings"

const (
	MinCapacity     = 4
	MaxCapacity     = 64
	DefaultCapacity = 12
)

// Buffer keeps the newest entries up to its capacity.
type Buffer struct {
	capacity int
	entries  []string
}

func NewBuffer(capacity int) *Buffer {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if capacity < MinCapacity {
		capacity = MinCapacity
	}
	if capacity > MaxCapacity {
		capacity = MaxCapacity
	}
	return &Buffer{capacity: capacity}
}

func (b *Buffer) Capacity() int { return b.capacity }
func (b *Buffer) Len() int      { return len(b.entries) }

// Add stores a trimmed entry. Blank entries are ignored.
func (b *Buffer) Add(entry string) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return
	}
	b.entries = append(b.entries, entry)
	if over := len(b.entries) - b.capacity; over > 0 {
		b.entries = append(b.entries[:0], b.entries[over:]...)
	}
}

func (b *Buffer) Entries() []string {
	return append([]string(nil), b.entries...)
}

// Summary joins the last maxLines entries with newlines, or "None." when empty.
func (b *Buffer) Summary(maxLines int) string {
	if len(b.entries) == 0 {
		return "None."
	}
	if maxLines < 1 {
		maxLines = 1
	}
	if maxLines > len(b.entries) {
		maxLines = len(b.entries)
	}
	return strings.Join(b.entries[len(b.entries)-maxLines:], "\n")
}

func (b *Buffer) Clear() { b.entries = nil }
