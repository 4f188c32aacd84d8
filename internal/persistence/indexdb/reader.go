package indexdb

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Reader runs read-only queries against an index file.
type Reader struct {
	db *sqlx.DB
}

func OpenReader(path string) (*Reader, error) {
	return open(path)
}

func (r *Reader) Close() error { return r.db.Close() }

type EventRow struct {
	ID        string  `db:"id" json:"id"`
	SessionID string  `db:"session_id" json:"session_id"`
	Seq       int64   `db:"seq" json:"seq"`
	Stamp     float64 `db:"stamp" json:"stamp"`
	Type      string  `db:"event_type" json:"event_type"`
	Category  string  `db:"category" json:"category"`
	ActorID   string  `db:"actor_id" json:"actor_id,omitempty"`
	ActorRole string  `db:"actor_role" json:"actor_role,omitempty"`
	TargetID  string  `db:"target_id" json:"target_id,omitempty"`
	RuleID    string  `db:"rule_id" json:"rule_id,omitempty"`
	SourceID  string  `db:"source_id" json:"source_id,omitempty"`
	Topic     string  `db:"topic" json:"topic,omitempty"`
	Note      string  `db:"note" json:"note,omitempty"`
	Severity  int     `db:"severity" json:"severity"`
	Trust     float64 `db:"trust" json:"trust"`
	Delta     int     `db:"delta" json:"delta"`
	PlaceID   string  `db:"place_id" json:"place_id,omitempty"`
}

type SessionRow struct {
	ID          string  `db:"id" json:"id"`
	StartedAt   string  `db:"started_at" json:"started_at"`
	TickRateHz  int     `db:"tick_rate_hz" json:"tick_rate_hz"`
	EndedAt     string  `db:"ended_at" json:"ended_at,omitempty"`
	Cause       string  `db:"cause" json:"cause,omitempty"`
	Reason      string  `db:"reason" json:"reason,omitempty"`
	Elapsed     float64 `db:"elapsed" json:"elapsed"`
	SummaryJSON string  `db:"summary_json" json:"summary,omitempty"`
}

// EventFilter narrows Events. Zero fields match everything.
type EventFilter struct {
	SessionID string
	Type      string
	Category  string
	ActorID   string
	RuleID    string
	Limit     int
}

// Events returns matching records in session order, newest Limit only.
func (r *Reader) Events(ctx context.Context, f EventFilter) ([]EventRow, error) {
	var (
		where []string
		args  []any
	)
	add := func(col, v string) {
		if v != "" {
			where = append(where, col+" = ?")
			args = append(args, v)
		}
	}
	add("session_id", f.SessionID)
	add("event_type", f.Type)
	add("category", f.Category)
	add("actor_id", f.ActorID)
	add("rule_id", f.RuleID)

	q := "SELECT * FROM events"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 || limit > 10000 {
		limit = 200
	}
	q = "SELECT * FROM (" + q + " ORDER BY session_id DESC, seq DESC LIMIT ?) ORDER BY session_id, seq"
	args = append(args, limit)

	var rows []EventRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Reader) Sessions(ctx context.Context) ([]SessionRow, error) {
	var rows []SessionRow
	err := r.db.SelectContext(ctx, &rows, "SELECT * FROM sessions ORDER BY started_at")
	return rows, err
}

// CountByType tallies one session's events per type.
func (r *Reader) CountByType(ctx context.Context, sessionID string) (map[string]int, error) {
	var rows []struct {
		Type  string `db:"event_type"`
		Count int    `db:"n"`
	}
	err := r.db.SelectContext(ctx, &rows, "SELECT event_type, COUNT(*) AS n FROM events WHERE session_id = ? GROUP BY event_type", sessionID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Type] = row.Count
	}
	return out, nil
}

func (r *Reader) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := r.db.GetContext(ctx, &d, "SELECT digest FROM catalogs WHERE name = ?", name)
	return d, err
}
