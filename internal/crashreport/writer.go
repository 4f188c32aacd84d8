package crashreport

import (
	"io"
	"strings"

	gosentry "github.com/getsentry/sentry-go"
)

// Level represents the severity level for the writer.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// Writer tees log output to inner and forwards it to Sentry: errors become
// events, other levels breadcrumbs. Info lines that mention a panic or a
// failure are promoted to warnings.
type Writer struct {
	inner io.Writer
	level Level
}

func NewWriter(inner io.Writer, level Level) *Writer {
	return &Writer{inner: inner, level: level}
}

func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.inner.Write(p)
	if !enabled {
		return n, err
	}
	msg := strings.TrimSpace(string(p))
	if msg == "" {
		return n, err
	}

	switch levelFor(w.level, msg) {
	case LevelError:
		gosentry.CaptureMessage(msg)
	case LevelWarning:
		gosentry.AddBreadcrumb(&gosentry.Breadcrumb{Level: gosentry.LevelWarning, Category: "log", Message: msg})
	default:
		gosentry.AddBreadcrumb(&gosentry.Breadcrumb{Level: gosentry.LevelInfo, Category: "log", Message: msg})
	}
	return n, err
}

func levelFor(base Level, msg string) Level {
	if base >= LevelWarning {
		return base
	}
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "panic") || strings.Contains(lower, "failed") {
		return LevelWarning
	}
	return base
}
