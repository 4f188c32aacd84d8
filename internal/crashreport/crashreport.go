// Package crashreport forwards panics and error log lines to Sentry. Every
// function is a no-op until Init succeeds with a DSN.
package crashreport

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	gosentry "github.com/getsentry/sentry-go"
)

var enabled bool

// Init configures the SDK. An empty dsn leaves reporting disabled.
func Init(dsn, program, version string) error {
	if dsn == "" {
		enabled = false
		return nil
	}
	err := gosentry.Init(gosentry.ClientOptions{
		Dsn:              dsn,
		Release:          program + "@" + version,
		AttachStacktrace: true,
		SampleRate:       1.0,
	})
	if err != nil {
		return err
	}
	gosentry.ConfigureScope(func(scope *gosentry.Scope) {
		scope.SetTag("program", program)
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("go_version", runtime.Version())
	})
	enabled = true
	return nil
}

func IsEnabled() bool { return enabled }

// Flush waits up to 2 seconds for buffered events to be sent.
func Flush() {
	if !enabled {
		return
	}
	gosentry.Flush(2 * time.Second)
}

// SetSession tags every later event with the running session.
func SetSession(sessionID string, tickRateHz int) {
	if !enabled {
		return
	}
	gosentry.ConfigureScope(func(scope *gosentry.Scope) {
		scope.SetTag("session_id", sessionID)
		scope.SetContext("session", map[string]interface{}{
			"id":           sessionID,
			"tick_rate_hz": tickRateHz,
		})
	})
}

// RecoverPanic captures a panic, flushes, then re-panics.
// Usage: defer crashreport.RecoverPanic()
func RecoverPanic() {
	if !enabled {
		return
	}
	if err := recover(); err != nil {
		gosentry.CurrentHub().Recover(err)
		gosentry.Flush(2 * time.Second)
		panic(err)
	}
}

// CaptureRecovered reports a value already recovered by the caller, such as
// a panic inside one world step.
func CaptureRecovered(v any) {
	if !enabled || v == nil {
		return
	}
	gosentry.CurrentHub().Recover(v)
}

// CaptureError reports err as an event.
func CaptureError(err error) {
	if !enabled || err == nil {
		return
	}
	gosentry.CaptureException(err)
}

// Middleware turns a handler panic into a 500 and reports it.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			if enabled {
				hub := gosentry.CurrentHub().Clone()
				hub.Scope().SetRequest(r)
				hub.Recover(v)
			}
			http.Error(rw, fmt.Sprintf("internal error: %v", v), http.StatusInternalServerError)
		}()
		next.ServeHTTP(rw, r)
	})
}
