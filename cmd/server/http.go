package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"

	"dreamofone.ai/internal/persistence/indexdb"
	"dreamofone.ai/internal/sim/world"
	"dreamofone.ai/internal/transport/observer"
	"dreamofone.ai/internal/transport/ws"
)

func newMux(w *world.World, idx *indexdb.SQLiteIndex, logger *log.Logger) *http.ServeMux {
	obs := observer.NewServer(w, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())
	mux.HandleFunc("/v1/observe", obs.WSHandler())
	mux.HandleFunc("/metrics", metricsHandler(w, idx, obs))

	if envBool("DREAM_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			resp := struct {
				world.Status
				Index     *indexdb.Stats `json:"index,omitempty"`
				Observers int            `json:"observers"`
			}{Status: w.Status(), Observers: obs.Observers()}
			if idx != nil {
				st := idx.Stats()
				resp.Index = &st
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(resp)
		})
	} else if logger != nil {
		logger.Printf("admin endpoints disabled (DREAM_ENABLE_ADMIN_HTTP=false)")
	}
	return mux
}

func metricsHandler(w *world.World, idx *indexdb.SQLiteIndex, obs *observer.Server) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		st := w.Status()
		sid := st.SessionID

		fmt.Fprintf(rw, "# HELP dream_session_tick Current session tick.\n")
		fmt.Fprintf(rw, "# TYPE dream_session_tick gauge\n")
		fmt.Fprintf(rw, "dream_session_tick{session=%q} %d\n", sid, st.Tick)

		fmt.Fprintf(rw, "# HELP dream_global_suspicion Mean normalized suspicion (0..1).\n")
		fmt.Fprintf(rw, "# TYPE dream_global_suspicion gauge\n")
		fmt.Fprintf(rw, "dream_global_suspicion{session=%q} %.6f\n", sid, st.Global)

		fmt.Fprintf(rw, "# HELP dream_exposure Player exposure.\n")
		fmt.Fprintf(rw, "# TYPE dream_exposure gauge\n")
		fmt.Fprintf(rw, "dream_exposure{session=%q} %d\n", sid, st.Exposure)

		fmt.Fprintf(rw, "# HELP dream_events_total Records appended to the session log.\n")
		fmt.Fprintf(rw, "# TYPE dream_events_total counter\n")
		fmt.Fprintf(rw, "dream_events_total{session=%q} %d\n", sid, st.Log.Appended)

		fmt.Fprintf(rw, "# HELP dream_planner_requests_total Planner round outcomes.\n")
		fmt.Fprintf(rw, "# TYPE dream_planner_requests_total counter\n")
		fmt.Fprintf(rw, "dream_planner_requests_total{session=%q,outcome=%q} %d\n", sid, "requested", st.Planning.Requests)
		fmt.Fprintf(rw, "dream_planner_requests_total{session=%q,outcome=%q} %d\n", sid, "fallback", st.Planning.Fallbacks)
		fmt.Fprintf(rw, "dream_planner_requests_total{session=%q,outcome=%q} %d\n", sid, "stale", st.Planning.Stale)
		fmt.Fprintf(rw, "dream_planner_requests_total{session=%q,outcome=%q} %d\n", sid, "rejected", st.Planning.Rejected)

		fmt.Fprintf(rw, "# HELP dream_observer_dropped_total Feed records dropped for slow observers.\n")
		fmt.Fprintf(rw, "# TYPE dream_observer_dropped_total counter\n")
		fmt.Fprintf(rw, "dream_observer_dropped_total %d\n", obs.Dropped())

		if idx != nil {
			s := idx.Stats()
			fmt.Fprintf(rw, "# HELP dream_index_queue_depth Index writer backlog.\n")
			fmt.Fprintf(rw, "# TYPE dream_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "dream_index_queue_depth %d\n", s.QueueDepth)
			fmt.Fprintf(rw, "# HELP dream_index_dropped_total Records the index dropped under load.\n")
			fmt.Fprintf(rw, "# TYPE dream_index_dropped_total counter\n")
			fmt.Fprintf(rw, "dream_index_dropped_total %d\n", s.Dropped)
		}
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
