package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"dreamofone.ai/internal/protocol"
	"dreamofone.ai/internal/sim/events"
	"dreamofone.ai/internal/sim/world"
)

// Server streams the session event log to read-only observers. A slow
// observer loses records instead of slowing the world.
type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
	dropped  atomic.Uint64
	sessions atomic.Int64
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Dropped counts EVENT messages discarded because an observer fell behind.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

func (s *Server) Observers() int { return int(s.sessions.Load()) }

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := decodeSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}
		s.sessions.Add(1)
		defer s.sessions.Add(-1)

		var current atomic.Pointer[filter]
		current.Store(newFilter(sub))

		out := make(chan []byte, 1024)
		seen := map[string]bool{}
		// Subscribe before reading the backlog so nothing falls in between;
		// live copies of backlog records are skipped by id.
		live := make(chan events.Record, 1024)
		cancelSub := s.world.Log().Subscribe(func(rec events.Record) {
			select {
			case live <- rec:
			default:
				s.dropped.Add(1)
			}
		})
		defer cancelSub()

		for _, rec := range s.world.Log().RecentEvents(normalizeBacklog(sub.Backlog)) {
			seen[rec.ID] = true
			if current.Load().match(rec) {
				out <- eventBytes(rec)
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		writeErr := make(chan error, 1)
		go func() {
			poll := time.NewTicker(time.Second)
			defer poll.Stop()
			for {
				var b []byte
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b = <-out:
				case rec := <-live:
					if seen[rec.ID] {
						delete(seen, rec.ID)
						continue
					}
					if !current.Load().match(rec) {
						continue
					}
					b = eventBytes(rec)
				case <-poll.C:
					b, _ = json.Marshal(s.world.Status().SessionMsg())
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					writeErr <- err
					cancel()
					return
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if sub, ok := decodeSubscribe(msg); ok {
				current.Store(newFilter(sub))
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func decodeSubscribe(msg []byte) (protocol.SubscribeMsg, bool) {
	var sub protocol.SubscribeMsg
	if err := protocol.DecodeValidated(protocol.SchemaSubscribe, msg, &sub); err != nil {
		return sub, false
	}
	return sub, sub.ProtocolVersion == protocol.Version
}

func eventBytes(rec events.Record) []byte {
	raw, _ := json.Marshal(rec)
	b, _ := json.Marshal(protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		Summary:         events.Summarize(rec),
		Event:           raw,
	})
	return b
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
