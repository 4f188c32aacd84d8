package observer

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"dreamofone.ai/internal/protocol"
	"dreamofone.ai/internal/sim/catalogs"
	"dreamofone.ai/internal/sim/events"
	"dreamofone.ai/internal/sim/tuning"
	"dreamofone.ai/internal/sim/world"
)

func TestFilter(t *testing.T) {
	f := newFilter(protocol.SubscribeMsg{Categories: []string{"rule"}, EventTypes: []string{" ViolationDetected "}})
	if !f.match(events.Record{Type: events.ViolationDetected, Category: events.CategoryRule}) {
		t.Fatalf("expected match")
	}
	if f.match(events.Record{Type: events.StatementGiven, Category: events.CategoryRule}) {
		t.Fatalf("type filter ignored")
	}
	if !newFilter(protocol.SubscribeMsg{}).match(events.Record{Type: events.NpcUtterance}) {
		t.Fatalf("empty filter should match all")
	}
	if normalizeBacklog(0) != defaultBacklog || normalizeBacklog(9999) != maxBacklog || normalizeBacklog(5) != 5 {
		t.Fatalf("backlog normalization")
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{"127.0.0.1:5000": true, "[::1]:80": true, "10.0.0.2:80": false, "garbage": false}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("%s: got %v", in, got)
		}
	}
}

func TestServer_BacklogThenLive(t *testing.T) {
	cats, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatal(err)
	}
	tu := tuning.Defaults()
	tu.Planning.Enabled = false
	tu.Planning.FallbackChance = 0
	w, err := world.New(world.Config{SessionID: "obs", Tuning: tu, Catalogs: cats}, nil)
	if err != nil {
		t.Fatal(err)
	}
	w.Log().Append(events.Record{Type: events.NoiseObserved, PlaceID: "Park"})
	w.Log().Append(events.Record{Type: events.NpcUtterance, ActorID: "Clerk", Note: "Next, please."})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()
	defer func() {
		cancel()
		<-w.Done()
	}()

	srv := httptest.NewServer(NewServer(w, nil).WSHandler())
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	sub := protocol.SubscribeMsg{Type: protocol.TypeSubscribe, ProtocolVersion: protocol.Version, EventTypes: []string{"NpcUtterance"}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatal(err)
	}

	readEvent := func() events.Record {
		t.Helper()
		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			_, b, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			var base protocol.BaseMessage
			_ = json.Unmarshal(b, &base)
			if base.Type != protocol.TypeEvent {
				continue
			}
			var m protocol.EventMsg
			if err := json.Unmarshal(b, &m); err != nil {
				t.Fatal(err)
			}
			var rec events.Record
			if err := json.Unmarshal(m.Event, &rec); err != nil {
				t.Fatal(err)
			}
			if m.Summary == "" {
				t.Fatalf("missing summary")
			}
			return rec
		}
	}

	if rec := readEvent(); rec.Note != "Next, please." {
		t.Fatalf("backlog record=%+v", rec)
	}

	if err := w.Inject(ctx, events.Record{Type: events.NoiseObserved}); err != nil {
		t.Fatal(err)
	}
	if err := w.Inject(ctx, events.Record{Type: events.NpcUtterance, ActorID: "Police", Note: "Move along."}); err != nil {
		t.Fatal(err)
	}
	if rec := readEvent(); rec.ActorID != "Police" {
		t.Fatalf("live record=%+v", rec)
	}
}
