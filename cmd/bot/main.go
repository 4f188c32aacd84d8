package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"dreamofone.ai/internal/protocol"
)

// Lines the bot cycles through. Mostly harmless, with an occasional slip.
var lines = []struct {
	act  string
	text string
}{
	{"Comply", "one coffee please"},
	{"Inquire", "which platform is the next train?"},
	{"Comply", "thanks, have a nice day"},
	{"Inquire", "wait, what happened just now?"},
	{"Break", "is this a dream?"},
}

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "player name")
		role     = flag.String("role", "Player", "role id")
		place    = flag.String("place", "Store", "starting place")
		interval = flag.Duration("interval", 5*time.Second, "delay between lines")
		slips    = flag.Bool("slips", false, "allow Break lines")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       *name,
		Role:            *role,
		PlaceID:         *place,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		readLoop(conn, logger)
	}()

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	t := time.NewTicker(*interval)
	defer t.Stop()
	seq := 0
	for {
		select {
		case <-stop:
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			return
		case <-done:
			return
		case <-t.C:
			l := lines[r.Intn(len(lines))]
			if l.act == "Break" && !*slips {
				continue
			}
			seq++
			say := protocol.SayMsg{
				Type:            protocol.TypeSay,
				ProtocolVersion: protocol.Version,
				ID:              fmt.Sprintf("S_%d", seq),
				Act:             l.act,
				Text:            l.text,
				PlaceID:         *place,
			}
			if err := conn.WriteJSON(say); err != nil {
				logger.Printf("send SAY: %v", err)
				return
			}
		}
	}
}

func readLoop(conn *websocket.Conn, logger *log.Logger) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME agent_id=%s session=%s tick_rate=%d laws=%.12s", w.AgentID, w.SessionID, w.TickRateHz, w.Catalogs.Laws)

		case protocol.TypeAck:
			var a protocol.AckMsg
			if err := json.Unmarshal(msg, &a); err != nil {
				continue
			}
			if a.Accepted {
				logger.Printf("ACK %s hits=%d", a.AckFor, a.Hits)
			} else {
				logger.Printf("ACK %s rejected code=%s %s", a.AckFor, a.Code, a.Message)
			}

		case protocol.TypeSession:
			var s protocol.SessionMsg
			if err := json.Unmarshal(msg, &s); err != nil {
				continue
			}
			logger.Printf("SESSION ended=%v cause=%s reason=%s g=%.2f exposure=%d", s.Ended, s.Cause, s.Reason, s.Global, s.Exposure)

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("ERROR %s: %s", e.Code, e.Message)
		}
	}
}
