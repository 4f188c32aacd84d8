package ws

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"dreamofone.ai/internal/protocol"
	"dreamofone.ai/internal/sim/world"
)

// Server is the actor input socket: a player client joins with HELLO and
// then sends SAY and MOVE, each answered with one ACK.
type Server struct {
	world  *world.World
	log    *log.Logger
	tuning string

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	b, _ := json.Marshal(w.Tuning())
	sum := sha256.Sum256(b)
	return &Server{
		world:  w,
		log:    logger,
		tuning: hex.EncodeToString(sum[:]),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		agentID := s.handshake(ctx, conn)
		if agentID == "" {
			return
		}
		defer s.world.Leave(agentID)

		out := make(chan any, 32)
		go s.writeLoop(ctx, cancel, conn, out)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			reply := s.handle(ctx, agentID, msg)
			select {
			case out <- reply:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return ""
	}
	var hello protocol.HelloMsg
	if err := protocol.DecodeValidated(protocol.SchemaHello, msg, &hello); err != nil {
		closeWith(conn, "expected HELLO")
		return ""
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return ""
	}

	id, err := s.world.Join(ctx, world.JoinRequest{Name: hello.AgentName, Role: hello.Role, PlaceID: hello.PlaceID, Human: true})
	if err != nil {
		_ = writeJSON(conn, errorMsg(err))
		closeWith(conn, "join rejected")
		return ""
	}

	d := s.world.Catalogs().Digests()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		AgentID:         id,
		SessionID:       s.world.SessionID(),
		TickRateHz:      s.world.TickRateHz(),
		Catalogs: protocol.CatalogDigests{
			Laws:         d["laws"],
			Roles:        d["roles"],
			Skills:       d["skills"],
			TextSurfaces: d["text_surfaces"],
			Tuning:       s.tuning,
		},
	}
	if err := writeJSON(conn, welcome); err != nil {
		s.world.Leave(id)
		return ""
	}
	if s.log != nil {
		s.log.Printf("ws: %s joined", id)
	}
	return id
}

// handle turns one client message into its reply.
func (s *Server) handle(ctx context.Context, agentID string, msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return errorMsg(protocol.NewError(protocol.ErrProtoBadRequest, "malformed json", err))
	}
	if base.ProtocolVersion != protocol.Version {
		return errorMsg(protocol.NewError(protocol.ErrProtoBadRequest, "bad protocol_version", nil))
	}

	switch base.Type {
	case protocol.TypeSay:
		var say protocol.SayMsg
		if err := protocol.DecodeValidated(protocol.SchemaSay, msg, &say); err != nil {
			return errorMsg(err)
		}
		hits, err := s.world.Say(ctx, world.SayRequest{AgentID: agentID, Act: say.Act, Text: say.Text, PlaceID: say.PlaceID})
		ack := ackFor(say.ID, err)
		ack.Hits = len(hits)
		return ack
	case protocol.TypeMove:
		var mv protocol.MoveMsg
		if err := protocol.DecodeValidated(protocol.SchemaMove, msg, &mv); err != nil {
			return errorMsg(err)
		}
		err := s.world.Move(ctx, world.MoveRequest{AgentID: agentID, PlaceID: mv.PlaceID, ZoneID: mv.ZoneID, Pos: mv.Position})
		return ackFor(mv.ID, err)
	default:
		return errorMsg(protocol.NewError(protocol.ErrProtoBadRequest, "unexpected type "+base.Type, nil))
	}
}

// writeLoop owns all writes after the handshake and pushes one SESSION
// message when the session ends.
func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan any) {
	defer cancel()
	poll := time.NewTicker(time.Second)
	defer poll.Stop()
	endedSent := false
	for {
		var v any
		select {
		case <-ctx.Done():
			return
		case v = <-out:
		case <-poll.C:
			st := s.world.Status()
			if !st.Ended || endedSent {
				continue
			}
			endedSent = true
			v = st.SessionMsg()
		}
		if err := writeJSON(conn, v); err != nil {
			return
		}
	}
}

func ackFor(id string, err error) protocol.AckMsg {
	ack := protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, AckFor: id, Accepted: err == nil}
	if err != nil {
		ack.Code = protocol.CodeOf(err)
		if ack.Code == "" {
			ack.Code = protocol.ErrInternal
		}
		ack.Message = err.Error()
	}
	return ack
}

func errorMsg(err error) protocol.ErrorMsg {
	code := protocol.CodeOf(err)
	if code == "" {
		code = protocol.ErrInternal
	}
	return protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: code, Message: err.Error()}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
