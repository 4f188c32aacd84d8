package world

import (
	"context"
	"strings"

	"dreamofone.ai/internal/protocol"
	"dreamofone.ai/internal/sim/events"
	"dreamofone.ai/internal/sim/laws"
	"dreamofone.ai/internal/sim/violation"
)

type JoinRequest struct {
	Name    string
	Role    string
	PlaceID string
	Human   bool
	Resp    chan JoinResponse
}

type JoinResponse struct {
	AgentID string
	Err     error
}

type SayRequest struct {
	AgentID string
	Act     string
	Text    string
	PlaceID string
	Resp    chan SayResult
}

type SayResult struct {
	Hits []laws.Hit
	Err  error
}

type MoveRequest struct {
	AgentID string
	PlaceID string
	ZoneID  string
	Pos     events.Vec3
	Resp    chan error
}

// Inputs are everything applied at the start of one step. StepOnce takes them
// directly so tests do not need the loop goroutine.
type Inputs struct {
	Joins  []JoinRequest
	Leaves []string
	Says   []SayRequest
	Moves  []MoveRequest
	Inject []events.Record
}

func (w *World) Join(ctx context.Context, req JoinRequest) (string, error) {
	req.Resp = make(chan JoinResponse, 1)
	if err := send(ctx, w, w.join, req); err != nil {
		return "", err
	}
	select {
	case r := <-req.Resp:
		return r.AgentID, r.Err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-w.done:
		return "", errStopped
	}
}

func (w *World) Leave(id string) {
	select {
	case w.leave <- id:
	case <-w.done:
	}
}

func (w *World) Say(ctx context.Context, req SayRequest) ([]laws.Hit, error) {
	req.Resp = make(chan SayResult, 1)
	if err := send(ctx, w, w.say, req); err != nil {
		return nil, err
	}
	select {
	case r := <-req.Resp:
		return r.Hits, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.done:
		return nil, errStopped
	}
}

func (w *World) Move(ctx context.Context, req MoveRequest) error {
	req.Resp = make(chan error, 1)
	if err := send(ctx, w, w.move, req); err != nil {
		return err
	}
	select {
	case err := <-req.Resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return errStopped
	}
}

// Inject appends an externally observed record (noise, procedure, evidence)
// on the next step.
func (w *World) Inject(ctx context.Context, rec events.Record) error {
	return send(ctx, w, w.inject, rec)
}

var errStopped = protocol.NewError(protocol.ErrSessionEnded, "world stopped", nil)

func send[T any](ctx context.Context, w *World, ch chan T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return errStopped
	default:
	}
	// Full queue: the client is outrunning the tick rate.
	return protocol.NewError(protocol.ErrBusy, "input queue full", nil)
}

func (w *World) handleJoin(req JoinRequest) {
	resp := JoinResponse{}
	id := strings.TrimSpace(req.Name)
	switch {
	case id == "":
		resp.Err = protocol.NewError(protocol.ErrBadRequest, "missing agent name", nil)
	case w.agents[id] != nil:
		resp.Err = protocol.NewError(protocol.ErrBadRequest, "agent already present: "+id, nil)
	default:
		role := req.Role
		if role == "" {
			role = "Player"
		}
		a := &Agent{ID: id, Role: role, Place: req.PlaceID, Pos: w.nav.placePos(req.PlaceID), Human: req.Human}
		w.addAgent(a)
		resp.AgentID = id
		if req.PlaceID != "" {
			w.log.Append(events.Record{
				Type:      events.EnteredZone,
				Category:  events.CategoryZone,
				ActorID:   id,
				ActorRole: role,
				PlaceID:   req.PlaceID,
				Position:  a.Pos,
				Note:      "joined",
			})
		}
	}
	if req.Resp != nil {
		select {
		case req.Resp <- resp:
		default:
		}
	}
}

func (w *World) handleSay(req SayRequest) {
	res := w.say1(req)
	if req.Resp != nil {
		select {
		case req.Resp <- res:
		default:
		}
	}
}

func (w *World) say1(req SayRequest) SayResult {
	if w.director.Ended() {
		return SayResult{Err: protocol.NewError(protocol.ErrSessionEnded, "session ended", nil)}
	}
	a := w.agents[req.AgentID]
	if a == nil {
		return SayResult{Err: protocol.NewError(protocol.ErrUnknownAgent, req.AgentID, nil)}
	}
	act, err := laws.ParseSpeechAct(req.Act)
	if err != nil {
		return SayResult{Err: protocol.NewError(protocol.ErrBadRequest, "bad speech act", err)}
	}
	place := req.PlaceID
	if place == "" {
		place = a.Place
	}
	witness, witnessRole := w.witnessFor(place, a.ID)
	hits := w.applier.Apply(violation.Speech{
		Act:         act,
		Text:        req.Text,
		PlaceID:     place,
		ZoneID:      a.Zone,
		WitnessID:   witness,
		WitnessRole: witnessRole,
		TargetID:    a.ID,
		Position:    a.Pos,
	})
	return SayResult{Hits: hits}
}

func (w *World) handleMove(req MoveRequest) {
	err := w.move1(req)
	if req.Resp != nil {
		select {
		case req.Resp <- err:
		default:
		}
	}
}

func (w *World) move1(req MoveRequest) error {
	a := w.agents[req.AgentID]
	if a == nil {
		return protocol.NewError(protocol.ErrUnknownAgent, req.AgentID, nil)
	}
	a.Pos = req.Pos
	a.Zone = req.ZoneID
	if req.PlaceID != "" && !strings.EqualFold(req.PlaceID, a.Place) {
		w.changePlace(a, req.PlaceID)
	}
	return nil
}

// changePlace emits the exit/enter pair and keeps witness lookups in sync.
func (w *World) changePlace(a *Agent, place string) {
	if a.Place != "" {
		w.log.Append(events.Record{
			Type:      events.ExitedZone,
			Category:  events.CategoryZone,
			ActorID:   a.ID,
			ActorRole: a.Role,
			PlaceID:   a.Place,
			Position:  a.Pos,
		})
	}
	a.Place = place
	w.log.Append(events.Record{
		Type:      events.EnteredZone,
		Category:  events.CategoryZone,
		ActorID:   a.ID,
		ActorRole: a.Role,
		PlaceID:   place,
		Position:  a.Pos,
	})
	if !a.Human {
		w.suspicion.Move(a.ID, place)
		w.planning.SetPlace(a.ID, place)
	}
}
