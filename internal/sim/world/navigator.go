package world

import (
	"math"
	"strings"

	"dreamofone.ai/internal/sim/events"
)

// Navigator moves agents toward named anchors a little every tick.
type Navigator struct {
	w       *World
	anchors map[string]AnchorDef
	names   map[string]string
}

func newNavigator(w *World, anchors map[string]AnchorDef) *Navigator {
	n := &Navigator{w: w, anchors: map[string]AnchorDef{}, names: map[string]string{}}
	for name, a := range anchors {
		key := strings.ToLower(name)
		n.anchors[key] = a
		n.names[key] = name
	}
	return n
}

func (n *Navigator) lookup(name string) (string, AnchorDef, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	a, ok := n.anchors[key]
	return n.names[key], a, ok
}

// MoveToward implements planning.Navigator. It is rejected when the agent
// cannot navigate or the anchor is unknown.
func (n *Navigator) MoveToward(agentID, anchor string) bool {
	a := n.w.agents[agentID]
	if a == nil || !a.Navigates {
		return false
	}
	name, _, ok := n.lookup(anchor)
	if !ok {
		return false
	}
	a.Target = name
	return true
}

// placePos is the first anchor position belonging to place, in name order.
func (n *Navigator) placePos(place string) events.Vec3 {
	best := ""
	var pos events.Vec3
	for key, a := range n.anchors {
		if strings.EqualFold(a.Place, place) && (best == "" || key < best) {
			best = key
			pos = a.Pos
		}
	}
	return pos
}

// step advances every walking agent by speed*dt and reports arrivals.
func (n *Navigator) step(dt, speed float64) []string {
	var arrived []string
	for _, id := range n.w.order {
		a := n.w.agents[id]
		if a.Target == "" {
			continue
		}
		_, anchor, ok := n.lookup(a.Target)
		if !ok {
			a.Target = ""
			continue
		}
		d := [3]float64{anchor.Pos[0] - a.Pos[0], anchor.Pos[1] - a.Pos[1], anchor.Pos[2] - a.Pos[2]}
		dist := math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
		stepLen := speed * dt
		if dist <= stepLen || dist == 0 {
			a.Pos = anchor.Pos
			arrived = append(arrived, id)
			continue
		}
		for i := range d {
			a.Pos[i] += d[i] / dist * stepLen
		}
	}
	return arrived
}
