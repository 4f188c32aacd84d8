package protocol

import "encoding/json"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentName       string `json:"agent_name"`
	Role            string `json:"role,omitempty"`
	PlaceID         string `json:"place_id,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	AgentID         string         `json:"agent_id"`
	SessionID       string         `json:"session_id"`
	TickRateHz      int            `json:"tick_rate_hz"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	Laws         string `json:"laws"`
	Roles        string `json:"roles"`
	Skills       string `json:"skills"`
	TextSurfaces string `json:"text_surfaces"`
	Tuning       string `json:"tuning,omitempty"`
}

// SAY (client -> server): one speech act from the player.
type SayMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Act             string `json:"act"`
	Text            string `json:"text"`
	PlaceID         string `json:"place_id,omitempty"`
}

// MOVE (client -> server): the player entered a place.
type MoveMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ID              string     `json:"id"`
	PlaceID         string     `json:"place_id"`
	ZoneID          string     `json:"zone_id,omitempty"`
	Position        [3]float64 `json:"pos"`
}

type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	Hits            int    `json:"hits,omitempty"`
}

// SUBSCRIBE (observer -> server)
type SubscribeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Categories      []string `json:"categories,omitempty"`
	EventTypes      []string `json:"event_types,omitempty"`
	Backlog         int      `json:"backlog,omitempty"`
}

// EVENT (server -> observer). Event holds the raw record.
type EventMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Summary         string          `json:"summary"`
	Event           json.RawMessage `json:"event"`
}

// SESSION (server -> observer, client)
type SessionMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Ended           bool    `json:"ended"`
	Cause           string  `json:"cause,omitempty"`
	Reason          string  `json:"reason,omitempty"`
	Elapsed         float64 `json:"elapsed"`
	Global          float64 `json:"g"`
	Exposure        int     `json:"exposure"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
