package netplay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/L3viathan/halali/pkg/halali"
)

// Wire messages are JSON arrays with the tag first, one per line:
//
//	["status"] / ["status",{...}]
//	["cards"] / ["cards",[[...]]]
//	["move",[1,2],[3,4]]
//	["reveal",[1,2]]
//	["rescue",[1,2]]
//	["ok"]
//	["error","wrong move","path obstructed"]
//	["ping"]
//
// "disconnected" is synthetic: it is injected into the incoming queue
// on connection loss and never sent over the wire.
const (
	TagStatus       = "status"
	TagCards        = "cards"
	TagMove         = "move"
	TagReveal       = "reveal"
	TagRescue       = "rescue"
	TagOK           = "ok"
	TagError        = "error"
	TagPing         = "ping"
	TagDisconnected = "disconnected"
)

// Status is the payload of a status reply. Points uses team names as
// keys; TurnsLeft is absent during the reveal phase.
type Status struct {
	ToPlay     halali.Team         `json:"to_play"`
	ClientTeam halali.Team         `json:"client_team"`
	Points     map[halali.Team]int `json:"points"`
	TurnsLeft  *float64            `json:"turns_left,omitempty"`
	Version    string              `json:"version"`
}

// Message is one wire message. Which fields are meaningful depends on
// the tag; the custom codec below maps them onto the positional array
// format.
type Message struct {
	Tag    string
	From   halali.Loc // reveal/rescue location, or the move source
	To     halali.Loc // move destination
	Status *Status
	Cards  halali.Snapshot
	What   string // error subject, e.g. "wrong move"
	Reason string
}

func (m Message) MarshalJSON() ([]byte, error) {
	parts := []interface{}{m.Tag}
	switch m.Tag {
	case TagMove:
		parts = append(parts, m.From, m.To)
	case TagReveal, TagRescue:
		parts = append(parts, m.From)
	case TagStatus:
		if m.Status != nil {
			parts = append(parts, m.Status)
		}
	case TagCards:
		if m.Cards != nil {
			parts = append(parts, m.Cards)
		}
	case TagError:
		parts = append(parts, m.What, m.Reason)
	}
	return json.Marshal(parts)
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	if len(parts) == 0 {
		return errors.New("empty message")
	}
	*m = Message{}
	if err := json.Unmarshal(parts[0], &m.Tag); err != nil {
		return err
	}
	switch m.Tag {
	case TagMove:
		if len(parts) != 3 {
			return fmt.Errorf("move carries %d arguments, want 2", len(parts)-1)
		}
		if err := json.Unmarshal(parts[1], &m.From); err != nil {
			return err
		}
		return json.Unmarshal(parts[2], &m.To)
	case TagReveal, TagRescue:
		if len(parts) != 2 {
			return fmt.Errorf("%s carries %d arguments, want 1", m.Tag, len(parts)-1)
		}
		return json.Unmarshal(parts[1], &m.From)
	case TagStatus:
		if len(parts) > 1 {
			m.Status = &Status{}
			return json.Unmarshal(parts[1], m.Status)
		}
	case TagCards:
		if len(parts) > 1 {
			return json.Unmarshal(parts[1], &m.Cards)
		}
	case TagError:
		if len(parts) != 3 {
			return fmt.Errorf("error carries %d arguments, want 2", len(parts)-1)
		}
		if err := json.Unmarshal(parts[1], &m.What); err != nil {
			return err
		}
		return json.Unmarshal(parts[2], &m.Reason)
	case TagOK, TagPing, TagDisconnected:
	default:
		return fmt.Errorf("unknown message %q", m.Tag)
	}
	return nil
}
