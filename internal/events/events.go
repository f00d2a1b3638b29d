// Package events models what the execution backend streams back while a
// workflow runs. Event is a closed union: Status, Error, FinalResult and
// AwaitingInteraction are its only members.
package events

import (
	"errors"
	"fmt"

	"github.com/pocketomega/omega-workflow/internal/xjson"
)

// Event names on the wire.
const (
	NameStatus              = "status"
	NameError               = "error"
	NameFinalResult         = "resultado_final"
	NameAwaitingInteraction = "awaiting_interaction"
)

// ErrUnknownEvent is returned by Decode for names outside the union.
var ErrUnknownEvent = errors.New("events: unknown event")

// Event is implemented only by the types in this package.
type Event interface {
	Name() string
	isEvent()
}

// NodeStatus is the lifecycle state reported for a node.
type NodeStatus string

const (
	StatusStarted  NodeStatus = "iniciado"
	StatusFinished NodeStatus = "finalizado"
)

// Status reports that a node started or finished.
type Status struct {
	Node   string     `json:"node"`
	Status NodeStatus `json:"status"`
}

// Error reports a failure of the run as a whole.
type Error struct {
	Message string `json:"message"`
}

// FinalResult carries the deliverables. The shape depends on the workflow's
// result format, so it is kept raw.
type FinalResult struct {
	Data xjson.RawMessage
}

// AwaitingInteraction pauses the run until the user replies to the session.
type AwaitingInteraction struct {
	SessionID    string `json:"session_id"`
	Node         string `json:"node"`
	AgentMessage string `json:"agent_message"`
}

func (Status) Name() string              { return NameStatus }
func (Error) Name() string               { return NameError }
func (FinalResult) Name() string         { return NameFinalResult }
func (AwaitingInteraction) Name() string { return NameAwaitingInteraction }

func (Status) isEvent()              {}
func (Error) isEvent()               {}
func (FinalResult) isEvent()         {}
func (AwaitingInteraction) isEvent() {}

// Decode turns one named event and its data into an Event.
func Decode(name string, data []byte) (Event, error) {
	switch name {
	case NameStatus:
		var ev Status
		if err := xjson.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("events: decode %q: %w", name, err)
		}
		if ev.Status != StatusStarted && ev.Status != StatusFinished {
			return nil, fmt.Errorf("events: decode %q: unknown node status %q", name, ev.Status)
		}
		return ev, nil
	case NameError:
		var ev Error
		if err := xjson.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("events: decode %q: %w", name, err)
		}
		return ev, nil
	case NameFinalResult:
		if !xjson.Valid(data) {
			return nil, fmt.Errorf("events: decode %q: data is not valid JSON", name)
		}
		return FinalResult{Data: append(xjson.RawMessage(nil), data...)}, nil
	case NameAwaitingInteraction:
		var ev AwaitingInteraction
		if err := xjson.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("events: decode %q: %w", name, err)
		}
		if ev.SessionID == "" {
			return nil, fmt.Errorf("events: decode %q: session_id is required", name)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownEvent, name)
	}
}

// Encode returns the data line payload for ev.
func Encode(ev Event) ([]byte, error) {
	switch e := ev.(type) {
	case FinalResult:
		if len(e.Data) == 0 {
			return []byte("null"), nil
		}
		return e.Data, nil
	case Status, Error, AwaitingInteraction:
		data, err := xjson.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("events: encode %q: %w", ev.Name(), err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w %T", ErrUnknownEvent, ev)
	}
}
