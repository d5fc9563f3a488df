package protocol

import "time"

// ProtocolVersion is bumped whenever an event payload changes shape.
const ProtocolVersion = 1

// FrameTypeEvent marks a server-pushed event frame.
const FrameTypeEvent = "event"

// EventFrame is the envelope written to websocket subscribers.
type EventFrame struct {
	Type    string      `json:"type"`
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
	Seq     int64       `json:"seq,omitempty"`
	TS      int64       `json:"ts"`
}

// NewEvent wraps a payload in an event frame stamped with the current time.
func NewEvent(name string, payload interface{}) *EventFrame {
	return &EventFrame{
		Type:    FrameTypeEvent,
		Event:   name,
		Payload: payload,
		TS:      time.Now().UnixMilli(),
	}
}
