package api

import (
	"encoding/json"
	"fmt"
)

// StreamEventType identifies the variant of a streaming event.
type StreamEventType int

const (
	EventChunk StreamEventType = iota // Incremental reply text
	EventDone                         // Successful end of stream
	EventError                        // Failed end of stream
)

// String returns the JSON key used for the event variant.
func (t StreamEventType) String() string {
	switch t {
	case EventChunk:
		return "chunk"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("StreamEventType(%d)", int(t))
	}
}

// StreamEvent is one server-sent event of a streaming reply. Exactly one
// terminal event (Done or Error) ends every stream.
type StreamEvent struct {
	Type StreamEventType

	// Text holds the chunk text for EventChunk and the message for EventError.
	Text string
}

// ChunkEvent returns a chunk event carrying text.
func ChunkEvent(text string) StreamEvent {
	return StreamEvent{Type: EventChunk, Text: text}
}

// DoneEvent returns the successful terminal event.
func DoneEvent() StreamEvent {
	return StreamEvent{Type: EventDone}
}

// ErrorEvent returns the failure terminal event.
func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Type: EventError, Text: message}
}

// IsTerminal reports whether the event ends a stream.
func (e StreamEvent) IsTerminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// MarshalJSON encodes the event as {"chunk": text}, {"done": true} or
// {"error": message}.
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventChunk:
		return json.Marshal(struct {
			Chunk string `json:"chunk"`
		}{e.Text})
	case EventDone:
		return json.Marshal(struct {
			Done bool `json:"done"`
		}{true})
	case EventError:
		return json.Marshal(struct {
			Error string `json:"error"`
		}{e.Text})
	default:
		return nil, fmt.Errorf("unknown stream event type %d", int(e.Type))
	}
}

// UnmarshalJSON decodes any of the three event forms.
func (e *StreamEvent) UnmarshalJSON(data []byte) error {
	var w struct {
		Chunk *string `json:"chunk"`
		Done  *bool   `json:"done"`
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Chunk != nil:
		*e = ChunkEvent(*w.Chunk)
	case w.Error != nil:
		*e = ErrorEvent(*w.Error)
	case w.Done != nil && *w.Done:
		*e = DoneEvent()
	default:
		return fmt.Errorf("unrecognized stream event: %s", data)
	}
	return nil
}
