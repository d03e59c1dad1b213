package vcican

import (
	"fmt"
	"log"
)

type EventType int

func (et EventType) String() string {
	switch et {
	case EventTypeError:
		return "ERROR"
	case EventTypeWarning:
		return "WARN"
	case EventTypeInfo:
		return "INFO"
	case EventTypeDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

const (
	EventTypeError EventType = iota
	EventTypeWarning
	EventTypeInfo
	EventTypeDebug
)

// Direction tells frame events apart from lifecycle events.
type Direction int

const (
	None Direction = iota
	Incoming
	Outgoing
)

type Event struct {
	Type    EventType
	Details string
	Dir     Direction
	Channel Channel
	Frame   *Frame
	Err     error
}

func (e Event) String() string {
	return fmt.Sprintf("[%s] %s", e.Type.String(), e.Details)
}

func logEvent(e Event) {
	log.Println(e.String())
}
