package stream

import "github.com/opsvista/incident-analyzer/internal/models"

// EventType enumerates the event kinds pushed to a stream consumer.
type EventType string

const (
	// EventToken carries a narration fragment emitted before the payload.
	EventToken EventType = "token"
	// EventFinal carries the completed, scored incident report.
	EventFinal EventType = "final"
	// EventError carries a terminal failure message.
	EventError EventType = "error"
)

// Event is a single message on the analysis event channel. Token events carry
// Text; final events carry Report; error events carry Message.
type Event struct {
	Type    EventType              `json:"type"`
	Text    string                 `json:"text,omitempty"`
	Report  *models.IncidentReport `json:"report,omitempty"`
	Message string                 `json:"message,omitempty"`
}
