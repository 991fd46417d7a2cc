package models

import "time"

// LiveEventType names a message pushed to observers of a session
type LiveEventType string

const (
	LiveEventStatus  LiveEventType = "status"
	LiveEventDrawing LiveEventType = "drawing"
	LiveEventPick    LiveEventType = "pick"
	LiveEventVerify  LiveEventType = "verifier"
	LiveEventOrder   LiveEventType = "draftOrder"
)

// LiveEvent is the payload broadcast on the observer channel of a session
type LiveEvent struct {
	Type         LiveEventType `json:"type"`
	SessionID    string        `json:"sessionId"`
	Status       SessionStatus `json:"status"`
	DrawingState               // promoted to the top level of the JSON payload
	Pick         *DrawnPick    `json:"pick,omitempty"`
	Verifier     *Verifier     `json:"verifier,omitempty"`
	DraftOrder   []DraftPick   `json:"draftOrder,omitempty"`
	At           time.Time     `json:"at"`
}
