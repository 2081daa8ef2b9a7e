// Package ipc carries control commands and presentation events between
// the hark daemon and its clients over a unix socket.
package ipc

// Control commands accepted by the daemon.
const (
	CommandStatus    = "status"
	CommandStop      = "stop"
	CommandSubscribe = "subscribe"
	CommandEvent     = "event"
)

// Event types published by the daemon to subscribed frontends.
const (
	EventState          = "state"
	EventVolume         = "volume"
	EventShow           = "show"
	EventHide           = "hide"
	EventAssistantSaid  = "assistant_said"
	EventHeard          = "heard"
	EventChoices        = "choices"
	EventEmailPreview   = "email_preview"
	EventTimerStarted   = "timer_started"
	EventTimerCancelled = "timer_cancelled"
)

// Event types sent by frontends to the daemon.
const (
	EventSelect        = "select"
	EventEmailDecision = "email_decision"
	EventTimerFinished = "timer_finished"
)

// Request is one client frame. Event is set only for CommandEvent.
type Request struct {
	Command string `json:"command"`
	Event   *Event `json:"event,omitempty"`
}

// Response answers a one-shot command.
type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Event is one presentation frame in either direction. Fields beyond
// Type are populated per event type.
type Event struct {
	Type string `json:"type"`

	// EventState carries the current dispatch mode.
	State string `json:"state,omitempty"`

	// EventVolume carries the RMS level of the latest audio chunk.
	Level float64 `json:"level,omitempty"`

	// EventAssistantSaid, EventHeard, and EventSelect carry text.
	// An empty Text on EventSelect means the user dismissed the list.
	Text string `json:"text,omitempty"`

	// EventChoices carries the application candidates, at most five.
	Choices []string `json:"choices,omitempty"`

	// EventEmailPreview carries the drafted email.
	Email *EmailPreview `json:"email,omitempty"`

	// EventEmailDecision reports whether the user confirmed sending.
	Confirmed bool `json:"confirmed,omitempty"`

	// EventTimerStarted carries the countdown length.
	Seconds int `json:"seconds,omitempty"`
}

// EmailPreview is the drafted email shown for confirmation.
type EmailPreview struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}
