// Package fsm models the dispatcher's conversational mode machine.
package fsm

import "fmt"

type Mode string

type Event string

const (
	ModeWakeWord          Mode = "wake_word"
	ModeCommand           Mode = "command"
	ModeAwaitingSelection Mode = "awaiting_selection"
	ModeAwaitingInput     Mode = "awaiting_input"
)

const (
	// EventWake fires when a recognized utterance matches a wake phrase.
	EventWake Event = "wake"
	// EventResolved fires when a command turn completes with a spoken reply.
	EventResolved Event = "resolved"
	// EventSuspendSelection fires when tool resolution is ambiguous.
	EventSuspendSelection Event = "suspend_selection"
	// EventSuspendInput fires when a tool result needs user confirmation.
	EventSuspendInput Event = "suspend_input"
	// EventSelectionDone fires when the user picks or cancels a candidate.
	EventSelectionDone Event = "selection_done"
	// EventInputDone fires when the pending confirmation arrives.
	EventInputDone Event = "input_done"
)

// Transition applies one event to the current mode. Invalid pairs return
// an error and leave the mode unchanged.
func Transition(current Mode, event Event) (Mode, error) {
	switch current {
	case ModeWakeWord:
		switch event {
		case EventWake:
			return ModeCommand, nil
		default:
			return current, invalidTransition(current, event)
		}
	case ModeCommand:
		switch event {
		case EventResolved:
			return ModeWakeWord, nil
		case EventSuspendSelection:
			return ModeAwaitingSelection, nil
		case EventSuspendInput:
			return ModeAwaitingInput, nil
		default:
			return current, invalidTransition(current, event)
		}
	case ModeAwaitingSelection:
		switch event {
		case EventSelectionDone:
			return ModeWakeWord, nil
		default:
			return current, invalidTransition(current, event)
		}
	case ModeAwaitingInput:
		switch event {
		case EventInputDone:
			return ModeWakeWord, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown mode %q", current)
	}
}

// Suspended reports whether the mode is parked on an external event.
func Suspended(mode Mode) bool {
	return mode == ModeAwaitingSelection || mode == ModeAwaitingInput
}

func invalidTransition(mode Mode, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", mode, event)
}
