package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionPlainTurn(t *testing.T) {
	m := ModeWakeWord

	next, err := Transition(m, EventWake)
	require.NoError(t, err)
	require.Equal(t, ModeCommand, next)

	next, err = Transition(next, EventResolved)
	require.NoError(t, err)
	require.Equal(t, ModeWakeWord, next)
}

func TestTransitionSelectionTurn(t *testing.T) {
	next, err := Transition(ModeCommand, EventSuspendSelection)
	require.NoError(t, err)
	require.Equal(t, ModeAwaitingSelection, next)

	next, err = Transition(next, EventSelectionDone)
	require.NoError(t, err)
	require.Equal(t, ModeWakeWord, next)
}

func TestTransitionConfirmationTurn(t *testing.T) {
	next, err := Transition(ModeCommand, EventSuspendInput)
	require.NoError(t, err)
	require.Equal(t, ModeAwaitingInput, next)

	next, err = Transition(next, EventInputDone)
	require.NoError(t, err)
	require.Equal(t, ModeWakeWord, next)
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		mode  Mode
		event Event
	}{
		{name: "wake_word resolved invalid", mode: ModeWakeWord, event: EventResolved},
		{name: "wake_word suspend invalid", mode: ModeWakeWord, event: EventSuspendSelection},
		{name: "command wake invalid", mode: ModeCommand, event: EventWake},
		{name: "command selection_done invalid", mode: ModeCommand, event: EventSelectionDone},
		{name: "awaiting_selection wake invalid", mode: ModeAwaitingSelection, event: EventWake},
		{name: "awaiting_selection input_done invalid", mode: ModeAwaitingSelection, event: EventInputDone},
		{name: "awaiting_input selection_done invalid", mode: ModeAwaitingInput, event: EventSelectionDone},
		{name: "awaiting_input resolved invalid", mode: ModeAwaitingInput, event: EventResolved},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.mode, tc.event)
			require.Error(t, err)
			require.Contains(t, err.Error(), "invalid transition")
			require.Equal(t, tc.mode, next)
		})
	}
}

func TestTransitionUnknownMode(t *testing.T) {
	_, err := Transition(Mode("daydreaming"), EventWake)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown mode")
}

func TestSuspended(t *testing.T) {
	require.False(t, Suspended(ModeWakeWord))
	require.False(t, Suspended(ModeCommand))
	require.True(t, Suspended(ModeAwaitingSelection))
	require.True(t, Suspended(ModeAwaitingInput))
}
