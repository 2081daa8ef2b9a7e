// Package dispatch runs the conversational turn loop: wake-phrase
// gating, intent resolution, tool execution, and the suspended
// selection and confirmation sub-flows.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"hark/internal/fsm"
	"hark/internal/intent"
	"hark/internal/ipc"
	"hark/internal/timeparse"
	"hark/internal/tool"
)

// Visual states published to the presentation layer.
const (
	StateIdle              = "idle"
	StateListening         = "listening"
	StateProcessing        = "processing"
	StateSpeaking          = "speaking"
	StateAwaitingSelection = "awaiting_selection"
)

const (
	ackWake       = "Yes?"
	ackDone       = "Done."
	ackCancelled  = "Okay, cancelled."
	ackEmailDraft = "I've drafted that email for you to review."
	taskComplete  = "Task complete."
	noTimer       = "There is no timer running."
	timerGone     = "Okay, I've cancelled the timer."
)

// maxChoices caps the candidate list shown for disambiguation.
const maxChoices = 5

// Recognizer yields one final utterance per call, or "" on silence.
type Recognizer interface {
	NextUtterance(ctx context.Context, wake bool) (string, error)
}

// Speaker voices responses and blocks until playback finishes.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Resolver maps an utterance to text or a tool-call proposal.
type Resolver interface {
	Resolve(ctx context.Context, utterance string, useTools bool) intent.Result
}

// AppIndex resolves fuzzy application queries and launches matches.
type AppIndex interface {
	Find(query string) []string
	Open(ctx context.Context, name string) (string, error)
}

// Publisher delivers presentation events to subscribed frontends.
type Publisher interface {
	Publish(event ipc.Event)
}

// silentTools execute without a paraphrase pass and answer "Done.".
var silentTools = map[string]bool{
	"write_text":            true,
	"set_system_volume":     true,
	"set_screen_brightness": true,
}

// pendingAction is the suspended half of an ambiguous tool call.
type pendingAction struct {
	kind    string
	matches []string
	email   ipc.EmailPreview
}

// Worker owns the dispatch loop. All mode state is confined to the
// single Run goroutine; only the events channel and the mode snapshot
// cross goroutines.
type Worker struct {
	wakeWords  []string
	recognizer Recognizer
	speaker    Speaker
	resolver   Resolver
	apps       AppIndex
	registry   *tool.Registry
	publisher  Publisher
	sendEmail  func(ctx context.Context, email ipc.EmailPreview) string
	logger     *slog.Logger

	events chan ipc.Event

	mode        fsm.Mode
	pending     *pendingAction
	timerActive bool

	snapshotMu sync.Mutex
	snapshot   fsm.Mode
}

// Config carries the worker's collaborators.
type Config struct {
	WakeWords  []string
	Recognizer Recognizer
	Speaker    Speaker
	Resolver   Resolver
	Apps       AppIndex
	Registry   *tool.Registry
	Publisher  Publisher
	SendEmail  func(ctx context.Context, email ipc.EmailPreview) string
	Logger     *slog.Logger
}

// New builds a worker starting in wake-word mode.
func New(cfg Config) *Worker {
	wakeWords := make([]string, 0, len(cfg.WakeWords))
	for _, word := range cfg.WakeWords {
		word = strings.ToLower(strings.TrimSpace(word))
		if word != "" {
			wakeWords = append(wakeWords, word)
		}
	}

	return &Worker{
		wakeWords:  wakeWords,
		recognizer: cfg.Recognizer,
		speaker:    cfg.Speaker,
		resolver:   cfg.Resolver,
		apps:       cfg.Apps,
		registry:   cfg.Registry,
		publisher:  cfg.Publisher,
		sendEmail:  cfg.SendEmail,
		logger:     cfg.Logger,
		events:     make(chan ipc.Event, 16),
		mode:       fsm.ModeWakeWord,
		snapshot:   fsm.ModeWakeWord,
	}
}

// Mode reports the dispatcher's current mode for status queries.
func (w *Worker) Mode() fsm.Mode {
	w.snapshotMu.Lock()
	defer w.snapshotMu.Unlock()
	return w.snapshot
}

// HandleEvent enqueues one frontend event. It reports false when the
// queue is full; events are never delivered out of order.
func (w *Worker) HandleEvent(event ipc.Event) bool {
	select {
	case w.events <- event:
		return true
	default:
		return false
	}
}

// Run drives turns until ctx is cancelled. Recognizer failures are
// fatal; everything inside a turn is converted to spoken recovery.
func (w *Worker) Run(ctx context.Context) error {
	w.speak(ctx, "Hark is now running.")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !fsm.Suspended(w.mode) {
			w.applyBoundaryEvents()
		}

		var err error
		switch w.mode {
		case fsm.ModeWakeWord:
			err = w.wakeTurn(ctx)
		case fsm.ModeCommand:
			err = w.commandTurn(ctx)
		default:
			err = w.awaitEvent(ctx)
		}
		if err != nil {
			return err
		}
	}
}

// applyBoundaryEvents consumes queued events between turns without
// blocking. While unsuspended, only timer completion is meaningful;
// stray selection or confirmation events are dropped.
func (w *Worker) applyBoundaryEvents() {
	for {
		select {
		case event := <-w.events:
			if event.Type == ipc.EventTimerFinished {
				w.timerActive = false
				continue
			}
			w.log("dropping event outside suspension", "type", event.Type)
		default:
			return
		}
	}
}

// wakeTurn listens with the wake grammar and enters command mode on a
// configured phrase. Anything else is discarded.
func (w *Worker) wakeTurn(ctx context.Context) error {
	text, err := w.recognizer.NextUtterance(ctx, true)
	if err != nil {
		return err
	}
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" || !w.isWakeWord(text) {
		return nil
	}

	w.publish(ipc.Event{Type: ipc.EventShow})
	w.setState(StateSpeaking)
	w.speak(ctx, ackWake)
	w.setState(StateListening)
	w.transition(fsm.EventWake)
	return nil
}

// commandTurn listens with the open grammar and resolves one command.
// Utterances of one word or fewer are discarded without leaving
// command mode.
func (w *Worker) commandTurn(ctx context.Context) error {
	text, err := w.recognizer.NextUtterance(ctx, false)
	if err != nil {
		return err
	}
	if len(strings.Fields(text)) <= 1 {
		return nil
	}

	w.publish(ipc.Event{Type: ipc.EventHeard, Text: text})
	w.setState(StateProcessing)

	result := w.resolver.Resolve(ctx, text, true)
	if result.Kind == intent.KindText {
		response := result.Text
		if response == "" {
			response = "I'm not sure how to respond."
		}
		w.finishTurn(ctx, response)
		return nil
	}

	w.log("tool call proposed", "tool", result.Name, "params", len(result.Params))

	switch {
	case result.Name == "find_application":
		w.resolveApplication(ctx, result.Params)
	case result.Name == "prepare_email":
		w.suspendForEmail(ctx, result.Params)
	case result.Name == "set_timer":
		w.startTimer(ctx, result.Params)
	case result.Name == "cancel_timer":
		w.cancelTimer(ctx)
	case silentTools[result.Name]:
		w.runSilentTool(ctx, result.Name, result.Params)
	default:
		w.runGeneralTool(ctx, text, result.Name, result.Params)
	}
	return nil
}

// resolveApplication handles the three-way application lookup: open a
// unique match, suspend on ambiguity, apologize on no match.
func (w *Worker) resolveApplication(ctx context.Context, params tool.Args) {
	query := params.Get("app_query")
	matches := w.apps.Find(query)

	switch {
	case len(matches) == 1:
		response, err := w.apps.Open(ctx, matches[0])
		if err != nil {
			w.log("open application failed", "name", matches[0], "error", err)
			response = fmt.Sprintf("Sorry, I couldn't open %s.", matches[0])
		}
		w.finishTurn(ctx, response)

	case len(matches) > 1:
		if len(matches) > maxChoices {
			matches = matches[:maxChoices]
		}
		w.pending = &pendingAction{kind: "open_application", matches: matches}
		w.setState(StateAwaitingSelection)
		w.publish(ipc.Event{Type: ipc.EventChoices, Choices: matches})
		w.transition(fsm.EventSuspendSelection)

	default:
		w.finishTurn(ctx, fmt.Sprintf("Sorry, I couldn't find an application like '%s'.", query))
	}
}

// suspendForEmail surfaces the drafted email and waits for an explicit
// send or cancel decision.
func (w *Worker) suspendForEmail(ctx context.Context, params tool.Args) {
	draft := ipc.EmailPreview{
		Recipient: params.Get("recipient"),
		Subject:   params.Get("subject"),
		Body:      params.Get("body"),
	}
	w.pending = &pendingAction{kind: "send_email", email: draft}
	w.publish(ipc.Event{Type: ipc.EventEmailPreview, Email: &draft})
	w.setState(StateSpeaking)
	w.speak(ctx, ackEmailDraft)
	w.transition(fsm.EventSuspendInput)
}

// startTimer parses the requested duration and starts the countdown.
func (w *Worker) startTimer(ctx context.Context, params tool.Args) {
	durationStr := params.Get("duration_str")
	seconds := timeparse.Duration(durationStr)
	if seconds <= 0 {
		w.finishTurn(ctx, fmt.Sprintf("Sorry, I couldn't understand the duration '%s'.", durationStr))
		return
	}

	w.publish(ipc.Event{Type: ipc.EventTimerStarted, Seconds: seconds})
	w.timerActive = true
	w.finishTurn(ctx, fmt.Sprintf("Okay, timer set for %s.", durationStr))
}

// cancelTimer stops a running countdown, or reports that none exists.
func (w *Worker) cancelTimer(ctx context.Context) {
	if !w.timerActive {
		w.finishTurn(ctx, noTimer)
		return
	}
	w.publish(ipc.Event{Type: ipc.EventTimerCancelled})
	w.timerActive = false
	w.finishTurn(ctx, timerGone)
}

// runSilentTool executes and acknowledges without paraphrasing.
func (w *Worker) runSilentTool(ctx context.Context, name string, params tool.Args) {
	entry, ok := w.registry.Lookup(name)
	if !ok {
		w.finishTurn(ctx, fmt.Sprintf("Tool '%s' not found.", name))
		return
	}

	if _, err := entry.Run(ctx, params); err != nil {
		w.log("tool failed", "tool", name, "error", err)
		w.finishTurn(ctx, "Sorry, I couldn't do that.")
		return
	}
	w.finishTurn(ctx, ackDone)
}

// runGeneralTool executes, then asks the resolver to paraphrase the
// raw tool output against the original request.
func (w *Worker) runGeneralTool(ctx context.Context, utterance, name string, params tool.Args) {
	entry, ok := w.registry.Lookup(name)
	if !ok {
		w.finishTurn(ctx, fmt.Sprintf("Tool '%s' not found.", name))
		return
	}

	result, err := entry.Run(ctx, params)
	if err != nil {
		w.log("tool failed", "tool", name, "error", err)
		w.finishTurn(ctx, "Sorry, I couldn't complete that.")
		return
	}

	prompt := fmt.Sprintf(
		"Given the user's original request '%s', provide a concise, natural language answer based on the following tool output: '%s'",
		utterance, result,
	)
	summary := w.resolver.Resolve(ctx, prompt, false)
	response := summary.Text
	if response == "" {
		response = taskComplete
	}
	w.finishTurn(ctx, response)
}

// awaitEvent parks the loop while suspended. Recognized speech is not
// consumed here, so anything said during suspension is dropped.
func (w *Worker) awaitEvent(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case event := <-w.events:
		switch {
		case event.Type == ipc.EventTimerFinished:
			w.timerActive = false
		case w.mode == fsm.ModeAwaitingSelection && event.Type == ipc.EventSelect:
			w.resolveSelection(ctx, event.Text)
		case w.mode == fsm.ModeAwaitingInput && event.Type == ipc.EventEmailDecision:
			w.resolveEmailDecision(ctx, event.Confirmed)
		default:
			w.log("dropping event during suspension", "type", event.Type, "mode", string(w.mode))
		}
		return nil
	}
}

// resolveSelection consumes the pending action with the user's pick.
// An empty selection is an explicit cancel.
func (w *Worker) resolveSelection(ctx context.Context, selection string) {
	pending := w.pending
	w.pending = nil

	response := ackCancelled
	if selection != "" && pending != nil {
		if !contains(pending.matches, selection) {
			response = fmt.Sprintf("Sorry, %s wasn't one of the choices.", selection)
		} else if opened, err := w.apps.Open(ctx, selection); err != nil {
			w.log("open application failed", "name", selection, "error", err)
			response = fmt.Sprintf("Sorry, I couldn't open %s.", selection)
		} else {
			response = opened
		}
	}

	w.setState(StateSpeaking)
	w.speak(ctx, response)
	w.setState(StateIdle)
	w.publish(ipc.Event{Type: ipc.EventHide})
	w.transition(fsm.EventSelectionDone)
}

// resolveEmailDecision sends or discards the drafted email.
func (w *Worker) resolveEmailDecision(ctx context.Context, confirmed bool) {
	pending := w.pending
	w.pending = nil

	response := ackCancelled
	if confirmed && pending != nil {
		w.setState(StateProcessing)
		response = w.sendEmail(ctx, pending.email)
	}

	w.setState(StateSpeaking)
	w.speak(ctx, response)
	w.setState(StateIdle)
	w.publish(ipc.Event{Type: ipc.EventHide})
	w.transition(fsm.EventInputDone)
}

// finishTurn speaks the response and returns to wake-word listening.
func (w *Worker) finishTurn(ctx context.Context, response string) {
	w.setState(StateSpeaking)
	w.speak(ctx, response)
	w.setState(StateIdle)
	w.publish(ipc.Event{Type: ipc.EventHide})
	w.transition(fsm.EventResolved)
}

// transition applies one mode event and records the snapshot.
func (w *Worker) transition(event fsm.Event) {
	next, err := fsm.Transition(w.mode, event)
	if err != nil {
		w.log("invalid mode transition", "mode", string(w.mode), "event", string(event), "error", err)
		return
	}
	w.mode = next

	w.snapshotMu.Lock()
	w.snapshot = next
	w.snapshotMu.Unlock()
}

// speak voices one response, logging rather than failing the turn.
func (w *Worker) speak(ctx context.Context, text string) {
	w.publish(ipc.Event{Type: ipc.EventAssistantSaid, Text: text})
	if err := w.speaker.Speak(ctx, text); err != nil {
		w.log("speak failed", "error", err)
	}
}

func (w *Worker) setState(state string) {
	w.publish(ipc.Event{Type: ipc.EventState, State: state})
}

func (w *Worker) publish(event ipc.Event) {
	if w.publisher != nil {
		w.publisher.Publish(event)
	}
}

func (w *Worker) isWakeWord(text string) bool {
	return contains(w.wakeWords, text)
}

func (w *Worker) log(msg string, fields ...any) {
	if w.logger != nil {
		w.logger.Info(msg, fields...)
	}
}

func contains(values []string, needle string) bool {
	for _, value := range values {
		if value == needle {
			return true
		}
	}
	return false
}
