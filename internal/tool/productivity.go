package tool

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/Knetic/govaluate"
	units "github.com/bcicen/go-units"

	"hark/internal/store"
	"hark/internal/timeparse"
)

const jokeURL = "https://official-joke-api.appspot.com/random_joke"

// productivity bundles the clock, calculation, and memory tools. The
// clock is injectable so turn logic stays testable.
type productivity struct {
	store *store.Store
	now   func() time.Time
	web   *webAPI
}

func (p *productivity) currentTime(context.Context, Args) (string, error) {
	formatted := strings.TrimPrefix(p.now().Format("03:04 PM"), "0")
	return fmt.Sprintf("The current time is %s.", formatted), nil
}

func (p *productivity) currentDate(context.Context, Args) (string, error) {
	today := p.now()
	return fmt.Sprintf("Today is %s, %s %d%s, %d.",
		today.Weekday(), today.Month(), today.Day(), ordinalSuffix(today.Day()), today.Year()), nil
}

func (p *productivity) futureDate(_ context.Context, args Args) (string, error) {
	days, err := strconv.Atoi(args.Get("days"))
	if err != nil {
		return "Please provide a valid number of days.", nil
	}
	future := p.now().AddDate(0, 0, days)
	return fmt.Sprintf("In %d days, the date will be %s, %s %d, %d.",
		days, future.Weekday(), future.Month(), future.Day(), future.Year()), nil
}

func (p *productivity) daysBetween(_ context.Context, args Args) (string, error) {
	start, errStart := time.Parse("2006-01-02", args.Get("start_date"))
	end, errEnd := time.Parse("2006-01-02", args.Get("end_date"))
	if errStart != nil || errEnd != nil {
		return "Sorry, I couldn't understand one of the dates. Please use the YYYY-MM-DD format.", nil
	}
	delta := int(end.Sub(start).Hours() / 24)
	if delta < 0 {
		delta = -delta
	}
	return fmt.Sprintf("There are %d days between %s and %s.",
		delta, args.Get("start_date"), args.Get("end_date")), nil
}

func calculate(_ context.Context, args Args) (string, error) {
	expr := args.Get("expression")
	if expr == "" {
		return "I need an expression to calculate.", nil
	}
	parsed, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return fmt.Sprintf("Sorry, I couldn't calculate '%s'.", expr), nil
	}
	result, err := parsed.Evaluate(nil)
	if err != nil {
		return fmt.Sprintf("Sorry, I couldn't calculate '%s'.", expr), nil
	}
	if value, ok := result.(float64); ok {
		return fmt.Sprintf("The result is %s.", strconv.FormatFloat(value, 'f', -1, 64)), nil
	}
	return fmt.Sprintf("The result is %v.", result), nil
}

func convertUnits(_ context.Context, args Args) (string, error) {
	amount, err := strconv.ParseFloat(args.Get("amount"), 64)
	if err != nil {
		return "I need a numeric amount to convert.", nil
	}
	from, err := units.Find(args.Get("from_unit"))
	if err != nil {
		return fmt.Sprintf("Sorry, I don't know the unit '%s'.", args.Get("from_unit")), nil
	}
	to, err := units.Find(args.Get("to_unit"))
	if err != nil {
		return fmt.Sprintf("Sorry, I don't know the unit '%s'.", args.Get("to_unit")), nil
	}
	converted, err := units.ConvertFloat(amount, from, to)
	if err != nil {
		return fmt.Sprintf("Sorry, I can't convert %s to %s.", from.Name, to.Name), nil
	}
	return fmt.Sprintf("%v %s is equal to %.2f %s.", amount, args.Get("from_unit"), converted.Float(), args.Get("to_unit")), nil
}

func (p *productivity) tellJoke(ctx context.Context, _ Args) (string, error) {
	var joke struct {
		Setup     string `json:"setup"`
		Punchline string `json:"punchline"`
	}
	if err := p.web.getJSON(ctx, jokeURL, &joke); err != nil {
		return "", fmt.Errorf("fetch joke: %w", err)
	}
	return fmt.Sprintf("Here's a joke for you. %s ... %s", joke.Setup, joke.Punchline), nil
}

func flipCoin(context.Context, Args) (string, error) {
	if rand.Intn(2) == 0 {
		return "It's Heads.", nil
	}
	return "It's Tails.", nil
}

func (p *productivity) createNote(ctx context.Context, args Args) (string, error) {
	content := args.Get("content")
	if content == "" {
		return "There was nothing to save.", nil
	}
	if _, err := p.store.AddNote(ctx, content); err != nil {
		return "", fmt.Errorf("save note: %w", err)
	}
	return "Note saved.", nil
}

func (p *productivity) readNotes(ctx context.Context, args Args) (string, error) {
	limit := args.Int("limit", 1)
	notes, err := p.store.Notes(ctx, limit)
	if err != nil {
		return "", fmt.Errorf("read notes: %w", err)
	}
	if len(notes) == 0 {
		return "You don't have any notes.", nil
	}
	if len(notes) == 1 {
		return fmt.Sprintf("Your last note says: %s", notes[0].Content), nil
	}
	contents := make([]string, 0, len(notes))
	for _, n := range notes {
		contents = append(contents, n.Content)
	}
	return "Here are your latest notes: " + strings.Join(contents, "; "), nil
}

func (p *productivity) setReminder(ctx context.Context, args Args) (string, error) {
	text := args.Get("reminder_text")
	timeStr := args.Get("time_str")
	if text == "" {
		return "I need to know what to remind you about.", nil
	}
	dueAt, ok := timeparse.Resolve(timeStr, p.now())
	if !ok {
		return fmt.Sprintf("Sorry, I couldn't understand the time '%s'.", timeStr), nil
	}
	if _, err := p.store.AddReminder(ctx, text, dueAt); err != nil {
		return "", fmt.Errorf("save reminder: %w", err)
	}
	return fmt.Sprintf("Okay, I'll remind you to '%s' at %s.", text, clockPhrase(dueAt)), nil
}

func (p *productivity) setAlarm(ctx context.Context, args Args) (string, error) {
	timeStr := args.Get("time_str")
	dueAt, ok := timeparse.Resolve(timeStr, p.now())
	if !ok {
		return fmt.Sprintf("Sorry, I couldn't understand the time '%s'.", timeStr), nil
	}
	if _, err := p.store.AddAlarm(ctx, args.Get("label"), dueAt); err != nil {
		return "", fmt.Errorf("save alarm: %w", err)
	}
	return fmt.Sprintf("Alarm set for %s.", clockPhrase(dueAt)), nil
}

// clockPhrase renders a due time the way it should be spoken.
func clockPhrase(t time.Time) string {
	return strings.TrimPrefix(t.Format("03:04 PM"), "0")
}

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
