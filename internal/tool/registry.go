package tool

import (
	"context"
	"time"

	"hark/internal/config"
	"hark/internal/store"
)

// Deps wires the externally owned collaborators into the default tool set.
type Deps struct {
	Services config.ServicesConfig
	Store    *store.Store
	Now      func() time.Time
}

// handledByDispatcher is the Run body for tools the dispatch core
// intercepts before execution. They are registered so the intent
// resolver can offer them, but their side effects live in the
// dispatcher's mode machine.
func handledByDispatcher(context.Context, Args) (string, error) {
	return "That is handled by the assistant itself.", nil
}

// Default builds the complete closed tool registry.
func Default(deps Deps) (*Registry, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	web := newWebAPI(deps.Services)
	prod := &productivity{store: deps.Store, now: deps.Now, web: web}

	return NewRegistry(
		Tool{
			Name:        "search_web",
			Description: "Searches the web using the default browser.",
			Params:      []Param{{Name: "query", Desc: "The search term."}},
			Run:         web.searchWeb,
		},
		Tool{
			Name:        "get_weather",
			Description: "Gets current weather. Uses the user's IP for location if not specified.",
			Params:      []Param{{Name: "location", Desc: "The city for the weather, e.g., 'London'. Leave blank for your current location."}},
			Run:         web.getWeather,
		},
		Tool{
			Name:        "find_location",
			Description: "Finds a location on a map and opens it in the browser. Handles 'near me' queries by finding the user's city via their IP.",
			Params:      []Param{{Name: "location_query", Desc: "The place, address, or point of interest to find (e.g., 'Eiffel Tower' or 'pizza near me')."}},
			Run:         web.findLocation,
		},
		Tool{
			Name:        "convert_currency",
			Description: "Converts an amount from one currency to another using real-time exchange rates.",
			Params: []Param{
				{Name: "amount", Desc: "The numerical value to convert."},
				{Name: "from_currency", Desc: "The 3-letter currency code to convert from (e.g., 'USD')."},
				{Name: "to_currency", Desc: "The 3-letter currency code to convert to (e.g., 'EUR')."},
			},
			Run: web.convertCurrency,
		},
		Tool{
			Name:        "open_website",
			Description: "Opens a given URL in the default web browser.",
			Params:      []Param{{Name: "url", Desc: "The full URL of the website to open, e.g., 'https://www.google.com'."}},
			Run:         openWebsite(web.openURL),
		},
		Tool{
			Name:        "create_folder",
			Description: "Creates a new folder on the user's desktop.",
			Params:      []Param{{Name: "folder_name", Desc: "The name for the new folder."}},
			Run:         createFolder,
		},
		Tool{
			Name:        "find_application",
			Description: "Finds an installed application by name so it can be opened.",
			Params:      []Param{{Name: "app_query", Desc: "The name of the application to find, e.g., 'calculator' or 'photoshop'."}},
			Run:         handledByDispatcher,
		},
		Tool{
			Name:        "set_system_volume",
			Description: "Sets the system master volume to a specific percentage.",
			Params:      []Param{{Name: "level", Desc: "A number between 0 and 100 for the desired volume level."}},
			Run:         setSystemVolume,
		},
		Tool{
			Name:        "set_screen_brightness",
			Description: "Sets the screen brightness to a specific percentage.",
			Params:      []Param{{Name: "level", Desc: "A number between 0 and 100 for the desired brightness level."}},
			Run:         setScreenBrightness,
		},
		Tool{
			Name:        "set_timer",
			Description: "Sets a countdown timer.",
			Params:      []Param{{Name: "duration_str", Desc: "The duration of the timer, e.g., '10 minutes' or '1 hour 30 seconds'."}},
			Run:         handledByDispatcher,
		},
		Tool{
			Name:        "cancel_timer",
			Description: "Cancels the currently active timer.",
			Run:         handledByDispatcher,
		},
		Tool{
			Name:        "write_text",
			Description: "Types out the given text at the current cursor location.",
			Params:      []Param{{Name: "text_to_write", Desc: "The text to be typed."}},
			Run:         writeText,
		},
		Tool{
			Name:        "get_current_time",
			Description: "Gets the current time.",
			Run:         prod.currentTime,
		},
		Tool{
			Name:        "get_current_date",
			Description: "Gets the current date, including the day of the week.",
			Run:         prod.currentDate,
		},
		Tool{
			Name:        "calculate_future_date",
			Description: "Calculates the date after a specific number of days from today.",
			Params:      []Param{{Name: "days", Desc: "The number of days to add to the current date."}},
			Run:         prod.futureDate,
		},
		Tool{
			Name:        "calculate_days_between",
			Description: "Calculates the number of days between two dates.",
			Params: []Param{
				{Name: "start_date", Desc: "The first date in YYYY-MM-DD format."},
				{Name: "end_date", Desc: "The second date in YYYY-MM-DD format."},
			},
			Run: prod.daysBetween,
		},
		Tool{
			Name:        "calculate",
			Description: "Calculates the result of a mathematical expression.",
			Params:      []Param{{Name: "expression", Desc: "The mathematical string to evaluate, e.g., '5 * (2 + 3)'."}},
			Run:         calculate,
		},
		Tool{
			Name:        "convert_units",
			Description: "Converts a value from one unit to another (e.g., length, mass, volume).",
			Params: []Param{
				{Name: "amount", Desc: "The numerical value to convert."},
				{Name: "from_unit", Desc: "The starting unit (e.g., 'miles', 'kg')."},
				{Name: "to_unit", Desc: "The target unit (e.g., 'km', 'pounds')."},
			},
			Run: convertUnits,
		},
		Tool{
			Name:        "tell_joke",
			Description: "Tells a random joke.",
			Run:         prod.tellJoke,
		},
		Tool{
			Name:        "flip_coin",
			Description: "Flips a virtual coin.",
			Run:         flipCoin,
		},
		Tool{
			Name:        "create_note",
			Description: "Creates and saves a persistent note.",
			Params:      []Param{{Name: "content", Desc: "The text content of the note."}},
			Run:         prod.createNote,
		},
		Tool{
			Name:        "read_notes",
			Description: "Reads the most recent note(s).",
			Params:      []Param{{Name: "limit", Desc: "The number of recent notes to read. Defaults to 1."}},
			Run:         prod.readNotes,
		},
		Tool{
			Name:        "set_reminder",
			Description: "Sets a reminder for a future time.",
			Params: []Param{
				{Name: "reminder_text", Desc: "The text of the reminder."},
				{Name: "time_str", Desc: "When to be reminded, e.g., 'in 10 minutes', 'at 8 PM', 'tomorrow morning'."},
			},
			Run: prod.setReminder,
		},
		Tool{
			Name:        "set_alarm",
			Description: "Sets an alarm for a future time.",
			Params:      []Param{{Name: "time_str", Desc: "When to set the alarm, e.g., 'for 7 AM', 'in 1 hour'."}},
			Run:         prod.setAlarm,
		},
		Tool{
			Name:        "prepare_email",
			Description: "Prepares an email for review before sending.",
			Params: []Param{
				{Name: "recipient", Desc: "The recipient's email address."},
				{Name: "subject", Desc: "The subject line of the email."},
				{Name: "body", Desc: "The main content of the email. Can be empty."},
			},
			Run: prepareEmail,
		},
	)
}
