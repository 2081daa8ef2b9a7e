package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"hark/internal/config"
)

const (
	meteosourceFindURL  = "https://www.meteosource.com/api/v1/free/find_places"
	meteosourcePointURL = "https://www.meteosource.com/api/v1/free/point"
	ipLocateURL         = "https://iplocate.io/api/lookup"
	currencyFreaksURL   = "https://api.currencyfreaks.com/v2.0/rates/latest"
	nominatimSearchURL  = "https://nominatim.openstreetmap.org/search"
)

// webAPI bundles the HTTP-backed tool implementations so tests can
// point them at local servers.
type webAPI struct {
	http     *http.Client
	services config.ServicesConfig

	findPlacesURL string
	weatherURL    string
	ipLookupURL   string
	ratesURL      string
	geocodeURL    string

	openURL func(ctx context.Context, target string) error
}

func newWebAPI(services config.ServicesConfig) *webAPI {
	return &webAPI{
		http:          &http.Client{Timeout: 10 * time.Second},
		services:      services,
		findPlacesURL: meteosourceFindURL,
		weatherURL:    meteosourcePointURL,
		ipLookupURL:   ipLocateURL,
		ratesURL:      currencyFreaksURL,
		geocodeURL:    nominatimSearchURL,
		openURL:       openInBrowser,
	}
}

// openInBrowser hands a URL to the desktop's default browser.
func openInBrowser(ctx context.Context, target string) error {
	cmd := exec.CommandContext(ctx, "xdg-open", target)
	if out, err := cmd.CombinedOutput(); err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return fmt.Errorf("xdg-open %q: %w", target, err)
		}
		return fmt.Errorf("xdg-open %q: %w (%s)", target, err, trimmed)
	}
	return nil
}

func (w *webAPI) searchWeb(ctx context.Context, args Args) (string, error) {
	query := args.Get("query")
	if query == "" {
		return "I need something to search for.", nil
	}
	target := "https://www.google.com/search?q=" + url.QueryEscape(query)
	if err := w.openURL(ctx, target); err != nil {
		return "", fmt.Errorf("open search results: %w", err)
	}
	return fmt.Sprintf("Searching for '%s'.", query), nil
}

func (w *webAPI) getWeather(ctx context.Context, args Args) (string, error) {
	weather := w.services.Weather
	if !weather.Enabled {
		return "The weather feature is disabled. Please enable it in the settings.", nil
	}
	if weather.APIKey == "" {
		return "The weather API key is missing. Please add it in the settings.", nil
	}

	location := args.Get("location")
	isCurrentLocation := false
	switch strings.ToLower(location) {
	case "", "here", "my location", "current location", "nearby":
		isCurrentLocation = true
		city, err := w.lookupCity(ctx)
		if err != nil {
			return "", err
		}
		if city == "" {
			return "Could not determine your current city from your IP address.", nil
		}
		location = city
	}

	var places []struct {
		PlaceID string `json:"place_id"`
		Name    string `json:"name"`
	}
	findQuery := url.Values{"text": {location}, "key": {weather.APIKey}}
	if err := w.getJSON(ctx, w.findPlacesURL+"?"+findQuery.Encode(), &places); err != nil {
		return "", fmt.Errorf("find place: %w", err)
	}
	if len(places) == 0 {
		return fmt.Sprintf("Sorry, I couldn't find a location named '%s'.", location), nil
	}

	var point struct {
		Units   string `json:"units"`
		Current struct {
			Summary     string   `json:"summary"`
			Temperature *float64 `json:"temperature"`
		} `json:"current"`
	}
	pointQuery := url.Values{
		"place_id": {places[0].PlaceID},
		"sections": {"current"},
		"units":    {"auto"},
		"key":      {weather.APIKey},
	}
	if err := w.getJSON(ctx, w.weatherURL+"?"+pointQuery.Encode(), &point); err != nil {
		return "", fmt.Errorf("fetch weather: %w", err)
	}
	if point.Current.Temperature == nil {
		return fmt.Sprintf("Could not retrieve current weather for %s.", places[0].Name), nil
	}

	units := "°F"
	if point.Units == "metric" {
		units = "°C"
	}
	locationDesc := places[0].Name
	if isCurrentLocation {
		locationDesc = fmt.Sprintf("your location (%s)", places[0].Name)
	}
	return fmt.Sprintf("The current weather in %s is %s with a temperature of %.0f%s.",
		locationDesc, strings.ToLower(point.Current.Summary), *point.Current.Temperature, units), nil
}

func (w *webAPI) convertCurrency(ctx context.Context, args Args) (string, error) {
	currency := w.services.Currency
	if !currency.Enabled {
		return "Currency conversion is disabled in settings.", nil
	}
	if currency.APIKey == "" {
		return "The currency API key is missing in settings.", nil
	}

	amount, err := strconv.ParseFloat(args.Get("amount"), 64)
	if err != nil {
		return "I need a numeric amount to convert.", nil
	}
	from := strings.ToUpper(args.Get("from_currency"))
	to := strings.ToUpper(args.Get("to_currency"))
	if from == "" || to == "" {
		return "I need both currencies to convert between.", nil
	}

	var payload struct {
		Rates map[string]string `json:"rates"`
	}
	query := url.Values{"apikey": {currency.APIKey}, "symbols": {from + "," + to}}
	if err := w.getJSON(ctx, w.ratesURL+"?"+query.Encode(), &payload); err != nil {
		return "", fmt.Errorf("fetch exchange rates: %w", err)
	}

	fromRate, okFrom := parseRate(payload.Rates[from])
	toRate, okTo := parseRate(payload.Rates[to])
	if !okFrom || !okTo {
		return fmt.Sprintf("Could not get exchange rates for %s or %s.", from, to), nil
	}
	if fromRate == 0 {
		return "Cannot convert from a currency with a rate of zero.", nil
	}

	converted := (amount / fromRate) * toRate
	return fmt.Sprintf("%.2f %s is approximately %.2f %s.", amount, from, converted, to), nil
}

func (w *webAPI) findLocation(ctx context.Context, args Args) (string, error) {
	query := args.Get("location_query")
	if query == "" {
		return "I need a place to look for.", nil
	}

	searchQuery := query
	if subject, nearMe := splitNearMe(query); nearMe {
		location := w.services.Location
		if !location.Enabled {
			return "Location services are disabled in settings.", nil
		}
		if location.APIKey == "" {
			return "The location API key is missing in settings.", nil
		}
		city, err := w.lookupCity(ctx)
		if err != nil {
			return "", err
		}
		if city == "" {
			return "Could not determine your current city from your IP address.", nil
		}
		searchQuery = fmt.Sprintf("%s in %s", subject, city)
	}

	var matches []struct {
		DisplayName string `json:"display_name"`
	}
	geoQuery := url.Values{"q": {searchQuery}, "format": {"json"}, "limit": {"1"}}
	if err := w.getJSON(ctx, w.geocodeURL+"?"+geoQuery.Encode(), &matches); err != nil {
		return "", fmt.Errorf("geocode %q: %w", searchQuery, err)
	}
	if len(matches) == 0 {
		return fmt.Sprintf("Sorry, I couldn't find a location for '%s'.", searchQuery), nil
	}

	mapsURL := "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(searchQuery)
	if err := w.openURL(ctx, mapsURL); err != nil {
		return "", fmt.Errorf("open map: %w", err)
	}
	return fmt.Sprintf("Showing results for '%s' on the map.", searchQuery), nil
}

// lookupCity resolves the user's city from their public IP.
func (w *webAPI) lookupCity(ctx context.Context) (string, error) {
	location := w.services.Location
	if !location.Enabled {
		return "", nil
	}
	var payload struct {
		City string `json:"city"`
	}
	query := url.Values{"apikey": {location.APIKey}}
	if err := w.getJSON(ctx, w.ipLookupURL+"?"+query.Encode(), &payload); err != nil {
		return "", fmt.Errorf("ip location lookup: %w", err)
	}
	return payload.City, nil
}

func (w *webAPI) getJSON(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "hark/1.0")

	resp, err := w.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d (%s)", target, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseRate(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// splitNearMe detects "<subject> near/around me" phrasing and returns
// the subject portion.
func splitNearMe(query string) (string, bool) {
	lower := strings.ToLower(query)
	for _, marker := range []string{" near me", " around me"} {
		if idx := strings.Index(lower, marker); idx > 0 {
			return strings.TrimSpace(query[:idx]), true
		}
	}
	return query, false
}
