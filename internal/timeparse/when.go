package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var relativePattern = regexp.MustCompile(`(?i)in\s+(\d+)\s+(minute|hour)s?`)

var parser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// Resolve turns a natural time expression into an absolute timestamp
// relative to now. "in N minutes/hours" takes a fast path with no
// truncation. Anything else goes through the general phrase parser;
// when the phrase names no minute component and contains no colon, the
// result is truncated to the whole hour. A resolved time strictly in
// the past rolls forward one day, so "7 AM" said at 9 AM means
// tomorrow. The second return value is false when nothing parses.
func Resolve(s string, now time.Time) (time.Time, bool) {
	if m := relativePattern.FindStringSubmatch(s); m != nil {
		value, err := strconv.Atoi(m[1])
		if err == nil {
			switch strings.ToLower(m[2]) {
			case "minute":
				return now.Add(time.Duration(value) * time.Minute), true
			case "hour":
				return now.Add(time.Duration(value) * time.Hour), true
			}
		}
	}

	result, err := parser.Parse(s, now)
	if err != nil || result == nil {
		return time.Time{}, false
	}

	due := result.Time
	if !strings.Contains(s, ":") && !strings.Contains(strings.ToLower(s), "minute") {
		due = time.Date(due.Year(), due.Month(), due.Day(), due.Hour(), 0, 0, 0, due.Location())
	}
	if due.Before(now) {
		due = due.Add(24 * time.Hour)
	}
	return due, true
}
