// Package timeparse converts natural-language duration and time
// expressions into seconds or absolute timestamps.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
)

var durationPattern = regexp.MustCompile(`(?i)(\d+)\s*(hour|minute|second)s?`)

// Duration sums every "<N> hour|minute|second(s)" occurrence in s and
// returns the total in seconds. Units may combine ("1 hour 30 seconds"
// is 3630). A result of 0 means nothing parseable was found.
func Duration(s string) int {
	total := 0
	for _, match := range durationPattern.FindAllStringSubmatch(s, -1) {
		value, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		switch strings.ToLower(match[2]) {
		case "hour":
			total += value * 3600
		case "minute":
			total += value * 60
		case "second":
			total += value
		}
	}
	return total
}
