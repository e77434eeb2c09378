package timestamp

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultLayouts are tried in order after any configured layout.
var DefaultLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2006-01-02",
}

// dotNetDate matches the /Date(1690000000000)/ form ConvertTo-Json emits,
// with an optional +hhmm suffix that is ignored because the value is UTC.
var dotNetDate = regexp.MustCompile(`^/?Date\((-?\d+)(?:[+-]\d{4})?\)/?$`)

// Parser converts export timestamps into time.Time.
type Parser struct {
	layouts []string
	loc     *time.Location
}

// NewParser creates a parser that tries the given layouts before DefaultLayouts.
// Zone-less timestamps are interpreted in the local time zone.
func NewParser(layouts ...string) *Parser {
	return NewParserIn(time.Local, layouts...)
}

// NewParserIn is NewParser with an explicit location for zone-less timestamps.
func NewParserIn(loc *time.Location, layouts ...string) *Parser {
	if loc == nil {
		loc = time.Local
	}
	all := make([]string, 0, len(layouts)+len(DefaultLayouts))
	for _, l := range layouts {
		if strings.TrimSpace(l) != "" {
			all = append(all, l)
		}
	}
	all = append(all, DefaultLayouts...)
	return &Parser{layouts: all, loc: loc}
}

// Location returns the location used for zone-less timestamps.
func (p *Parser) Location() *time.Location {
	return p.loc
}

// Parse parses a timestamp string. Empty or unrecognized input reports false.
func (p *Parser) Parse(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if m := dotNetDate.FindStringSubmatch(s); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).In(p.loc), true
	}

	for _, layout := range p.layouts {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
