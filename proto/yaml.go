package proto

import (
	"regexp"
	"strconv"
	"strings"
)

// The server's stats and listing bodies are YAML-shaped, not YAML: a flat
// "key: value" mapping or a flat "- item" sequence. The parsers below accept
// exactly that shape and skip every other line.

var (
	dictLineRe   = regexp.MustCompile(`^\s*([^:\s]+)\s*:\s*(\S*)$`)
	intValueRe   = regexp.MustCompile(`^(0|-?[1-9][0-9]*)$`)
	floatValueRe = regexp.MustCompile(`^-?\d+(\.\d+)?(e[-+]?[1-9][0-9]*)?$`)
)

// stringKeys always hold strings, even when the value looks numeric
// (a tube named "42", a server version "1.10").
var stringKeys = map[string]bool{
	"name":    true,
	"tube":    true,
	"version": true,
}

// ParseDict parses a stats body into a map of string, int64 or float64 values.
// Integers that overflow int64 are returned as uint64 when they fit.
// Lines that are not "key: scalar" are skipped; ParseDict never fails.
func ParseDict(body []byte) map[string]any {
	dict := make(map[string]any)

	for line := range strings.Lines(string(body)) {
		line = strings.TrimRight(line, "\r\n")

		m := dictLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		key, val := m[1], m[2]
		if stringKeys[key] {
			dict[key] = val
			continue
		}

		dict[key] = parseScalar(val)
	}

	return dict
}

func parseScalar(val string) any {
	if intValueRe.MatchString(val) {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(val, 10, 64); err == nil {
			return u
		}
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		return val
	}

	if floatValueRe.MatchString(val) {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}

	return val
}

// ParseList parses a listing body: every line starting with "- " contributes
// the rest of the line, in document order.
func ParseList(body []byte) []string {
	var list []string

	for line := range strings.Lines(string(body)) {
		line = strings.TrimRight(line, "\r\n")

		if item, ok := strings.CutPrefix(line, "- "); ok {
			list = append(list, item)
		}
	}

	return list
}
