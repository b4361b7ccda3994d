package datasource

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/f1-winner/internal/models"
)

// The provider's payloads drift between seasons and endpoints. Every lookup
// below accepts a list of alternate paths and treats a missing or wrongly
// typed value as absent.

type object = map[string]any

// lookup walks a dotted path such as "driver.driverId" through nested objects
func lookup(o object, path string) (any, bool) {
	var cur any = o
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(object)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// firstString returns the first non-empty string (or number rendered as text) among paths
func firstString(o object, paths ...string) string {
	for _, p := range paths {
		v, ok := lookup(o, p)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case json.Number:
			return t.String()
		}
	}
	return ""
}

// firstValue returns the first present value among paths
func firstValue(o object, paths ...string) (any, bool) {
	for _, p := range paths {
		if v, ok := lookup(o, p); ok {
			return v, true
		}
	}
	return nil, false
}

// parsePosition reads a classified position. Strings such as "NC", "DQ" or
// "DNF" yield no position plus the status they imply.
func parsePosition(v any) (*int, models.ResultStatus) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil && n > 0 {
			p := int(n)
			return &p, models.StatusFinished
		}
		if f, err := t.Float64(); err == nil && f > 0 && f == math.Trunc(f) {
			p := int(f)
			return &p, models.StatusFinished
		}
	case float64:
		if t > 0 && t == math.Trunc(t) {
			p := int(t)
			return &p, models.StatusFinished
		}
	case string:
		s := strings.ToUpper(strings.TrimSpace(t))
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return &n, models.StatusFinished
		}
		switch s {
		case "DQ", "DSQ", "EXCLUDED":
			return nil, models.StatusDisqualified
		case "NC", "DNF", "RET", "R", "DNS", "WD":
			return nil, models.StatusRetired
		}
	}
	return nil, models.StatusUnknown
}

// parseLapTime accepts "92.5", "1:32.500", "1:31:44.742" or a bare number of
// seconds. Gaps ("+5.123"), lap deficits and status words yield nil.
func parseLapTime(v any) *float64 {
	var secs float64
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil
		}
		secs = f
	case float64:
		secs = t
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.HasPrefix(s, "+") {
			return nil
		}
		parts := strings.Split(s, ":")
		if len(parts) > 3 {
			return nil
		}
		for _, part := range parts {
			f, err := strconv.ParseFloat(part, 64)
			if err != nil || f < 0 {
				return nil
			}
			secs = secs*60 + f
		}
	default:
		return nil
	}
	if secs <= 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return nil
	}
	return &secs
}

// parseDate accepts an ISO date with or without a time component
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func parseInt(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		return int(n), err == nil
	case float64:
		return int(t), t == math.Trunc(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}

var errUnexpectedShape = errors.New("unexpected response shape")

// records extracts the list of result objects stored under the first present
// key of the "races" envelope, which may be an object or a single-element
// list. found is false when the envelope carries none of the keys.
func records(root object, keys ...string) (out []object, found bool, err error) {
	envelope, ok := root["races"]
	if !ok || envelope == nil {
		return nil, false, nil
	}
	race, ok := envelope.(object)
	if !ok {
		list, isList := envelope.([]any)
		if !isList {
			return nil, false, errUnexpectedShape
		}
		if len(list) == 0 {
			return nil, false, nil
		}
		if race, ok = list[0].(object); !ok {
			return nil, false, errUnexpectedShape
		}
	}

	for _, k := range keys {
		raw, present := race[k]
		if !present || raw == nil {
			continue
		}
		list, isList := raw.([]any)
		if !isList {
			return nil, true, errUnexpectedShape
		}
		out = make([]object, 0, len(list))
		for _, item := range list {
			if o, ok := item.(object); ok {
				out = append(out, o)
			}
		}
		return out, true, nil
	}
	return nil, false, nil
}
