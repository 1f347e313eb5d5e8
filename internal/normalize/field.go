package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// String reads a string attribute in either encoding. The typed wrapper is
// tried first (string tag, then numeric tag), then the bare value.
func String(v any) (string, bool) {
	if wrapped, ok := v.(map[string]any); ok {
		for _, tag := range []string{tagString, tagNumber} {
			if inner, ok := wrapped[tag]; ok {
				return scalarString(inner)
			}
		}
		return "", false
	}
	return scalarString(v)
}

// Number reads a numeric attribute in either encoding. Absent or unparseable
// values resolve to 0.
func Number(v any) float64 {
	if wrapped, ok := v.(map[string]any); ok {
		for _, tag := range []string{tagNumber, tagString} {
			if inner, ok := wrapped[tag]; ok {
				return scalarNumber(inner)
			}
		}
		return 0
	}
	return scalarNumber(v)
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

func scalarNumber(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case json.Number:
		return parseNumber(t.String())
	case string:
		return parseNumber(t)
	default:
		return 0
	}
}

func parseNumber(s string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}
