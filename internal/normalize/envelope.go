package normalize

import (
	"encoding/json"
	"fmt"
)

// list keys recognised on an envelope object, in order
var envelopeKeys = []string{"Items", "expenses"}

// id fields in a create response, in order
var createdIDKeys = []string{"expenseId", "id", "expense_id", "idValue"}

// DecodeEnvelope extracts the records of a list response. It accepts a bare
// array, an object carrying the array under Items or expenses, or a single
// object treated as a one-element list. A list key holding anything but an
// array or null is an error.
func DecodeEnvelope(body []byte) ([]Raw, error) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("invalid list response: %w", err)
	}
	switch t := data.(type) {
	case []any:
		return toRaws(t), nil
	case map[string]any:
		for _, key := range envelopeKeys {
			if items, ok := t[key].([]any); ok {
				return toRaws(items), nil
			}
		}
		for _, key := range envelopeKeys {
			if v, ok := t[key]; ok && v != nil {
				return nil, fmt.Errorf("unexpected %s of type %T in list response", key, v)
			}
		}
		return []Raw{Raw(t)}, nil
	default:
		return nil, fmt.Errorf("unexpected list response of type %T", data)
	}
}

// CreatedID extracts the server-assigned identifier from a create response.
func CreatedID(body []byte) (string, bool) {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return "", false
	}
	for _, key := range createdIDKeys {
		if id, ok := String(data[key]); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

func toRaws(items []any) []Raw {
	raws := make([]Raw, 0, len(items))
	for _, item := range items {
		obj, _ := item.(map[string]any)
		raws = append(raws, Raw(obj))
	}
	return raws
}
