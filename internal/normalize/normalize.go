// Package normalize turns backend expense records into canonical storage.Expense values.
//
// Backends return each attribute either as a bare JSON value or wrapped in a
// typed container keyed by a type tag, {"S": "..."} for strings and
// {"N": "..."} for numbers. Every field is decoded on its own, so a single
// record may mix both encodings.
package normalize

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tanq16/expensesync/internal/storage"
)

// Raw is one backend record as decoded from JSON.
type Raw map[string]any

const (
	tagString = "S"
	tagNumber = "N"
)

// id fields tried after expenseId
var idAliases = []string{"id", "expense_id", "key"}

// Normalize decodes raw into a canonical expense. It reports false when the
// record has no usable title and must be discarded.
func Normalize(raw Raw) (storage.Expense, bool) {
	if raw == nil {
		return storage.Expense{}, false
	}
	title, _ := String(raw["title"])
	if strings.TrimSpace(title) == "" {
		return storage.Expense{}, false
	}
	date, _ := String(raw["date"])
	category, _ := String(raw["category"])
	receiptKey, _ := String(raw["receiptKey"])
	return storage.Expense{
		ID:         recordID(raw),
		Title:      title,
		Amount:     Number(raw["amount"]),
		Date:       date,
		Category:   category,
		ReceiptKey: storage.StringPtr(receiptKey),
	}, true
}

// NormalizeAll normalizes raws in order, dropping rejected records.
func NormalizeAll(raws []Raw) []storage.Expense {
	expenses := make([]storage.Expense, 0, len(raws))
	for _, raw := range raws {
		if expense, ok := Normalize(raw); ok {
			expenses = append(expenses, expense)
		}
	}
	return expenses
}

// ToRaw renders a canonical expense as a bare-valued record.
func ToRaw(e storage.Expense) Raw {
	raw := Raw{
		"expenseId": e.ID,
		"title":     e.Title,
		"amount":    e.Amount,
		"date":      e.Date,
		"category":  e.Category,
	}
	if e.ReceiptKey != nil {
		raw["receiptKey"] = *e.ReceiptKey
	}
	return raw
}

// ToRawAll is ToRaw over a slice.
func ToRawAll(expenses []storage.Expense) []Raw {
	raws := make([]Raw, 0, len(expenses))
	for _, e := range expenses {
		raws = append(raws, ToRaw(e))
	}
	return raws
}

func recordID(raw Raw) string {
	if id, ok := String(raw["expenseId"]); ok && id != "" {
		return id
	}
	for _, alias := range idAliases {
		if id, ok := String(raw[alias]); ok && id != "" {
			return id
		}
	}
	return uuid.NewString()
}
