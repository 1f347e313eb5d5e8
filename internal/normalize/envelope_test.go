package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	cases := []struct {
		name string
		body string
		ids  []string
	}{
		{"bare array", `[{"expenseId":"a","title":"A"},{"expenseId":"b","title":"B"}]`, []string{"a", "b"}},
		{"items", `{"Items":[{"expenseId":{"S":"a"},"title":{"S":"A"}}],"Count":1}`, []string{"a"}},
		{"expenses", `{"expenses":[{"id":"a","title":"A"},{"id":"b","title":""}]}`, []string{"a"}},
		{"single object", `{"expenseId":"solo","title":"Solo"}`, []string{"solo"}},
		{"empty array", `[]`, []string{}},
		{"array with scalars", `[1,"x",{"expenseId":"a","title":"A"}]`, []string{"a"}},
		{"null items", `{"Items":null,"expenseId":"solo","title":"Solo"}`, []string{"solo"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raws, err := DecodeEnvelope([]byte(tc.body))
			require.NoError(t, err)
			ids := []string{}
			for _, e := range NormalizeAll(raws) {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tc.ids, ids)
		})
	}
}

func TestDecodeEnvelope_Errors(t *testing.T) {
	for _, body := range []string{
		``, `not json`, `null`, `42`, `"text"`,
		`{"Items":{"expenseId":"a","title":"A"}}`,
		`{"Items":"a"}`,
		`{"expenses":{"id":"a","title":"A"},"Count":1}`,
	} {
		_, err := DecodeEnvelope([]byte(body))
		assert.Error(t, err, body)
	}
}

func TestCreatedID(t *testing.T) {
	cases := map[string]string{
		`{"expenseId":"e1","id":"other"}`: "e1",
		`{"id":"e2"}`:                     "e2",
		`{"expense_id":"e3"}`:             "e3",
		`{"idValue":"e4"}`:                "e4",
		`{"expenseId":{"S":"e5"}}`:        "e5",
		`{"expenseId":"","id":"e6"}`:      "e6",
	}
	for body, want := range cases {
		got, ok := CreatedID([]byte(body))
		require.True(t, ok, body)
		assert.Equal(t, want, got, body)
	}

	for _, body := range []string{`{}`, `{"message":"ok"}`, `[]`, `oops`} {
		_, ok := CreatedID([]byte(body))
		assert.False(t, ok, body)
	}
}
