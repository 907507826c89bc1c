package assistant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/lifeone/internal/models"
)

// Models get field types wrong often enough ("isDday":"false", a phone
// number sent as a JSON number) that a reply is decoded field by field and
// item by item. A bad field falls back to its zero value and a bad item is
// dropped; the rest of the reply survives.

// Flag is a bool that also accepts "true"/"false", 1/0 and "yes"/"no".
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.ToLower(strings.Trim(string(bytes.TrimSpace(b)), `"`))
	switch strings.TrimSpace(s) {
	case "true", "1", "yes", "y":
		*f = true
	case "false", "0", "no", "n", "", "null":
		*f = false
	default:
		return fmt.Errorf("flag %s: not a boolean", b)
	}
	return nil
}

// Text is a string that also accepts a JSON number, kept as written.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("text %s: %w", b, err)
	}
	*t = Text(n.String())
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. Only a reply that is not a JSON
// object at all is an error.
func (r *Response) UnmarshalJSON(b []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(b, &top); err != nil {
		return err
	}

	*r = Response{}
	field(top["answer"], &r.Answer)
	var needed Flag
	field(top["clarificationNeeded"], &needed)
	r.ClarificationNeeded = bool(needed)
	r.ClarificationOptions = items[string](top["clarificationOptions"])
	field(top["dataExtraction"], &r.DataExtraction)
	field(top["dataModification"], &r.DataModification)
	r.DataDeletion = idSet(top["dataDeletion"])
	r.WebSearchSources = items[models.WebSource](top["webSearchSources"])
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (x *Extraction) UnmarshalJSON(b []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(b, &top); err != nil {
		return err
	}
	*x = Extraction{
		Contacts: items[ExtractedContact](top["contacts"]),
		Schedule: items[ExtractedSchedule](top["schedule"]),
		Expenses: items[ExtractedExpense](top["expenses"]),
		Diary:    items[ExtractedDiary](top["diary"]),
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Modification) UnmarshalJSON(b []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(b, &top); err != nil {
		return err
	}
	*m = Modification{
		Contacts: items[Edit[ContactFields]](top["contacts"]),
		Schedule: items[Edit[ScheduleFields]](top["schedule"]),
		Expenses: items[Edit[ExpenseFields]](top["expenses"]),
		Diary:    items[Edit[DiaryFields]](top["diary"]),
	}
	return nil
}

func idSet(raw json.RawMessage) models.IDSet {
	var top map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &top) != nil {
		return models.IDSet{}
	}
	return models.IDSet{
		Contacts: items[string](top["contacts"]),
		Schedule: items[string](top["schedule"]),
		Expenses: items[string](top["expenses"]),
		Diary:    items[string](top["diary"]),
	}
}

// field decodes raw into v, leaving v untouched when raw is absent or of the
// wrong type.
func field[T any](raw json.RawMessage, v *T) {
	if len(raw) == 0 {
		return
	}
	var tmp T
	if json.Unmarshal(raw, &tmp) == nil {
		*v = tmp
	}
}

// items decodes a JSON array one element at a time and keeps the elements
// that decode. Anything but an array yields nil.
func items[T any](raw json.RawMessage) []T {
	var elems []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &elems) != nil {
		return nil
	}
	out := make([]T, 0, len(elems))
	for _, e := range elems {
		var v T
		if json.Unmarshal(e, &v) == nil {
			out = append(out, v)
		}
	}
	return out
}
