package assessment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/lamim/assessment-reports/internal/score"
)

// Percent is a percentage as delivered by the report API. The API sends it as
// a JSON number on some routes and as a numeric string on others. Text that
// does not parse is kept in Raw and reads back as NaN.
type Percent struct {
	value float64
	raw   string
	valid bool
	text  bool
}

// PercentOf builds a valid Percent from a number
func PercentOf(v float64) Percent {
	return Percent{value: v, raw: strconv.FormatFloat(v, 'f', -1, 64), valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

// PercentText builds a Percent the way a string payload would decode
func PercentText(s string) Percent {
	v := score.ParsePercent(s)
	return Percent{value: v, raw: s, valid: !math.IsNaN(v), text: true}
}

// Float returns the numeric value, or NaN when the field was missing, null or
// unparseable.
func (p Percent) Float() float64 {
	if !p.valid {
		return math.NaN()
	}
	return p.value
}

// Valid reports whether the field held a usable number
func (p Percent) Valid() bool {
	return p.valid
}

// Numeric reports whether the value is usable and arrived as a JSON number
// rather than as text.
func (p Percent) Numeric() bool {
	return p.valid && !p.text
}

// Raw returns the text the value was decoded from
func (p Percent) Raw() string {
	return p.raw
}

// UnmarshalJSON accepts a number, a numeric string or null
func (p *Percent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = Percent{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode percent: %w", err)
		}
		*p = PercentText(s)
		return nil
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("decode percent: %w", err)
		}
		*p = Percent{value: f, raw: string(data), valid: true}
		return nil
	}
}

// MarshalJSON writes valid values as numbers and keeps bad text as a string
func (p Percent) MarshalJSON() ([]byte, error) {
	if p.valid {
		return json.Marshal(p.value)
	}
	if p.raw != "" {
		return json.Marshal(p.raw)
	}
	return []byte("null"), nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp is a creation date sent either as an ISO string or as epoch
// milliseconds.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON decodes a date string, a millisecond epoch or null
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		t.Time = time.Time{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode timestamp: %w", err)
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				t.Time = parsed
				return nil
			}
		}
		return fmt.Errorf("decode timestamp: unrecognized date %q", s)
	}
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	t.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

// MarshalJSON writes RFC 3339, or null for the zero time
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}
