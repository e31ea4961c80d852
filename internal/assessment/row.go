package assessment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/lamim/assessment-reports/internal/score"
)

// Column is one named value of a chart row
type Column struct {
	Name  string
	Value float64
}

// Row is a chart row whose columns are user names (or "Company Average")
// chosen by the API at run time. Columns keep the order in which the keys
// appeared in the payload.
type Row struct {
	Block    string
	Subblock string
	Columns  []Column
}

// Label is the sub-block name for sub-block rows and the block name otherwise
func (r Row) Label() string {
	if r.Subblock != "" {
		return r.Subblock
	}
	return r.Block
}

// ParentBlock returns the block a sub-block row belongs to
func (r Row) ParentBlock() string {
	return r.Block
}

// Value returns the value of the named column
func (r Row) Value(name string) (float64, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c.Value, true
		}
	}
	return 0, false
}

// ColumnNames lists the column names in payload order
func (r Row) ColumnNames() []string {
	names := make([]string, 0, len(r.Columns))
	for _, c := range r.Columns {
		names = append(names, c.Name)
	}
	return names
}

// UnmarshalJSON walks the object token by token so column order survives.
// Column values that are not numbers or numeric strings become 0.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("decode row: expected object")
	}

	row := Row{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode row: %w", err)
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode row %q: %w", key, err)
		}

		switch key {
		case "block":
			row.Block = rawText(raw)
		case "subblock":
			row.Subblock = rawText(raw)
		default:
			row.Columns = append(row.Columns, Column{Name: key, Value: rawNumber(raw)})
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}

	*r = row
	return nil
}

// MarshalJSON writes block, subblock and then the columns in order
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, value any) error {
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := write("block", r.Block); err != nil {
		return nil, err
	}
	if r.Subblock != "" {
		if err := write("subblock", r.Subblock); err != nil {
			return nil, err
		}
	}
	for _, c := range r.Columns {
		if err := write(c.Name, c.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.Trim(raw, `"`))
}

func rawNumber(raw json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v := score.ParsePercent(s); !math.IsNaN(v) {
			return v
		}
	}
	return 0
}
