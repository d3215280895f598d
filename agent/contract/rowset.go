package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one tabular row: field name -> cell value, with field order
// preserved as it appeared in the wire payload. A plain map would lose the
// order that decides spreadsheet column layout.
type Record struct {
	fields []string
	values map[string]string
}

// RowSet is an ordered sequence of Records.
type RowSet []Record

func NewRecord() *Record {
	return &Record{values: make(map[string]string, 8)}
}

// Set appends the field on first write; later writes update in place.
func (r *Record) Set(name, value string) {
	if r.values == nil {
		r.values = make(map[string]string, 8)
	}
	if _, seen := r.values[name]; !seen {
		r.fields = append(r.fields, name)
	}
	r.values[name] = value
}

func (r *Record) Get(name string) (string, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Fields returns field names in first-seen order.
func (r *Record) Fields() []string {
	return r.fields
}

func (r *Record) Len() int {
	return len(r.fields)
}

// UnmarshalJSON decodes a JSON object while preserving key order, which
// encoding/json's map decoding discards. Scalar values are stringified the way
// they appear on the wire; nested objects and arrays are rejected.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object, got %v", tok)
	}

	r.fields = nil
	r.values = make(map[string]string, 8)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("record key must be a string, got %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		switch v := valTok.(type) {
		case string:
			r.Set(key, v)
		case json.Number:
			r.Set(key, v.String())
		case bool:
			r.Set(key, fmt.Sprintf("%t", v))
		case nil:
			r.Set(key, "")
		default:
			return fmt.Errorf("record field %q has unsupported value %v", key, valTok)
		}
	}

	// consume closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[name])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Columns returns the union of field names across the set in first-seen order.
func (rs RowSet) Columns() []string {
	var cols []string
	seen := make(map[string]struct{}, 8)
	for _, rec := range rs {
		for _, name := range rec.Fields() {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			cols = append(cols, name)
		}
	}
	return cols
}
