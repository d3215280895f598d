package contract

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestRecordUnmarshalPreservesOrder(t *testing.T) {
	t.Parallel()

	var rec Record
	if err := json.Unmarshal([]byte(`{"name":"A","qty":1,"done":true,"note":null}`), &rec); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	wantFields := []string{"name", "qty", "done", "note"}
	if !reflect.DeepEqual(rec.Fields(), wantFields) {
		t.Fatalf("unexpected field order: %v", rec.Fields())
	}
	if v, _ := rec.Get("qty"); v != "1" {
		t.Fatalf("qty = %q, want 1", v)
	}
	if v, _ := rec.Get("note"); v != "" {
		t.Fatalf("note = %q, want empty", v)
	}
}

func TestRecordUnmarshalRejectsNested(t *testing.T) {
	t.Parallel()

	var rec Record
	if err := json.Unmarshal([]byte(`{"a":{"b":1}}`), &rec); err == nil {
		t.Fatal("expected error for nested object")
	}
}

func TestRowSetColumnsUnionFirstSeen(t *testing.T) {
	t.Parallel()

	var rows RowSet
	payload := `[{"name":"A","qty":1},{"name":"B","price":5}]`
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := []string{"name", "qty", "price"}
	if !reflect.DeepEqual(rows.Columns(), want) {
		t.Fatalf("Columns() = %v, want %v", rows.Columns(), want)
	}
}

func TestRecordMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	var rec Record
	in := `{"z":"1","a":"2"}`
	if err := json.Unmarshal([]byte(in), &rec); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != in {
		t.Fatalf("round trip = %s, want %s", out, in)
	}
}
