package cmd

import (
	"reflect"
	"testing"
	"time"

	"github.com/handzsujt/data-dir/datadir"
	"github.com/handzsujt/data-dir/frame"
)

func TestParseTypesSpec(t *testing.T) {
	tests := []struct {
		input   string
		want    map[string]frame.Type
		wantErr bool
	}{
		{"", map[string]frame.Type{}, false},
		{"score:number", map[string]frame.Type{"score": frame.Number}, false},
		{
			"score:number,passed:bool,at:date",
			map[string]frame.Type{"score": frame.Number, "passed": frame.Bool, "at": frame.Date},
			false,
		},
		{"score", nil, true},
	}
	for _, tt := range tests {
		got, err := parseTypesSpec(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseTypesSpec(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if err == nil && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseTypesSpec(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseCell(t *testing.T) {
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		typ     frame.Type
		input   string
		want    any
		wantErr bool
	}{
		{frame.Text, "hello", "hello", false},
		{frame.Text, "", nil, false},
		{frame.Number, "2.5", 2.5, false},
		{frame.Number, "abc", nil, true},
		{frame.Bool, "true", true, false},
		{frame.Bool, "maybe", nil, true},
		{frame.Date, "2024-05-01T12:00:00Z", when, false},
		{frame.Date, "yesterday", nil, true},
		{frame.JSONB, `{"a": 1.5}`, map[string]any{"a": 1.5}, false},
	}
	for _, tt := range tests {
		got, err := parseCell(frame.Column{Name: "c", Type: tt.typ}, tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseCell(%s, %q) error = %v, wantErr %v", tt.typ, tt.input, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if w, ok := tt.want.(time.Time); ok {
			if g, ok := got.(time.Time); !ok || !g.Equal(w) {
				t.Errorf("parseCell(%s, %q) = %v, want %v", tt.typ, tt.input, got, tt.want)
			}
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseCell(%s, %q) = %v, want %v", tt.typ, tt.input, got, tt.want)
		}
	}
}

func TestDatasetRecords(t *testing.T) {
	f, err := frame.New([]frame.Column{
		{Name: "name", Type: frame.Text},
		{Name: "at", Type: frame.Date},
		{Name: "note", Type: frame.Text},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := f.Append("ada", when, nil); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	recs := datasetRecords(datadir.NewDataSet(f))
	if len(recs) != 1 {
		t.Fatalf("datasetRecords returned %d records, want 1", len(recs))
	}
	rec := recs[0].(map[string]any)
	if rec["name"] != "ada" {
		t.Errorf("name = %v, want ada", rec["name"])
	}
	if rec["at"] != "2024-05-01T12:00:00Z" {
		t.Errorf("at = %v, want RFC3339 text", rec["at"])
	}
	if _, ok := rec["note"]; ok {
		t.Errorf("absent cell should not appear in the record, got %v", rec["note"])
	}
}

func TestDescribe(t *testing.T) {
	if got := describe(nil, "", &datadir.Raw{}); got != "  [raw]" {
		t.Errorf("describe raw = %q", got)
	}
	if got := describe(nil, "", datadir.NewGroup()); got != "/" {
		t.Errorf("describe group = %q", got)
	}
	if got := describe(nil, "", &datadir.DataSet{}); got != "  [dataset]" {
		t.Errorf("describe dataset = %q", got)
	}
}
