package loader

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseRecordPreservesNumbers(t *testing.T) {
	record, err := ParseRecord([]byte(`{
		"doseQuantity": {"value": 0.5000, "code": "258773002"},
		"protocolApplied": [{"doseNumberPositiveInt": 1}]
	}`))
	if err != nil {
		t.Fatal(err)
	}

	doseQuantity := record["doseQuantity"].(map[string]any)
	value, ok := doseQuantity["value"].(decimal.Decimal)
	if !ok {
		t.Fatalf("doseQuantity.value is %T, want decimal.Decimal", doseQuantity["value"])
	}
	// The trailing zeros must survive: 0.5000 has four decimal places.
	if value.Exponent() != -4 {
		t.Errorf("exponent = %d, want -4", value.Exponent())
	}
	if !value.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("value = %s", value)
	}

	protocol := record["protocolApplied"].([]any)[0].(map[string]any)
	if n, ok := protocol["doseNumberPositiveInt"].(int64); !ok || n != 1 {
		t.Errorf("doseNumberPositiveInt = %v (%T)", protocol["doseNumberPositiveInt"], protocol["doseNumberPositiveInt"])
	}
}

func TestParseRecordShapes(t *testing.T) {
	record, err := ParseRecord([]byte(`{
		"status": "completed",
		"primarySource": true,
		"reportOrigin": null,
		"contained": [],
		"patient": {"reference": "#Patient1"},
		"note": "line1\nline2"
	}`))
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]any{
		"status":        "completed",
		"primarySource": true,
		"reportOrigin":  nil,
		"contained":     []any{},
		"patient":       map[string]any{"reference": "#Patient1"},
		"note":          "line1\nline2",
	}
	if !reflect.DeepEqual(record, want) {
		t.Errorf("record = %#v", record)
	}
}

func TestParseRecordExponentNumbers(t *testing.T) {
	record, err := ParseRecord([]byte(`{"a": 1e2, "b": 123456789012345678901234567890}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := record["a"].(decimal.Decimal); !ok {
		t.Errorf("a = %T, want decimal.Decimal", record["a"])
	}
	if _, ok := record["b"].(decimal.Decimal); !ok {
		t.Errorf("b = %T, want decimal.Decimal", record["b"])
	}
}

func TestParseRecordErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "array top level", input: `[1, 2]`},
		{name: "scalar top level", input: `"Immunization"`},
		{name: "truncated", input: `{"status": "comp`},
		{name: "empty", input: ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRecord([]byte(tt.input)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
