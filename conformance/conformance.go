// Package conformance checks an assembled record against the FHIR R4 model.
// It runs after pre-validation: a strict typed decode catches shape errors the
// structural checks cannot see (an object where the model wants an array, a
// number where it wants a string), and a fixed set of FHIRPath invariants
// covers the model constraints the service relies on.
package conformance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gofhir/fhir/r4"
	"github.com/gofhir/fhirpath"
	"github.com/gofhir/fhirpath/types"
)

// Invariant is a FHIRPath constraint evaluated against the whole resource.
type Invariant struct {
	Key        string
	Expression string
	Human      string
}

// invariants are compiled once per Validator and cached.
var invariants = []Invariant{
	{
		Key:        "imm-status",
		Expression: "status.exists()",
		Human:      "an immunization record must carry a status",
	},
	{
		Key:        "imm-vaccine-code",
		Expression: "vaccineCode.exists() or status = 'not-done'",
		Human:      "a completed immunization record must carry a vaccineCode",
	},
	{
		Key:        "imm-occurrence",
		Expression: "occurrenceDateTime.exists() or occurrenceString.exists()",
		Human:      "an immunization record must state when it occurred",
	},
	{
		Key:        "imm-dose-number",
		Expression: "protocolApplied.all(doseNumberPositiveInt.exists() or doseNumberString.exists())",
		Human:      "every protocolApplied entry must carry a dose number",
	},
	{
		Key:        "imm-patient",
		Expression: "patient.exists()",
		Human:      "an immunization record must reference a patient",
	},
}

// Validator decodes records into the R4 model and evaluates the invariant
// set. Compiled expressions are cached; a Validator is safe for concurrent
// use.
type Validator struct {
	mu    sync.Mutex
	cache map[string]*fhirpath.Expression
}

// New returns a Validator with an empty expression cache.
func New() *Validator {
	return &Validator{cache: make(map[string]*fhirpath.Expression)}
}

// Validate returns the conformance diagnostics for a record, in evaluation
// order. A decode failure ends the check early: invariants assume a record
// the model could represent.
func (v *Validator) Validate(ctx context.Context, record map[string]any) []string {
	resourceBytes, err := json.Marshal(record)
	if err != nil {
		return []string{fmt.Sprintf("record could not be encoded: %v", err)}
	}

	if err := decodeStrict(record); err != nil {
		return []string{fmt.Sprintf("record does not conform to the FHIR R4 Immunization model: %v", err)}
	}

	var diags []string
	for _, inv := range invariants {
		if ctx.Err() != nil {
			break
		}
		ok, err := v.evaluate(inv.Expression, resourceBytes)
		if err != nil {
			diags = append(diags, fmt.Sprintf("%s could not be evaluated: %v", inv.Key, err))
			continue
		}
		if !ok {
			diags = append(diags, fmt.Sprintf("%s: %s", inv.Key, inv.Human))
		}
	}
	return diags
}

// decodeStrict unmarshals into the typed model rejecting unknown fields.
// Contained resources are shape-checked separately: each is its own resource
// type, so the Immunization decode sees the record without them.
func decodeStrict(record map[string]any) error {
	if contained, ok := record["contained"]; ok {
		list, ok := contained.([]any)
		if !ok {
			return fmt.Errorf("contained must be an array of resources")
		}
		for i, v := range list {
			res, ok := v.(map[string]any)
			if !ok {
				return fmt.Errorf("contained[%d] must be a resource object", i)
			}
			if _, ok := res["resourceType"].(string); !ok {
				return fmt.Errorf("contained[%d] must declare a resourceType", i)
			}
		}
	}

	trimmed := make(map[string]any, len(record))
	for k, v := range record {
		if k != "contained" {
			trimmed[k] = v
		}
	}
	trimmedBytes, err := json.Marshal(trimmed)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(trimmedBytes))
	dec.DisallowUnknownFields()
	var imms r4.Immunization
	return dec.Decode(&imms)
}

// evaluate runs one expression against the resource, compiling and caching it
// on first use. FHIRPath truthiness applies: an empty collection is false, a
// single boolean is itself, any other non-empty collection is true.
func (v *Validator) evaluate(expression string, resourceBytes []byte) (bool, error) {
	compiled, err := v.getOrCompile(expression)
	if err != nil {
		return false, err
	}

	result, err := compiled.Evaluate(resourceBytes)
	if err != nil {
		return false, err
	}
	return toBool(result), nil
}

func (v *Validator) getOrCompile(expression string) (*fhirpath.Expression, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if compiled, ok := v.cache[expression]; ok {
		return compiled, nil
	}
	compiled, err := fhirpath.Compile(expression)
	if err != nil {
		return nil, err
	}
	v.cache[expression] = compiled
	return compiled, nil
}

func toBool(result types.Collection) bool {
	if len(result) == 0 {
		return false
	}
	if len(result) == 1 {
		if b, ok := result[0].(types.Boolean); ok {
			return b.Bool()
		}
	}
	return true
}

// CacheSize returns the number of compiled expressions held.
func (v *Validator) CacheSize() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.cache)
}

// Invariants returns the invariant set in evaluation order.
func Invariants() []Invariant {
	out := make([]Invariant, len(invariants))
	copy(out, invariants)
	return out
}
