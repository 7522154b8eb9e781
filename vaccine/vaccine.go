// Package vaccine derives the vaccine type of an immunisation record from the
// SNOMED disease codes in protocolApplied[0].targetDisease. The vaccine type
// is never stored on the record; it is computed per validation call and drives
// the mandation lookups.
package vaccine

import (
	"errors"
	"sort"
	"strings"

	"github.com/dlzhry2/immunisation-fhir-api-sub000/fieldpath"
)

// Type is a vaccine type derived from a disease-code combination.
type Type string

const (
	COVID19 Type = "COVID19"
	FLU     Type = "FLU"
	HPV     Type = "HPV"
	MMR     Type = "MMR"
	RSV     Type = "RSV"
)

// All lists every supported vaccine type.
func All() []Type {
	return []Type{COVID19, FLU, HPV, MMR, RSV}
}

// SNOMED disease codes, per the IPS target-diseases value set.
const (
	DiseaseCOVID19 = "840539006"
	DiseaseFlu     = "6142004"
	DiseaseHPV     = "240532009"
	DiseaseMeasles = "14189004"
	DiseaseMumps   = "36989005"
	DiseaseRubella = "36653000"
	DiseaseRSV     = "55735004"
)

// mapping pairs a sorted disease-code combination with its vaccine type.
// Multi-disease combinations are stored sorted so lookup can compare against
// the sorted input.
type mapping struct {
	codes       []string
	vaccineType Type
}

var mappings = []mapping{
	{[]string{DiseaseCOVID19}, COVID19},
	{[]string{DiseaseFlu}, FLU},
	{[]string{DiseaseHPV}, HPV},
	{sortedCodes(DiseaseMeasles, DiseaseMumps, DiseaseRubella), MMR},
	{[]string{DiseaseRSV}, RSV},
}

func sortedCodes(codes ...string) []string {
	sort.Strings(codes)
	return codes
}

// Resolve maps a disease-code combination to its vaccine type. The input
// order does not matter. An unknown combination fails with a diagnostic
// naming the offending codes.
func Resolve(diseaseCodes []string) (Type, error) {
	input := make([]string, len(diseaseCodes))
	copy(input, diseaseCodes)
	sort.Strings(input)

	for _, m := range mappings {
		if equal(input, m.codes) {
			return m.vaccineType, nil
		}
	}
	return "", errors.New(formatCodes(diseaseCodes) + " is not a valid combination of disease codes for this service")
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// formatCodes renders the codes the way the legacy diagnostics did,
// e.g. ['840539006', 'INVALID_VALUE'].
func formatCodes(codes []string) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, c := range codes {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('\'')
		sb.WriteString(c)
		sb.WriteByte('\'')
	}
	sb.WriteByte(']')
	return sb.String()
}

// diseaseDisplays maps disease codes to their SNOMED display terms, used when
// generating the targetDisease element for batch rows.
var diseaseDisplays = map[string]string{
	DiseaseCOVID19: "Disease caused by severe acute respiratory syndrome coronavirus 2",
	DiseaseFlu:     "Influenza",
	DiseaseHPV:     "Human papillomavirus infection",
	DiseaseMeasles: "Measles",
	DiseaseMumps:   "Mumps",
	DiseaseRubella: "Rubella",
	DiseaseRSV:     "Respiratory syncytial virus infection (disorder)",
}

// diseaseOrder lists the disease codes of each vaccine type in the order the
// targetDisease element presents them. Resolve sorts before comparing, so
// this order only affects generated elements.
var diseaseOrder = map[Type][]string{
	COVID19: {DiseaseCOVID19},
	FLU:     {DiseaseFlu},
	HPV:     {DiseaseHPV},
	MMR:     {DiseaseMeasles, DiseaseMumps, DiseaseRubella},
	RSV:     {DiseaseRSV},
}

// TargetDiseaseElement generates the protocolApplied[0].targetDisease value
// for a vaccine type: one codeable concept per disease, each with a single
// SNOMED coding. Batch rows do not carry disease codes, so the element is
// derived from the batch's vaccine type.
func TargetDiseaseElement(vaccineType Type) []any {
	codes, ok := diseaseOrder[vaccineType]
	if !ok {
		return nil
	}
	out := make([]any, 0, len(codes))
	for _, code := range codes {
		out = append(out, map[string]any{
			"coding": []any{map[string]any{
				"system":  fieldpath.SystemSNOMED,
				"code":    code,
				"display": diseaseDisplays[code],
			}},
		})
	}
	return out
}

// ExtractCodes collects the SNOMED code of every element of
// protocolApplied[0].targetDisease. Elements without a SNOMED coding
// contribute nothing.
func ExtractCodes(record map[string]any) []string {
	targetDisease, ok := fieldpath.Value(record, fieldpath.TargetDisease)
	if !ok {
		return nil
	}
	elements, ok := targetDisease.([]any)
	if !ok {
		return nil
	}

	var codes []string
	for _, elem := range elements {
		concept, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		codings, _ := concept["coding"].([]any)
		for _, c := range codings {
			coding, ok := c.(map[string]any)
			if !ok || coding["system"] != fieldpath.SystemSNOMED {
				continue
			}
			if code, ok := coding["code"].(string); ok {
				codes = append(codes, code)
				break
			}
		}
	}
	return codes
}

// FromRecord resolves the vaccine type directly from a record. Absence of any
// SNOMED disease code is reported as a missing mandatory field; an unknown
// combination is reported naming the codes.
func FromRecord(record map[string]any) (Type, error) {
	codes := ExtractCodes(record)
	if len(codes) == 0 {
		return "", errors.New(fieldpath.Location(fieldpath.TargetDiseaseCodes) + " is a mandatory field")
	}
	return Resolve(codes)
}
