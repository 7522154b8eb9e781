package immunisation

// Version is the module version, set at build time via -ldflags where needed.
var Version = "1.0.0"

// Stage names used in Issue.Phase and in per-stage metrics.
const (
	// StageDecoration builds the FHIR resource from flat input fields.
	StageDecoration = "decoration"
	// StagePreValidation runs structural checks on the assembled resource.
	StagePreValidation = "pre-validation"
	// StageConformance checks the resource against the FHIR R4 model.
	StageConformance = "conformance"
	// StageVaccineResolution resolves the vaccine type from disease codes.
	StageVaccineResolution = "vaccine-resolution"
	// StagePostValidation enforces mandation rules per vaccine type and status.
	StagePostValidation = "post-validation"
)

// FHIRVersion identifies the FHIR release the engine targets.
// Only R4 is supported; the constant exists so callers can assert it.
type FHIRVersion string

// R4 is FHIR Release 4 (4.0.1), the release UK Core profiles build on.
const R4 FHIRVersion = "R4"

// String returns the version string.
func (v FHIRVersion) String() string {
	return string(v)
}

// IsValid returns true if this is a supported FHIR version.
func (v FHIRVersion) IsValid() bool {
	return v == R4
}
