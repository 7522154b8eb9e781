// Package fieldpath defines the field-location strings that identify elements
// within the FHIR Immunization resource JSON, the generators that produce them,
// and accessors that read the corresponding values from an untyped record.
//
// Location strings use a JSONPath-like notation with filter predicates, e.g.
//
//	contained[?(@.resourceType=='Patient')].name[0].given
//
// Every diagnostic message the engine emits embeds one of these strings, so
// they are reproduced exactly; the accessors in this package walk the record
// in lock-step with the same predicates.
package fieldpath

// URLs and code systems expected within the Immunization resource JSON.
const (
	SystemSNOMED    = "http://snomed.info/sct"
	SystemNHSNumber = "https://fhir.nhs.uk/Id/nhs-number"

	// SystemNullFlavor is the vaccineCode coding system used when the
	// vaccination did not happen (status "not-done").
	SystemNullFlavor = "http://terminology.hl7.org/CodeSystem/v3-NullFlavor"

	URLVaccinationProcedure = "https://fhir.hl7.org.uk/StructureDefinition/Extension-UKCore-VaccinationProcedure"
	URLVaccinationSituation = "https://fhir.hl7.org.uk/StructureDefinition/Extension-UKCore-VaccinationSituation"

	URLNHSNumberVerificationStatus       = "https://fhir.hl7.org.uk/StructureDefinition/Extension-UKCore-NHSNumberVerificationStatus"
	SystemNHSNumberVerificationStatus    = "https://fhir.hl7.org.uk/CodeSystem/UKCore-NHSNumberVerificationStatusEngland"
)
