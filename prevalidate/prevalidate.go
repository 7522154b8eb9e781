// Package prevalidate runs the structural checks that precede conformance and
// mandation validation. Every check is absence-tolerant: it only fires when
// the field is present but malformed, so existence requirements stay with
// post-validation. All checks run regardless of earlier failures and their
// diagnostics are aggregated in a fixed order.
package prevalidate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dlzhry2/immunisation-fhir-api-sub000/fieldpath"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/primitive"
)

var genders = []string{"male", "female", "other", "unknown"}

var statuses = []string{"completed", "entered-in-error", "not-done"}

// check inspects one slice of the record and returns at most one diagnostic.
type check func(record map[string]any) error

var checks = []check{
	checkContained,
	checkPatientReference,
	checkPatientIdentifier,
	checkPatientIdentifierValue,
	checkPatientName,
	checkPatientNameGiven,
	checkPatientNameFamily,
	checkPatientBirthDate,
	checkPatientGender,
	checkPatientAddress,
	checkPatientAddressPostalCode,
	checkOccurrenceDateTime,
	checkQuestionnaireItems,
	checkQuestionnaireAnswers,
	checkPerformerActorType,
	checkPerformerActorReference,
	checkOrganizationIdentifierValue,
	checkOrganizationDisplay,
	checkIdentifier,
	checkIdentifierValue,
	checkIdentifierSystem,
	checkStatus,
	checkPractitionerName,
	checkPractitionerNameGiven,
	checkPractitionerNameFamily,
	checkPractitionerIdentifier,
	checkPractitionerIdentifierValue,
	checkPractitionerIdentifierSystem,
	checkPerformerSDSJobRole,
	checkRecorded,
	checkPrimarySource,
	checkReportOriginText,
	checkExtensionURLs,
	checkExtensionCodings,
	checkVaccinationProcedureCode,
	checkVaccinationProcedureDisplay,
	checkVaccinationSituationCode,
	checkVaccinationSituationDisplay,
	checkStatusReasonCoding,
	checkStatusReasonCodingCode,
	checkStatusReasonCodingDisplay,
	checkProtocolApplied,
	checkDoseNumberPositiveInt,
	checkDoseNumberString,
	checkTargetDisease,
	checkTargetDiseaseCodings,
	checkTargetDiseaseCodingCodes,
	checkVaccineCodeCoding,
	checkVaccineCodeCodingCode,
	checkVaccineCodeCodingDisplay,
	checkManufacturerDisplay,
	checkLotNumber,
	checkExpirationDate,
	checkSiteCoding,
	checkSiteCodingCode,
	checkSiteCodingDisplay,
	checkRouteCoding,
	checkRouteCodingCode,
	checkRouteCodingDisplay,
	checkDoseQuantityValue,
	checkDoseQuantityCode,
	checkDoseQuantityUnit,
	checkReasonCodeCodings,
	checkReasonCodeCodingCodes,
	checkReasonCodeCodingDisplays,
	checkPatientIdentifierExtension,
	checkNHSNumberVerificationStatusCoding,
	checkNHSNumberVerificationStatusCode,
	checkNHSNumberVerificationStatusDisplay,
	checkOrganizationIdentifierSystem,
	checkLocalPatientValue,
	checkLocalPatientSystem,
	checkConsentCode,
	checkConsentDisplay,
	checkCareSettingCode,
	checkCareSettingDisplay,
	checkIPAddress,
	checkUserID,
	checkUserName,
	checkUserEmail,
	checkSubmittedTimeStamp,
	checkLocationIdentifierValue,
	checkLocationIdentifierSystem,
	checkReduceValidation,
	checkReduceValidationReason,
}

// Diagnostics runs every check and returns their messages in check order.
// A check that panics on malformed input contributes a diagnostic instead of
// aborting the run, so one bad slice of the record never hides the rest.
func Diagnostics(record map[string]any) []string {
	var out []string
	for _, c := range checks {
		if err := runCheck(c, record); err != nil {
			out = append(out, err.Error())
		}
	}
	return out
}

func runCheck(c check, record map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return c(record)
}

// Validate runs every check and aggregates the diagnostics into one error.
func Validate(record map[string]any) error {
	diags := Diagnostics(record)
	if len(diags) == 0 {
		return nil
	}
	return errors.New("Validation errors: " + strings.Join(diags, "; "))
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// elemAt returns element i of a field's array value, when present and an
// object.
func elemAt(m map[string]any, key string, i int) (map[string]any, bool) {
	s := asSlice(m[key])
	if i < 0 || i >= len(s) {
		return nil, false
	}
	elem := asMap(s[i])
	return elem, elem != nil
}

// fieldAt reads m[key] reporting presence.
func fieldAt(m map[string]any, key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

// formatList renders values the way diagnostics quote reference lists,
// e.g. ['#Pract1', '#Pract2'].
func formatList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func nonEmptyString(record map[string]any, key fieldpath.Key) error {
	v, ok := fieldpath.Value(record, key)
	if !ok {
		return nil
	}
	return primitive.String(v, fieldpath.Location(key), primitive.StringOpts{})
}

func checkContained(record map[string]any) error {
	contained, ok := fieldAt(record, "contained")
	if !ok {
		return nil
	}
	return primitive.UniqueList(asSlice(contained), "resourceType",
		"contained[?(@.resourceType=='FIELD_TO_REPLACE')]")
}

// checkPatientReference requires patient.reference to be a local reference
// resolving to the id of the contained Patient resource.
func checkPatientReference(record map[string]any) error {
	reference, _ := asMap(record["patient"])["reference"].(string)
	if !strings.HasPrefix(reference, "#") {
		return errors.New("patient.reference must be a single reference to a contained Patient resource")
	}

	patient, ok := fieldpath.ContainedResource(record, "Patient")
	if !ok {
		return errors.New("contained[?(@.resourceType=='Patient')] is mandatory")
	}

	id, ok := patient["id"].(string)
	if !ok {
		return errors.New("The contained Patient resource must have an 'id' field")
	}
	if "#"+id != reference {
		return fmt.Errorf("The reference '%s' does not exist in the contained Patient resource", reference)
	}
	return nil
}

func checkPatientIdentifier(record map[string]any) error {
	patient, ok := fieldpath.ContainedResource(record, "Patient")
	if !ok {
		return nil
	}
	identifier, ok := fieldAt(patient, "identifier")
	if !ok {
		return nil
	}
	return primitive.List(identifier, "contained[?(@.resourceType=='Patient')].identifier",
		primitive.ListOpts{DefinedLength: 1})
}

func checkPatientIdentifierValue(record map[string]any) error {
	patient, ok := fieldpath.ContainedResource(record, "Patient")
	if !ok {
		return nil
	}
	identifier, ok := elemAt(patient, "identifier", 0)
	if !ok {
		return nil
	}
	value, ok := fieldAt(identifier, "value")
	if !ok {
		return nil
	}
	location := "contained[?(@.resourceType=='Patient')].identifier[0].value"
	if err := primitive.String(value, location, primitive.StringOpts{DefinedLength: 10, DisallowSpaces: true}); err != nil {
		return err
	}
	return primitive.NHSNumber(value.(string), location)
}

func checkPatientName(record map[string]any) error {
	patient, ok := fieldpath.ContainedResource(record, "Patient")
	if !ok {
		return nil
	}
	name, ok := fieldAt(patient, "name")
	if !ok {
		return nil
	}
	return primitive.List(name, "contained[?(@.resourceType=='Patient')].name",
		primitive.ListOpts{DefinedLength: 1})
}

func checkPatientNameGiven(record map[string]any) error {
	patient, ok := fieldpath.ContainedResource(record, "Patient")
	if !ok {
		return nil
	}
	name, ok := elemAt(patient, "name", 0)
	if !ok {
		return nil
	}
	given, ok := fieldAt(name, "given")
	if !ok {
		return nil
	}
	return primitive.List(given, "contained[?(@.resourceType=='Patient')].name[0].given",
		primitive.ListOpts{DefinedLength: 1, StringElements: true})
}

func checkPatientNameFamily(record map[string]any) error {
	patient, ok := fieldpath.ContainedResource(record, "Patient")
	if !ok {
		return nil
	}
	name, ok := elemAt(patient, "name", 0)
	if !ok {
		return nil
	}
	family, ok := fieldAt(name, "family")
	if !ok {
		return nil
	}
	return primitive.String(family, "contained[?(@.resourceType=='Patient')].name[0].family",
		primitive.StringOpts{})
}

func checkPatientBirthDate(record map[string]any) error {
	v, ok := fieldpath.Value(record, fieldpath.PatientBirthDate)
	if !ok {
		return nil
	}
	return primitive.Date(v, fieldpath.Location(fieldpath.PatientBirthDate))
}

func checkPatientGender(record map[string]any) error {
	v, ok := fieldpath.Value(record, fieldpath.PatientGender)
	if !ok {
		return nil
	}
	return primitive.String(v, fieldpath.Location(fieldpath.PatientGender),
		primitive.StringOpts{Predefined: genders})
}

func checkPatientAddress(record map[string]any) error {
	patient, ok := fieldpath.ContainedResource(record, "Patient")
	if !ok {
		return nil
	}
	address, ok := fieldAt(patient, "address")
	if !ok {
		return nil
	}
	return primitive.List(address, "contained[?(@.resourceType=='Patient')].address",
		primitive.ListOpts{DefinedLength: 1})
}

func checkPatientAddressPostalCode(record map[string]any) error {
	v, ok := fieldpath.Value(record, fieldpath.PatientAddressPostalCode)
	if !ok {
		return nil
	}
	return primitive.String(v, fieldpath.Location(fieldpath.PatientAddressPostalCode),
		primitive.StringOpts{PostalCode: true})
}

func checkOccurrenceDateTime(record map[string]any) error {
	v, ok := fieldAt(record, "occurrenceDateTime")
	if !ok {
		return nil
	}
	return primitive.DateTime(v, "occurrenceDateTime")
}

func checkQuestionnaireItems(record map[string]any) error {
	qr, ok := fieldpath.ContainedResource(record, "QuestionnaireResponse")
	if !ok {
		return nil
	}
	items, ok := fieldAt(qr, "item")
	if !ok {
		return nil
	}
	return primitive.UniqueList(asSlice(items), "linkId",
		"contained[?(@.resourceType=='QuestionnaireResponse')].item[?(@.linkId=='FIELD_TO_REPLACE')]")
}

func checkQuestionnaireAnswers(record map[string]any) error {
	qr, ok := fieldpath.ContainedResource(record, "QuestionnaireResponse")
	if !ok {
		return nil
	}
	for index, v := range asSlice(qr["item"]) {
		item := asMap(v)
		answer, ok := fieldAt(item, "answer")
		if !ok {
			continue
		}
		location := fmt.Sprintf("contained[?(@.resourceType=='QuestionnaireResponse')].item[%d].answer", index)
		if err := primitive.List(answer, location, primitive.ListOpts{DefinedLength: 1}); err != nil {
			return err
		}
	}
	return nil
}

func checkPerformerActorType(record map[string]any) error {
	seen := false
	for _, v := range asSlice(record["performer"]) {
		actor := asMap(asMap(v)["actor"])
		if actor == nil {
			return nil
		}
		if actor["type"] == "Organization" {
			if seen {
				return errors.New("performer.actor[?@.type=='Organization'] must be unique")
			}
			seen = true
		}
	}
	return nil
}

// checkPerformerActorReference ties the contained Practitioner resource to a
// single local performer.actor.reference, in both directions.
func checkPerformerActorReference(record map[string]any) error {
	var references []string
	for _, v := range asSlice(record["performer"]) {
		reference, _ := asMap(asMap(v)["actor"])["reference"].(string)
		if strings.HasPrefix(reference, "#") {
			references = append(references, reference)
		}
	}

	if len(references) > 1 {
		return errors.New("performer.actor.reference must be a single reference to a contained Practitioner resource. " +
			"References found: " + formatList(references))
	}

	practitioner, ok := fieldpath.ContainedResource(record, "Practitioner")
	if !ok {
		if len(references) != 0 {
			return errors.New("The reference(s) " + formatList(references) +
				" do not exist in the contained Practitioner resources")
		}
		return nil
	}

	id, ok := practitioner["id"].(string)
	if !ok {
		return errors.New("The contained Practitioner resource must have an 'id' field")
	}
	if len(references) == 0 {
		return errors.New("contained Practitioner ID must be referenced by performer.actor.reference")
	}
	if "#"+id != references[0] {
		return fmt.Errorf("The reference '%s' does not exist in the contained Practitioner resources", references[0])
	}
	return nil
}

func checkOrganizationIdentifierValue(record map[string]any) error {
	return nonEmptyString(record, fieldpath.OrganizationIdentifierValue)
}

func checkOrganizationDisplay(record map[string]any) error {
	performer, ok := fieldpath.OrganizationPerformer(record)
	if !ok {
		return nil
	}
	display, ok := fieldAt(asMap(performer["actor"]), "display")
	if !ok {
		return nil
	}
	return primitive.String(display, "performer[?@.actor.type == 'Organization'].actor.display",
		primitive.StringOpts{})
}

func checkIdentifier(record map[string]any) error {
	identifier, ok := fieldAt(record, "identifier")
	if !ok {
		return nil
	}
	return primitive.List(identifier, "identifier", primitive.ListOpts{DefinedLength: 1})
}

func checkIdentifierValue(record map[string]any) error {
	return nonEmptyString(record, fieldpath.IdentifierValue)
}

func checkIdentifierSystem(record map[string]any) error {
	return nonEmptyString(record, fieldpath.IdentifierSystem)
}

func checkStatus(record map[string]any) error {
	v, ok := fieldAt(record, "status")
	if !ok {
		return nil
	}
	return primitive.String(v, "status", primitive.StringOpts{Predefined: statuses})
}

func checkPractitionerName(record map[string]any) error {
	practitioner, ok := fieldpath.ContainedResource(record, "Practitioner")
	if !ok {
		return nil
	}
	name, ok := fieldAt(practitioner, "name")
	if !ok {
		return nil
	}
	return primitive.List(name, "contained[?(@.resourceType=='Practitioner')].name",
		primitive.ListOpts{DefinedLength: 1})
}

func checkPractitionerNameGiven(record map[string]any) error {
	practitioner, ok := fieldpath.ContainedResource(record, "Practitioner")
	if !ok {
		return nil
	}
	name, ok := elemAt(practitioner, "name", 0)
	if !ok {
		return nil
	}
	given, ok := fieldAt(name, "given")
	if !ok {
		return nil
	}
	return primitive.List(given, "contained[?(@.resourceType=='Practitioner')].name[0].given",
		primitive.ListOpts{DefinedLength: 1, StringElements: true})
}

func checkPractitionerNameFamily(record map[string]any) error {
	practitioner, ok := fieldpath.ContainedResource(record, "Practitioner")
	if !ok {
		return nil
	}
	name, ok := elemAt(practitioner, "name", 0)
	if !ok {
		return nil
	}
	family, ok := fieldAt(name, "family")
	if !ok {
		return nil
	}
	return primitive.String(family, "contained[?(@.resourceType=='Practitioner')].name[0].family",
		primitive.StringOpts{})
}

func checkPractitionerIdentifier(record map[string]any) error {
	practitioner, ok := fieldpath.ContainedResource(record, "Practitioner")
	if !ok {
		return nil
	}
	identifier, ok := fieldAt(practitioner, "identifier")
	if !ok {
		return nil
	}
	return primitive.List(identifier, "contained[?(@.resourceType=='Practitioner')].identifier",
		primitive.ListOpts{DefinedLength: 1})
}

func checkPractitionerIdentifierValue(record map[string]any) error {
	return nonEmptyString(record, fieldpath.PractitionerIdentifierValue)
}

func checkPractitionerIdentifierSystem(record map[string]any) error {
	return nonEmptyString(record, fieldpath.PractitionerIdentifierSystem)
}

func checkPerformerSDSJobRole(record map[string]any) error {
	return nonEmptyString(record, fieldpath.PerformerSDSJobRole)
}

func checkRecorded(record map[string]any) error {
	v, ok := fieldAt(record, "recorded")
	if !ok {
		return nil
	}
	return primitive.Date(v, "recorded")
}

func checkPrimarySource(record map[string]any) error {
	v, ok := fieldAt(record, "primarySource")
	if !ok {
		return nil
	}
	return primitive.Boolean(v, "primarySource")
}

func checkReportOriginText(record map[string]any) error {
	v, ok := fieldAt(asMap(record["reportOrigin"]), "text")
	if !ok {
		return nil
	}
	return primitive.String(v, "reportOrigin.text", primitive.StringOpts{MaxLength: 100})
}

func checkExtensionURLs(record map[string]any) error {
	extensions, ok := fieldAt(record, "extension")
	if !ok {
		return nil
	}
	return primitive.UniqueList(asSlice(extensions), "url", "extension[?(@.url=='FIELD_TO_REPLACE')]")
}

func checkExtensionCodings(record map[string]any) error {
	for _, v := range asSlice(record["extension"]) {
		ext := asMap(v)
		coding, ok := fieldAt(asMap(ext["valueCodeableConcept"]), "coding")
		if !ok {
			continue
		}
		url, _ := ext["url"].(string)
		location := "extension[?(@.URL=='" + url + "']" +
			".valueCodeableConcept.coding[?(@.system=='FIELD_TO_REPLACE')]"
		if err := primitive.UniqueList(asSlice(coding), "system", location); err != nil {
			return err
		}
	}
	return nil
}

func checkVaccinationProcedureCode(record map[string]any) error {
	return nonEmptyString(record, fieldpath.VaccinationProcedureCode)
}

func checkVaccinationProcedureDisplay(record map[string]any) error {
	return nonEmptyString(record, fieldpath.VaccinationProcedureDisplay)
}

func checkVaccinationSituationCode(record map[string]any) error {
	return nonEmptyString(record, fieldpath.VaccinationSituationCode)
}

func checkVaccinationSituationDisplay(record map[string]any) error {
	return nonEmptyString(record, fieldpath.VaccinationSituationDisplay)
}

func checkStatusReasonCoding(record map[string]any) error {
	coding, ok := fieldAt(asMap(record["statusReason"]), "coding")
	if !ok {
		return nil
	}
	return primitive.UniqueList(asSlice(coding), "system", "statusReason.coding[?(@.system=='FIELD_TO_REPLACE')]")
}

func checkStatusReasonCodingCode(record map[string]any) error {
	return nonEmptyString(record, fieldpath.StatusReasonCodingCode)
}

func checkStatusReasonCodingDisplay(record map[string]any) error {
	return nonEmptyString(record, fieldpath.StatusReasonCodingDisplay)
}

func checkProtocolApplied(record map[string]any) error {
	protocolApplied, ok := fieldAt(record, "protocolApplied")
	if !ok {
		return nil
	}
	return primitive.List(protocolApplied, "protocolApplied", primitive.ListOpts{DefinedLength: 1})
}

func checkDoseNumberPositiveInt(record map[string]any) error {
	v, ok := fieldpath.Value(record, fieldpath.DoseNumberPositiveInt)
	if !ok {
		return nil
	}
	return primitive.PositiveInt(v, fieldpath.Location(fieldpath.DoseNumberPositiveInt), 9)
}

func checkDoseNumberString(record map[string]any) error {
	elem, ok := elemAt(record, "protocolApplied", 0)
	if !ok {
		return nil
	}
	v, ok := fieldAt(elem, "doseNumberString")
	if !ok {
		return nil
	}
	return primitive.String(v, "protocolApplied[0].doseNumberString",
		primitive.StringOpts{Predefined: []string{"Dose sequence not recorded"}})
}

func checkTargetDisease(record map[string]any) error {
	v, ok := fieldpath.Value(record, fieldpath.TargetDisease)
	if !ok {
		return nil
	}
	for _, elem := range asSlice(v) {
		if _, ok := fieldAt(asMap(elem), "coding"); !ok {
			return errors.New("Every element of protocolApplied[0].targetDisease must have 'coding' property")
		}
	}
	return nil
}

func checkTargetDiseaseCodings(record map[string]any) error {
	v, _ := fieldpath.Value(record, fieldpath.TargetDisease)
	for i, elem := range asSlice(v) {
		coding, ok := fieldAt(asMap(elem), "coding")
		if !ok {
			continue
		}
		location := fmt.Sprintf("protocolApplied[0].targetDisease[%d].coding[?(@.system=='FIELD_TO_REPLACE')]", i)
		if err := primitive.UniqueList(asSlice(coding), "system", location); err != nil {
			return err
		}
	}
	return nil
}

func checkTargetDiseaseCodingCodes(record map[string]any) error {
	v, _ := fieldpath.Value(record, fieldpath.TargetDisease)
	for i, elem := range asSlice(v) {
		var code any
		found := false
		for _, c := range asSlice(asMap(elem)["coding"]) {
			coding := asMap(c)
			if coding != nil && coding["system"] == fieldpath.SystemSNOMED {
				code, found = fieldAt(coding, "code")
				break
			}
		}
		if !found {
			continue
		}
		location := fmt.Sprintf("protocolApplied[0].targetDisease[%d].coding[?(@.system=='%s')].code",
			i, fieldpath.SystemSNOMED)
		if err := primitive.String(code, location, primitive.StringOpts{}); err != nil {
			return err
		}
	}
	return nil
}

func checkVaccineCodeCoding(record map[string]any) error {
	coding, ok := fieldAt(asMap(record["vaccineCode"]), "coding")
	if !ok {
		return nil
	}
	return primitive.UniqueList(asSlice(coding), "system", "vaccineCode.coding[?(@.system=='FIELD_TO_REPLACE')]")
}

func checkVaccineCodeCodingCode(record map[string]any) error {
	return nonEmptyString(record, fieldpath.VaccineCodeCodingCode)
}

func checkVaccineCodeCodingDisplay(record map[string]any) error {
	return nonEmptyString(record, fieldpath.VaccineCodeCodingDisplay)
}

func checkManufacturerDisplay(record map[string]any) error {
	return nonEmptyString(record, fieldpath.ManufacturerDisplay)
}

func checkLotNumber(record map[string]any) error {
	v, ok := fieldAt(record, "lotNumber")
	if !ok {
		return nil
	}
	return primitive.String(v, "lotNumber", primitive.StringOpts{MaxLength: 100})
}

func checkExpirationDate(record map[string]any) error {
	v, ok := fieldAt(record, "expirationDate")
	if !ok {
		return nil
	}
	return primitive.Date(v, "expirationDate")
}

func checkSiteCoding(record map[string]any) error {
	coding, ok := fieldAt(asMap(record["site"]), "coding")
	if !ok {
		return nil
	}
	return primitive.UniqueList(asSlice(coding), "system", "site.coding[?(@.system=='FIELD_TO_REPLACE')]")
}

func checkSiteCodingCode(record map[string]any) error {
	return nonEmptyString(record, fieldpath.SiteCodingCode)
}

func checkSiteCodingDisplay(record map[string]any) error {
	return nonEmptyString(record, fieldpath.SiteCodingDisplay)
}

func checkRouteCoding(record map[string]any) error {
	coding, ok := fieldAt(asMap(record["route"]), "coding")
	if !ok {
		return nil
	}
	return primitive.UniqueList(asSlice(coding), "system", "route.coding[?(@.system=='FIELD_TO_REPLACE')]")
}

func checkRouteCodingCode(record map[string]any) error {
	return nonEmptyString(record, fieldpath.RouteCodingCode)
}

func checkRouteCodingDisplay(record map[string]any) error {
	return nonEmptyString(record, fieldpath.RouteCodingDisplay)
}

func checkDoseQuantityValue(record map[string]any) error {
	v, ok := fieldpath.Value(record, fieldpath.DoseQuantityValue)
	if !ok {
		return nil
	}
	return primitive.Number(v, fieldpath.Location(fieldpath.DoseQuantityValue), 4)
}

func checkDoseQuantityCode(record map[string]any) error {
	return nonEmptyString(record, fieldpath.DoseQuantityCode)
}

func checkDoseQuantityUnit(record map[string]any) error {
	return nonEmptyString(record, fieldpath.DoseQuantityUnit)
}

func checkReasonCodeCodings(record map[string]any) error {
	for index, v := range asSlice(record["reasonCode"]) {
		coding, ok := fieldAt(asMap(v), "coding")
		if !ok {
			continue
		}
		location := fmt.Sprintf("reasonCode[%d].coding", index)
		if err := primitive.List(coding, location, primitive.ListOpts{DefinedLength: 1}); err != nil {
			return err
		}
	}
	return nil
}

func checkReasonCodeCodingCodes(record map[string]any) error {
	return checkReasonCodeCodingField(record, "code")
}

func checkReasonCodeCodingDisplays(record map[string]any) error {
	return checkReasonCodeCodingField(record, "display")
}

func checkReasonCodeCodingField(record map[string]any, field string) error {
	for index := range asSlice(record["reasonCode"]) {
		v, ok := fieldpath.ReasonCodeValue(record, index, field)
		if !ok {
			continue
		}
		if err := primitive.String(v, fieldpath.ReasonCodeLocation(index, field), primitive.StringOpts{}); err != nil {
			return err
		}
	}
	return nil
}

// nhsPatientIdentifier returns the contained Patient identifier entry carrying
// the NHS number system.
func nhsPatientIdentifier(record map[string]any) (map[string]any, bool) {
	patient, ok := fieldpath.ContainedResource(record, "Patient")
	if !ok {
		return nil, false
	}
	for _, v := range asSlice(patient["identifier"]) {
		identifier := asMap(v)
		if identifier != nil && identifier["system"] == fieldpath.SystemNHSNumber {
			return identifier, true
		}
	}
	return nil, false
}

func checkPatientIdentifierExtension(record map[string]any) error {
	identifier, ok := nhsPatientIdentifier(record)
	if !ok {
		return nil
	}
	extensions, ok := fieldAt(identifier, "extension")
	if !ok {
		return nil
	}
	location := "contained[?(@.resourceType=='Patient')].identifier[?(@.system=='" +
		fieldpath.SystemNHSNumber + "')].extension[?(@.url=='FIELD_TO_REPLACE')]"
	return primitive.UniqueList(asSlice(extensions), "url", location)
}

func checkNHSNumberVerificationStatusCoding(record map[string]any) error {
	identifier, ok := nhsPatientIdentifier(record)
	if !ok {
		return nil
	}
	for _, v := range asSlice(identifier["extension"]) {
		ext := asMap(v)
		if ext == nil || ext["url"] != fieldpath.URLNHSNumberVerificationStatus {
			continue
		}
		coding, ok := fieldAt(asMap(ext["valueCodeableConcept"]), "coding")
		if !ok {
			return nil
		}
		location := "contained[?(@.resourceType=='Patient')].identifier[?(@.system=='" +
			fieldpath.SystemNHSNumber + "')].extension[?(@.url=='" +
			fieldpath.URLNHSNumberVerificationStatus + "')].valueCodeableConcept.coding[?(@.system=='FIELD_TO_REPLACE')]"
		return primitive.UniqueList(asSlice(coding), "system", location)
	}
	return nil
}

func checkNHSNumberVerificationStatusCode(record map[string]any) error {
	return nonEmptyString(record, fieldpath.NHSNumberVerificationStatusCode)
}

func checkNHSNumberVerificationStatusDisplay(record map[string]any) error {
	return nonEmptyString(record, fieldpath.NHSNumberVerificationStatusDisplay)
}

func checkOrganizationIdentifierSystem(record map[string]any) error {
	return nonEmptyString(record, fieldpath.OrganizationIdentifierSystem)
}

func checkLocalPatientValue(record map[string]any) error {
	v, ok := fieldpath.Value(record, fieldpath.LocalPatientValue)
	if !ok {
		return nil
	}
	return primitive.String(v, fieldpath.Location(fieldpath.LocalPatientValue),
		primitive.StringOpts{MaxLength: 20})
}

func checkLocalPatientSystem(record map[string]any) error {
	return nonEmptyString(record, fieldpath.LocalPatientSystem)
}

func checkConsentCode(record map[string]any) error {
	return nonEmptyString(record, fieldpath.ConsentCode)
}

func checkConsentDisplay(record map[string]any) error {
	return nonEmptyString(record, fieldpath.ConsentDisplay)
}

func checkCareSettingCode(record map[string]any) error {
	return nonEmptyString(record, fieldpath.CareSettingCode)
}

func checkCareSettingDisplay(record map[string]any) error {
	return nonEmptyString(record, fieldpath.CareSettingDisplay)
}

func checkIPAddress(record map[string]any) error {
	return nonEmptyString(record, fieldpath.IPAddress)
}

func checkUserID(record map[string]any) error {
	return nonEmptyString(record, fieldpath.UserID)
}

func checkUserName(record map[string]any) error {
	return nonEmptyString(record, fieldpath.UserName)
}

func checkUserEmail(record map[string]any) error {
	return nonEmptyString(record, fieldpath.UserEmail)
}

func checkSubmittedTimeStamp(record map[string]any) error {
	v, ok := fieldpath.Value(record, fieldpath.SubmittedTimeStamp)
	if !ok {
		return nil
	}
	return primitive.DateTime(v, fieldpath.Location(fieldpath.SubmittedTimeStamp))
}

func checkLocationIdentifierValue(record map[string]any) error {
	return nonEmptyString(record, fieldpath.LocationIdentifierValue)
}

func checkLocationIdentifierSystem(record map[string]any) error {
	return nonEmptyString(record, fieldpath.LocationIdentifierSystem)
}

func checkReduceValidation(record map[string]any) error {
	v, ok := fieldpath.Value(record, fieldpath.ReduceValidation)
	if !ok {
		return nil
	}
	return primitive.Boolean(v, fieldpath.Location(fieldpath.ReduceValidation))
}

func checkReduceValidationReason(record map[string]any) error {
	return nonEmptyString(record, fieldpath.ReduceValidationReason)
}
