package fieldpath

// Key identifies a field of the immunisation record independently of where it
// lives in the FHIR resource. Mandation rules are keyed by Key; Location maps
// a Key to its path within the resource JSON.
type Key string

// Field keys. The snake_case values double as mandation-table keys.
const (
	TargetDisease      Key = "target_disease"
	TargetDiseaseCodes Key = "target_disease_codes"

	PatientIdentifierValue   Key = "patient_identifier_value"
	PatientNameGiven         Key = "patient_name_given"
	PatientNameFamily        Key = "patient_name_family"
	PatientBirthDate         Key = "patient_birth_date"
	PatientGender            Key = "patient_gender"
	PatientAddressPostalCode Key = "patient_address_postal_code"

	OccurrenceDateTime Key = "occurrence_date_time"

	OrganizationIdentifierValue  Key = "organization_identifier_value"
	OrganizationIdentifierSystem Key = "organization_identifier_system"
	OrganizationDisplay          Key = "organization_display"

	IdentifierValue  Key = "identifier_value"
	IdentifierSystem Key = "identifier_system"

	PractitionerNameGiven        Key = "practitioner_name_given"
	PractitionerNameFamily       Key = "practitioner_name_family"
	PractitionerIdentifierValue  Key = "practitioner_identifier_value"
	PractitionerIdentifierSystem Key = "practitioner_identifier_system"

	Recorded         Key = "recorded"
	PrimarySource    Key = "primary_source"
	ReportOriginText Key = "report_origin_text"

	VaccinationProcedureCode    Key = "vaccination_procedure_code"
	VaccinationProcedureDisplay Key = "vaccination_procedure_display"
	VaccinationSituationCode    Key = "vaccination_situation_code"
	VaccinationSituationDisplay Key = "vaccination_situation_display"

	Status                    Key = "status"
	StatusReasonCodingCode    Key = "status_reason_coding_code"
	StatusReasonCodingDisplay Key = "status_reason_coding_display"

	DoseNumberPositiveInt Key = "dose_number_positive_int"

	VaccineCodeCodingCode    Key = "vaccine_code_coding_code"
	VaccineCodeCodingDisplay Key = "vaccine_code_coding_display"

	ManufacturerDisplay Key = "manufacturer_display"
	LotNumber           Key = "lot_number"
	ExpirationDate      Key = "expiration_date"

	SiteCodingCode     Key = "site_coding_code"
	SiteCodingDisplay  Key = "site_coding_display"
	RouteCodingCode    Key = "route_coding_code"
	RouteCodingDisplay Key = "route_coding_display"

	DoseQuantityValue Key = "dose_quantity_value"
	DoseQuantityCode  Key = "dose_quantity_code"
	DoseQuantityUnit  Key = "dose_quantity_unit"

	ReasonCodeCodingCode    Key = "reason_code_coding_code"
	ReasonCodeCodingDisplay Key = "reason_code_coding_display"

	NHSNumberVerificationStatusCode    Key = "nhs_number_verification_status_code"
	NHSNumberVerificationStatusDisplay Key = "nhs_number_verification_status_display"

	LocationIdentifierValue  Key = "location_identifier_value"
	LocationIdentifierSystem Key = "location_identifier_system"

	// Questionnaire-response backed fields.
	ConsentCode            Key = "consent_code"
	ConsentDisplay         Key = "consent_display"
	CareSettingCode        Key = "care_setting_code"
	CareSettingDisplay     Key = "care_setting_display"
	LocalPatientValue      Key = "local_patient_value"
	LocalPatientSystem     Key = "local_patient_system"
	IPAddress              Key = "ip_address"
	UserID                 Key = "user_id"
	UserName               Key = "user_name"
	UserEmail              Key = "user_email"
	SubmittedTimeStamp     Key = "submitted_time_stamp"
	PerformerSDSJobRole    Key = "performer_sds_job_role"
	ReduceValidation       Key = "reduce_validation"
	ReduceValidationReason Key = "reduce_validation_reason"
)

// ForContained returns the location of a contained resource of the given type,
// e.g. contained[?(@.resourceType=='Patient')].
func ForContained(resourceType string) string {
	return Build(func(b *Builder) {
		b.Append("contained")
		b.AppendFilter("resourceType", resourceType)
	})
}

// ForExtension returns the location of a code or display within an extension's
// valueCodeableConcept, filtered by extension url and coding system.
func ForExtension(url, system, field string) string {
	return Build(func(b *Builder) {
		b.Append("extension")
		b.AppendFilter("url", url)
		b.Append("valueCodeableConcept")
		b.Append("coding")
		b.AppendFilter("system", system)
		b.Append(field)
	})
}

// ForQuestionnaireItem returns the location of a questionnaire response answer,
// identified by linkId. The shape depends on the answer type: valueCoding
// answers address a code/display/system field, valueReference answers address
// an identifier field, and primitive answers address the value itself.
func ForQuestionnaireItem(linkID, answerType, field string) string {
	return Build(func(b *Builder) {
		b.Append("contained")
		b.AppendFilter("resourceType", "QuestionnaireResponse")
		b.Append("item")
		b.AppendFilter("linkId", linkID)
		b.Append("answer")
		b.AppendIndex(0)
		b.Append(answerType)
		switch answerType {
		case "valueCoding":
			b.Append(field)
		case "valueReference":
			b.Append("identifier")
			b.Append(field)
		}
	})
}

// containedPatient and containedPractitioner are the most common prefixes.
var (
	containedPatient      = ForContained("Patient")
	containedPractitioner = ForContained("Practitioner")

	// patientNHSIdentifier locates the NHS-number identifier entry of the
	// contained Patient resource.
	patientNHSIdentifier = containedPatient +
		".identifier[?(@.system=='" + SystemNHSNumber + "')]."
)

// locations maps each field key to its path within the resource JSON.
var locations = map[Key]string{
	TargetDisease:      "protocolApplied[0].targetDisease",
	TargetDiseaseCodes: "protocolApplied[0].targetDisease[0].coding[?(@.system=='" + SystemSNOMED + "')].code",

	PatientIdentifierValue:   containedPatient + ".identifier[0].value",
	PatientNameGiven:         containedPatient + ".name[0].given",
	PatientNameFamily:        containedPatient + ".name[0].family",
	PatientBirthDate:         containedPatient + ".birthDate",
	PatientGender:            containedPatient + ".gender",
	PatientAddressPostalCode: containedPatient + ".address[0].postalCode",

	OccurrenceDateTime: "occurrenceDateTime",

	OrganizationIdentifierValue:  "performer[?(@.actor.type=='Organization')].actor.identifier.value",
	OrganizationIdentifierSystem: "performer[?(@.actor.type=='Organization')].actor.identifier.system",
	OrganizationDisplay:          "performer[?(@.actor.type=='Organization')].actor.display",

	IdentifierValue:  "identifier[0].value",
	IdentifierSystem: "identifier[0].system",

	PractitionerNameGiven:        containedPractitioner + ".name[0].given",
	PractitionerNameFamily:       containedPractitioner + ".name[0].family",
	PractitionerIdentifierValue:  containedPractitioner + ".identifier[0].value",
	PractitionerIdentifierSystem: containedPractitioner + ".identifier[0].system",

	Recorded:         "recorded",
	PrimarySource:    "primarySource",
	ReportOriginText: "reportOrigin.text",

	VaccinationProcedureCode:    ForExtension(URLVaccinationProcedure, SystemSNOMED, "code"),
	VaccinationProcedureDisplay: ForExtension(URLVaccinationProcedure, SystemSNOMED, "display"),
	VaccinationSituationCode:    ForExtension(URLVaccinationSituation, SystemSNOMED, "code"),
	VaccinationSituationDisplay: ForExtension(URLVaccinationSituation, SystemSNOMED, "display"),

	Status:                    "status",
	StatusReasonCodingCode:    "statusReason.coding[?(@.system=='" + SystemSNOMED + "')].code",
	StatusReasonCodingDisplay: "statusReason.coding[?(@.system=='" + SystemSNOMED + "')].display",

	DoseNumberPositiveInt: "protocolApplied[0].doseNumberPositiveInt",

	VaccineCodeCodingCode:    "vaccineCode.coding[?(@.system=='" + SystemSNOMED + "')].code",
	VaccineCodeCodingDisplay: "vaccineCode.coding[?(@.system=='" + SystemSNOMED + "')].display",

	ManufacturerDisplay: "manufacturer.display",
	LotNumber:           "lotNumber",
	ExpirationDate:      "expirationDate",

	SiteCodingCode:     "site.coding[?(@.system=='" + SystemSNOMED + "')].code",
	SiteCodingDisplay:  "site.coding[?(@.system=='" + SystemSNOMED + "')].display",
	RouteCodingCode:    "route.coding[?(@.system=='" + SystemSNOMED + "')].code",
	RouteCodingDisplay: "route.coding[?(@.system=='" + SystemSNOMED + "')].display",

	DoseQuantityValue: "doseQuantity.value",
	DoseQuantityCode:  "doseQuantity.code",
	DoseQuantityUnit:  "doseQuantity.unit",

	ReasonCodeCodingCode:    "reasonCode[0].coding[0].code",
	ReasonCodeCodingDisplay: "reasonCode[0].coding[0].display",

	NHSNumberVerificationStatusCode: patientNHSIdentifier +
		ForExtension(URLNHSNumberVerificationStatus, SystemNHSNumberVerificationStatus, "code"),
	NHSNumberVerificationStatusDisplay: patientNHSIdentifier +
		ForExtension(URLNHSNumberVerificationStatus, SystemNHSNumberVerificationStatus, "display"),

	LocationIdentifierValue:  "location.identifier.value",
	LocationIdentifierSystem: "location.identifier.system",

	ConsentCode:            ForQuestionnaireItem("Consent", "valueCoding", "code"),
	ConsentDisplay:         ForQuestionnaireItem("Consent", "valueCoding", "display"),
	CareSettingCode:        ForQuestionnaireItem("CareSetting", "valueCoding", "code"),
	CareSettingDisplay:     ForQuestionnaireItem("CareSetting", "valueCoding", "display"),
	LocalPatientValue:      ForQuestionnaireItem("LocalPatient", "valueReference", "value"),
	LocalPatientSystem:     ForQuestionnaireItem("LocalPatient", "valueReference", "system"),
	IPAddress:              ForQuestionnaireItem("IpAddress", "valueString", ""),
	UserID:                 ForQuestionnaireItem("UserId", "valueString", ""),
	UserName:               ForQuestionnaireItem("UserName", "valueString", ""),
	UserEmail:              ForQuestionnaireItem("UserEmail", "valueString", ""),
	SubmittedTimeStamp:     ForQuestionnaireItem("SubmittedTimeStamp", "valueDateTime", ""),
	PerformerSDSJobRole:    ForQuestionnaireItem("PerformerSDSJobRole", "valueString", ""),
	ReduceValidation:       ForQuestionnaireItem("ReduceValidation", "valueBoolean", ""),
	ReduceValidationReason: ForQuestionnaireItem("ReduceValidationReason", "valueString", ""),
}

// Location returns the field-location string for a key. Unknown keys return
// the key itself so diagnostics stay readable.
func Location(key Key) string {
	if loc, ok := locations[key]; ok {
		return loc
	}
	return string(key)
}

// ReasonCodeLocation returns the location of a reasonCode coding field at the
// given element index, e.g. reasonCode[2].coding[0].code.
func ReasonCodeLocation(index int, field string) string {
	return Build(func(b *Builder) {
		b.Append("reasonCode")
		b.AppendIndex(index)
		b.Append("coding")
		b.AppendIndex(0)
		b.Append(field)
	})
}

// Keys returns every field key with a known location.
func Keys() []Key {
	out := make([]Key, 0, len(locations))
	for k := range locations {
		out = append(out, k)
	}
	return out
}
