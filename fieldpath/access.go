package fieldpath

// Accessors that read field values from an untyped record, walking the same
// predicates the location strings describe. A missing element at any step
// returns (nil, false); absence is never an error at this layer.

// asMap returns v as a JSON object, or nil.
func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// asSlice returns v as a JSON array, or nil.
func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// step walks one object key.
func step(m map[string]any, key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

// at returns element i of the array at m[key].
func at(m map[string]any, key string, i int) (map[string]any, bool) {
	v, ok := step(m, key)
	if !ok {
		return nil, false
	}
	s := asSlice(v)
	if i < 0 || i >= len(s) {
		return nil, false
	}
	elem := asMap(s[i])
	if elem == nil {
		return nil, false
	}
	return elem, true
}

// ContainedResource returns the first contained resource of the given type.
func ContainedResource(record map[string]any, resourceType string) (map[string]any, bool) {
	contained := asSlice(record["contained"])
	for _, v := range contained {
		res := asMap(v)
		if res != nil && res["resourceType"] == resourceType {
			return res, true
		}
	}
	return nil, false
}

// ContainedResources returns every contained resource of the given type.
func ContainedResources(record map[string]any, resourceType string) []map[string]any {
	var out []map[string]any
	for _, v := range asSlice(record["contained"]) {
		res := asMap(v)
		if res != nil && res["resourceType"] == resourceType {
			out = append(out, res)
		}
	}
	return out
}

// OrganizationPerformer returns the first performer whose actor.type is
// "Organization".
func OrganizationPerformer(record map[string]any) (map[string]any, bool) {
	for _, v := range asSlice(record["performer"]) {
		performer := asMap(v)
		actor := asMap(performer["actor"])
		if actor != nil && actor["type"] == "Organization" {
			return performer, true
		}
	}
	return nil, false
}

// CodingValue returns the requested field of the first coding entry whose
// system matches, within the codeable concept at record[key].
func CodingValue(record map[string]any, key, system, field string) (any, bool) {
	concept := asMap(record[key])
	return codingField(concept, system, field)
}

func codingField(concept map[string]any, system, field string) (any, bool) {
	if concept == nil {
		return nil, false
	}
	for _, v := range asSlice(concept["coding"]) {
		coding := asMap(v)
		if coding != nil && coding["system"] == system {
			val, ok := coding[field]
			return val, ok
		}
	}
	return nil, false
}

// ExtensionValue returns the code or display of an extension's
// valueCodeableConcept, matched by extension url and coding system. The owner
// may be the record itself or any element carrying an "extension" array.
func ExtensionValue(owner map[string]any, url, system, field string) (any, bool) {
	for _, v := range asSlice(owner["extension"]) {
		ext := asMap(v)
		if ext == nil || ext["url"] != url {
			continue
		}
		return codingField(asMap(ext["valueCodeableConcept"]), system, field)
	}
	return nil, false
}

// QuestionnaireAnswer returns the first answer of the questionnaire response
// item with the given linkId.
func QuestionnaireAnswer(record map[string]any, linkID string) (map[string]any, bool) {
	qr, ok := ContainedResource(record, "QuestionnaireResponse")
	if !ok {
		return nil, false
	}
	for _, v := range asSlice(qr["item"]) {
		item := asMap(v)
		if item == nil || item["linkId"] != linkID {
			continue
		}
		answers := asSlice(item["answer"])
		if len(answers) == 0 {
			return nil, false
		}
		answer := asMap(answers[0])
		if answer == nil {
			return nil, false
		}
		return answer, true
	}
	return nil, false
}

// questionnaireValue resolves an answer field the same way the location
// generator addresses it.
func questionnaireValue(record map[string]any, linkID, answerType, field string) (any, bool) {
	answer, ok := QuestionnaireAnswer(record, linkID)
	if !ok {
		return nil, false
	}
	v, ok := answer[answerType]
	if !ok {
		return nil, false
	}
	switch answerType {
	case "valueCoding":
		return step(asMap(v), field)
	case "valueReference":
		return step(asMap(asMap(v)["identifier"]), field)
	default:
		return v, true
	}
}

// nhsIdentifier returns the contained Patient identifier entry whose system is
// the NHS number system.
func nhsIdentifier(record map[string]any) (map[string]any, bool) {
	patient, ok := ContainedResource(record, "Patient")
	if !ok {
		return nil, false
	}
	for _, v := range asSlice(patient["identifier"]) {
		identifier := asMap(v)
		if identifier != nil && identifier["system"] == SystemNHSNumber {
			return identifier, true
		}
	}
	return nil, false
}

// ReasonCodeValue returns reasonCode[index].coding[0].<field>.
func ReasonCodeValue(record map[string]any, index int, field string) (any, bool) {
	elem, ok := at(record, "reasonCode", index)
	if !ok {
		return nil, false
	}
	codings := asSlice(elem["coding"])
	if len(codings) == 0 {
		return nil, false
	}
	return step(asMap(codings[0]), field)
}

// ReasonCodeCount returns the number of reasonCode elements.
func ReasonCodeCount(record map[string]any) int {
	return len(asSlice(record["reasonCode"]))
}

// Value reads the value a field key addresses. The boolean reports presence:
// (nil, false) means the element is absent anywhere along the path.
func Value(record map[string]any, key Key) (any, bool) {
	switch key {
	case TargetDisease:
		elem, ok := at(record, "protocolApplied", 0)
		if !ok {
			return nil, false
		}
		return step(elem, "targetDisease")

	case PatientIdentifierValue:
		identifier, ok := nhsIdentifier(record)
		if !ok {
			return nil, false
		}
		return step(identifier, "value")

	case PatientNameGiven, PatientNameFamily:
		patient, ok := ContainedResource(record, "Patient")
		if !ok {
			return nil, false
		}
		name, ok := at(patient, "name", 0)
		if !ok {
			return nil, false
		}
		if key == PatientNameGiven {
			return step(name, "given")
		}
		return step(name, "family")

	case PatientBirthDate, PatientGender:
		patient, ok := ContainedResource(record, "Patient")
		if !ok {
			return nil, false
		}
		if key == PatientBirthDate {
			return step(patient, "birthDate")
		}
		return step(patient, "gender")

	case PatientAddressPostalCode:
		patient, ok := ContainedResource(record, "Patient")
		if !ok {
			return nil, false
		}
		address, ok := at(patient, "address", 0)
		if !ok {
			return nil, false
		}
		return step(address, "postalCode")

	case OccurrenceDateTime:
		return step(record, "occurrenceDateTime")

	case OrganizationIdentifierValue, OrganizationIdentifierSystem, OrganizationDisplay:
		performer, ok := OrganizationPerformer(record)
		if !ok {
			return nil, false
		}
		actor := asMap(performer["actor"])
		if key == OrganizationDisplay {
			return step(actor, "display")
		}
		identifier := asMap(actor["identifier"])
		if key == OrganizationIdentifierValue {
			return step(identifier, "value")
		}
		return step(identifier, "system")

	case IdentifierValue, IdentifierSystem:
		elem, ok := at(record, "identifier", 0)
		if !ok {
			return nil, false
		}
		if key == IdentifierValue {
			return step(elem, "value")
		}
		return step(elem, "system")

	case PractitionerNameGiven, PractitionerNameFamily:
		practitioner, ok := ContainedResource(record, "Practitioner")
		if !ok {
			return nil, false
		}
		name, ok := at(practitioner, "name", 0)
		if !ok {
			return nil, false
		}
		if key == PractitionerNameGiven {
			return step(name, "given")
		}
		return step(name, "family")

	case PractitionerIdentifierValue, PractitionerIdentifierSystem:
		practitioner, ok := ContainedResource(record, "Practitioner")
		if !ok {
			return nil, false
		}
		identifier, ok := at(practitioner, "identifier", 0)
		if !ok {
			return nil, false
		}
		if key == PractitionerIdentifierValue {
			return step(identifier, "value")
		}
		return step(identifier, "system")

	case Recorded:
		return step(record, "recorded")
	case PrimarySource:
		return step(record, "primarySource")
	case Status:
		return step(record, "status")

	case ReportOriginText:
		return step(asMap(record["reportOrigin"]), "text")

	case VaccinationProcedureCode:
		return ExtensionValue(record, URLVaccinationProcedure, SystemSNOMED, "code")
	case VaccinationProcedureDisplay:
		return ExtensionValue(record, URLVaccinationProcedure, SystemSNOMED, "display")
	case VaccinationSituationCode:
		return ExtensionValue(record, URLVaccinationSituation, SystemSNOMED, "code")
	case VaccinationSituationDisplay:
		return ExtensionValue(record, URLVaccinationSituation, SystemSNOMED, "display")

	case StatusReasonCodingCode:
		return CodingValue(record, "statusReason", SystemSNOMED, "code")
	case StatusReasonCodingDisplay:
		return CodingValue(record, "statusReason", SystemSNOMED, "display")

	case DoseNumberPositiveInt:
		elem, ok := at(record, "protocolApplied", 0)
		if !ok {
			return nil, false
		}
		return step(elem, "doseNumberPositiveInt")

	case VaccineCodeCodingCode:
		return CodingValue(record, "vaccineCode", SystemSNOMED, "code")
	case VaccineCodeCodingDisplay:
		return CodingValue(record, "vaccineCode", SystemSNOMED, "display")

	case ManufacturerDisplay:
		return step(asMap(record["manufacturer"]), "display")
	case LotNumber:
		return step(record, "lotNumber")
	case ExpirationDate:
		return step(record, "expirationDate")

	case SiteCodingCode:
		return CodingValue(record, "site", SystemSNOMED, "code")
	case SiteCodingDisplay:
		return CodingValue(record, "site", SystemSNOMED, "display")
	case RouteCodingCode:
		return CodingValue(record, "route", SystemSNOMED, "code")
	case RouteCodingDisplay:
		return CodingValue(record, "route", SystemSNOMED, "display")

	case DoseQuantityValue, DoseQuantityCode, DoseQuantityUnit:
		doseQuantity := asMap(record["doseQuantity"])
		switch key {
		case DoseQuantityValue:
			return step(doseQuantity, "value")
		case DoseQuantityCode:
			return step(doseQuantity, "code")
		default:
			return step(doseQuantity, "unit")
		}

	case ReasonCodeCodingCode:
		return ReasonCodeValue(record, 0, "code")
	case ReasonCodeCodingDisplay:
		return ReasonCodeValue(record, 0, "display")

	case NHSNumberVerificationStatusCode, NHSNumberVerificationStatusDisplay:
		identifier, ok := nhsIdentifier(record)
		if !ok {
			return nil, false
		}
		field := "code"
		if key == NHSNumberVerificationStatusDisplay {
			field = "display"
		}
		return ExtensionValue(identifier, URLNHSNumberVerificationStatus, SystemNHSNumberVerificationStatus, field)

	case LocationIdentifierValue, LocationIdentifierSystem:
		identifier := asMap(asMap(record["location"])["identifier"])
		if key == LocationIdentifierValue {
			return step(identifier, "value")
		}
		return step(identifier, "system")

	case ConsentCode:
		return questionnaireValue(record, "Consent", "valueCoding", "code")
	case ConsentDisplay:
		return questionnaireValue(record, "Consent", "valueCoding", "display")
	case CareSettingCode:
		return questionnaireValue(record, "CareSetting", "valueCoding", "code")
	case CareSettingDisplay:
		return questionnaireValue(record, "CareSetting", "valueCoding", "display")
	case LocalPatientValue:
		return questionnaireValue(record, "LocalPatient", "valueReference", "value")
	case LocalPatientSystem:
		return questionnaireValue(record, "LocalPatient", "valueReference", "system")
	case IPAddress:
		return questionnaireValue(record, "IpAddress", "valueString", "")
	case UserID:
		return questionnaireValue(record, "UserId", "valueString", "")
	case UserName:
		return questionnaireValue(record, "UserName", "valueString", "")
	case UserEmail:
		return questionnaireValue(record, "UserEmail", "valueString", "")
	case SubmittedTimeStamp:
		return questionnaireValue(record, "SubmittedTimeStamp", "valueDateTime", "")
	case PerformerSDSJobRole:
		return questionnaireValue(record, "PerformerSDSJobRole", "valueString", "")
	case ReduceValidation:
		return questionnaireValue(record, "ReduceValidation", "valueBoolean", "")
	case ReduceValidationReason:
		return questionnaireValue(record, "ReduceValidationReason", "valueString", "")
	}

	return nil, false
}
