// Package decorate builds a FHIR Immunization resource from the flat fields
// of a legacy CSV row. Six order-independent decorators each own one slice of
// the resource; a field is only ever added when at least one of its source
// values is non-empty, so absent data never materialises as empty elements.
//
// Decorators must not panic: a panicking decorator is reported as an
// UnhandledError (a bug), while bad row data surfaces as a RowError
// aggregating every field problem found.
package decorate

import (
	"strings"

	"github.com/dlzhry2/immunisation-fhir-api-sub000/fieldpath"
)

// Row holds one flat input record, keyed by the snake_case form of the legacy
// CSV headers.
type Row map[string]string

// Get returns the value of a flat field, or "" when absent.
func (r Row) Get(key string) string {
	return r[key]
}

// Synthetic ids for contained resources. The patient reference and
// performer.actor references point at these.
const (
	patientID       = "Patient1"
	practitionerID  = "Practitioner1"
	questionnaireID = "QR1"
)

// decorator adds one concern's fields to the resource being assembled. It
// returns nil when the row's values posed no problem.
type decorator struct {
	name string
	fn   func(imms map[string]any, row Row) *DecoratorError
}

var allDecorators = []decorator{
	{"immunization", decorateImmunization},
	{"patient", decoratePatient},
	{"vaccine", decorateVaccine},
	{"vaccination", decorateVaccination},
	{"performer", decoratePerformer},
	{"questionnaire", decorateQuestionnaire},
}

// Decorate transforms a flat row into an Immunization resource. All
// decorators run regardless of individual failures; their field errors are
// aggregated into a single RowError. A panic inside a decorator aborts the
// row with an UnhandledError.
func Decorate(row Row) (map[string]any, error) {
	imms := map[string]any{
		"resourceType": "Immunization",
		"contained":    []any{},
		"extension":    []any{},
		"performer":    []any{},
	}

	var errs []*DecoratorError
	for _, d := range allDecorators {
		decErr, unhandled := runDecorator(d, imms, row)
		if unhandled != nil {
			return nil, unhandled
		}
		if decErr != nil {
			errs = append(errs, decErr)
		}
	}

	if len(errs) > 0 {
		return nil, &RowError{Errors: errs}
	}
	return imms, nil
}

func runDecorator(d decorator, imms map[string]any, row Row) (decErr *DecoratorError, unhandled error) {
	defer func() {
		if r := recover(); r != nil {
			decErr = nil
			unhandled = &UnhandledError{Decorator: d.name, Cause: r}
		}
	}()
	return d.fn(imms, row), nil
}

func appendContained(imms map[string]any, resource map[string]any) {
	imms["contained"] = append(imms["contained"].([]any), resource)
}

// decorateImmunization covers the fields of the Immunization resource itself:
// status, statusReason, reasonCode, recorded and identifier.
func decorateImmunization(imms map[string]any, row Row) *DecoratorError {
	var fields []FieldError

	notGiven := convertBoolean(row.Get("not_given"))
	_, notGivenValid := notGiven.(bool)
	if !notGivenValid {
		fields = append(fields, FieldError{
			Field:   "NOT_GIVEN",
			Message: "NOT_GIVEN is missing or is not a boolean",
		})
	}

	actionFlag := strings.ToLower(row.Get("action_flag"))
	actionFlagValid := actionFlag == "new" || actionFlag == "update"
	if !actionFlagValid {
		// An action flag of 'delete' is routed to deletion upstream and
		// never reaches the decorators.
		fields = append(fields, FieldError{
			Field:   "ACTION_FLAG",
			Message: "ACTION_FLAG is missing or is not in the set 'new', 'update', 'delete'",
		})
	}

	// Status can only be derived when both flags are valid: a not-given
	// vaccination is 'not-done', anything else 'completed'.
	if notGivenValid && actionFlagValid {
		if notGiven == true {
			imms["status"] = "not-done"
		} else {
			imms["status"] = "completed"
		}
	}

	reasonNotGivenCode := row.Get("reason_not_given_code")
	reasonNotGivenTerm := row.Get("reason_not_given_term")
	addCustom(imms, "statusReason",
		[]any{reasonNotGivenCode, reasonNotGivenTerm},
		map[string]any{
			"coding": []any{compact(map[string]any{
				"code":    reasonNotGivenCode,
				"display": reasonNotGivenTerm,
			})},
		})

	// reasonCode is the reason for vaccination, distinct from statusReason.
	indicationCode := row.Get("indication_code")
	indicationTerm := row.Get("indication_term")
	addCustom(imms, "reasonCode",
		[]any{indicationCode, indicationTerm},
		[]any{map[string]any{
			"coding": []any{compact(map[string]any{
				"code":    indicationCode,
				"display": indicationTerm,
			})},
		}})

	addConverted(imms, "recorded", row.Get("recorded_date"), convertDate)

	addListOfMap(imms, "identifier", map[string]any{
		"value":  row.Get("unique_id"),
		"system": row.Get("unique_id_uri"),
	})

	if len(fields) > 0 {
		return &DecoratorError{Decorator: "immunization", Fields: fields}
	}
	return nil
}

// decoratePatient creates the contained Patient resource and the patient
// reference pointing at it.
func decoratePatient(imms map[string]any, row Row) *DecoratorError {
	nhsNumber := row.Get("nhs_number")
	statusIndicatorCode := row.Get("nhs_number_status_indicator_code")
	statusIndicatorDescription := row.Get("nhs_number_status_indicator_description")

	surname := row.Get("person_surname")
	forename := row.Get("person_forename")
	genderCode := row.Get("person_gender_code")
	dob := row.Get("person_dob")
	postcode := row.Get("person_postcode")

	if !anyNotEmpty(surname, forename, genderCode, dob, postcode,
		nhsNumber, statusIndicatorCode, statusIndicatorDescription) {
		return nil
	}

	imms["patient"] = map[string]any{"reference": "#" + patientID}
	patient := map[string]any{
		"id":           patientID,
		"resourceType": "Patient",
	}

	addConverted(patient, "birthDate", dob, convertDate)
	addConverted(patient, "gender", genderCode, convertGender)
	addListOfMap(patient, "address", map[string]any{"postalCode": postcode})

	if anyNotEmpty(surname, forename) {
		name := map[string]any{}
		addItem(name, "family", surname)
		addCustom(name, "given", []any{forename}, []any{forename})
		patient["name"] = []any{name}
	}

	if anyNotEmpty(nhsNumber, statusIndicatorCode, statusIndicatorDescription) {
		identifier := map[string]any{}
		if isNotEmpty(nhsNumber) {
			identifier["value"] = nhsNumber
			identifier["system"] = fieldpath.SystemNHSNumber
		}
		if anyNotEmpty(statusIndicatorCode, statusIndicatorDescription) {
			identifier["extension"] = []any{extensionItem(
				fieldpath.URLNHSNumberVerificationStatus,
				fieldpath.SystemNHSNumberVerificationStatus,
				statusIndicatorCode,
				statusIndicatorDescription,
			)}
		}
		patient["identifier"] = []any{identifier}
	}

	appendContained(imms, patient)
	return nil
}

// decorateVaccine covers the physical vaccine product: vaccineCode,
// manufacturer, expiry and batch.
func decorateVaccine(imms map[string]any, row Row) *DecoratorError {
	addSNOMED(imms, "vaccineCode", row.Get("vaccine_product_code"), row.Get("vaccine_product_term"))
	addMap(imms, "manufacturer", map[string]any{"display": row.Get("vaccine_manufacturer")})
	addConverted(imms, "expirationDate", row.Get("expiry_date"), convertDate)
	addItem(imms, "lotNumber", row.Get("batch_number"))
	return nil
}

// decorateVaccination covers the administration itself: the UK-Core
// procedure/situation extensions, occurrence, site, route, dose.
func decorateVaccination(imms map[string]any, row Row) *DecoratorError {
	procedureCode := row.Get("vaccination_procedure_code")
	procedureTerm := row.Get("vaccination_procedure_term")
	situationCode := row.Get("vaccination_situation_code")
	situationTerm := row.Get("vaccination_situation_term")

	if anyNotEmpty(procedureCode, procedureTerm, situationCode, situationTerm) {
		var extensions []any
		if anyNotEmpty(procedureCode, procedureTerm) {
			extensions = append(extensions, extensionItem(
				fieldpath.URLVaccinationProcedure, fieldpath.SystemSNOMED, procedureCode, procedureTerm))
		}
		if anyNotEmpty(situationCode, situationTerm) {
			extensions = append(extensions, extensionItem(
				fieldpath.URLVaccinationSituation, fieldpath.SystemSNOMED, situationCode, situationTerm))
		}
		imms["extension"] = extensions
	}

	addConverted(imms, "occurrenceDateTime", row.Get("date_and_time"), convertDateTime)
	addConverted(imms, "primarySource", row.Get("primary_source"), convertBoolean)
	addMap(imms, "reportOrigin", map[string]any{"text": row.Get("report_origin")})

	addSNOMED(imms, "site", row.Get("site_of_vaccination_code"), row.Get("site_of_vaccination_term"))
	addSNOMED(imms, "route", row.Get("route_of_vaccination_code"), row.Get("route_of_vaccination_term"))

	doseAmount := row.Get("dose_amount")
	doseUnitTerm := row.Get("dose_unit_term")
	doseUnitCode := row.Get("dose_unit_code")
	addCustom(imms, "doseQuantity",
		[]any{doseAmount, doseUnitTerm, doseUnitCode},
		compact(map[string]any{
			"value":  convertIntegerOrDecimal(doseAmount),
			"unit":   doseUnitTerm,
			"system": "http://unitsofmeasure.org",
			"code":   doseUnitCode,
		}))

	addListOfMap(imms, "protocolApplied", map[string]any{
		"doseNumberPositiveInt": convertInteger(row.Get("dose_sequence")),
	})

	return nil
}

// decoratePerformer creates the performing organization, the contained
// Practitioner with its performer reference, and the location.
func decoratePerformer(imms map[string]any, row Row) *DecoratorError {
	siteCodeTypeURI := row.Get("site_code_type_uri")
	siteCode := row.Get("site_code")
	siteName := row.Get("site_name")

	bodyRegURI := row.Get("performing_professional_body_reg_uri")
	bodyRegCode := row.Get("performing_professional_body_reg_code")
	professionalSurname := row.Get("performing_professional_surname")
	professionalForename := row.Get("performing_professional_forename")

	if anyNotEmpty(siteCodeTypeURI, siteCode, siteName,
		bodyRegURI, bodyRegCode, professionalSurname, professionalForename) {
		var performers []any

		if anyNotEmpty(siteCodeTypeURI, siteCode, siteName) {
			actor := map[string]any{"type": "Organization"}
			addItem(actor, "display", siteName)
			addMap(actor, "identifier", map[string]any{
				"system": siteCodeTypeURI,
				"value":  siteCode,
			})
			performers = append(performers, map[string]any{"actor": actor})
		}

		if anyNotEmpty(bodyRegURI, bodyRegCode, professionalSurname, professionalForename) {
			practitioner := map[string]any{
				"resourceType": "Practitioner",
				"id":           practitionerID,
			}
			performers = append(performers, map[string]any{
				"actor": map[string]any{"reference": "#" + practitionerID},
			})

			addListOfMap(practitioner, "identifier", map[string]any{
				"value":  bodyRegCode,
				"system": bodyRegURI,
			})

			if anyNotEmpty(professionalSurname, professionalForename) {
				name := map[string]any{}
				addItem(name, "family", professionalSurname)
				addCustom(name, "given", []any{professionalForename}, []any{professionalForename})
				practitioner["name"] = []any{name}
			}

			appendContained(imms, practitioner)
		}

		imms["performer"] = performers
	}

	locationCode := row.Get("location_code")
	locationCodeTypeURI := row.Get("location_code_type_uri")
	addCustom(imms, "location",
		[]any{locationCode, locationCodeTypeURI},
		map[string]any{
			"type": "Location",
			"identifier": compact(map[string]any{
				"value":  locationCode,
				"system": locationCodeTypeURI,
			}),
		})

	return nil
}

// decorateQuestionnaire creates the contained QuestionnaireResponse holding
// the audit-trail answers.
func decorateQuestionnaire(imms map[string]any, row Row) *DecoratorError {
	consentCode := row.Get("consent_for_treatment_code")
	consentDescription := row.Get("consent_for_treatment_description")
	careSettingCode := row.Get("care_setting_type_code")
	careSettingDescription := row.Get("care_setting_type_description")
	reduceValidationCode := row.Get("reduce_validation_code")
	reduceValidationReason := row.Get("reduce_validation_reason")
	localPatientURI := row.Get("local_patient_uri")
	localPatientID := row.Get("local_patient_id")
	ipAddress := row.Get("ip_address")
	userID := row.Get("user_id")
	userName := row.Get("user_name")
	userEmail := row.Get("user_email")
	submittedTimestamp := row.Get("submitted_timestamp")
	sdsJobRoleName := row.Get("sds_job_role_name")

	if !anyNotEmpty(consentCode, consentDescription, careSettingCode, careSettingDescription,
		reduceValidationCode, reduceValidationReason, localPatientURI, localPatientID,
		ipAddress, userID, userName, userEmail, submittedTimestamp, sdsJobRoleName) {
		return nil
	}

	questionnaire := map[string]any{
		"resourceType": "QuestionnaireResponse",
		"id":           questionnaireID,
		"status":       "completed",
	}
	var items []any

	if anyNotEmpty(consentCode, consentDescription) {
		items = append(items, questionnaireItem("Consent", map[string]any{
			"valueCoding": compact(map[string]any{
				"code":    consentCode,
				"display": consentDescription,
			}),
		}))
	}

	if anyNotEmpty(careSettingCode, careSettingDescription) {
		items = append(items, questionnaireItem("CareSetting", map[string]any{
			"valueCoding": compact(map[string]any{
				"code":    careSettingCode,
				"display": careSettingDescription,
			}),
		}))
	}

	if isNotEmpty(reduceValidationCode) {
		items = append(items, questionnaireItem("ReduceValidation", map[string]any{
			"valueBoolean": convertBoolean(reduceValidationCode),
		}))
	}

	if anyNotEmpty(localPatientURI, localPatientID) {
		items = append(items, questionnaireItem("LocalPatient", map[string]any{
			"valueReference": map[string]any{
				"identifier": compact(map[string]any{
					"system": localPatientURI,
					"value":  localPatientID,
				}),
			},
		}))
	}

	if isNotEmpty(submittedTimestamp) {
		items = append(items, questionnaireItem("SubmittedTimeStamp", map[string]any{
			"valueDateTime": convertDateTime(submittedTimestamp),
		}))
	}

	for _, sv := range []struct {
		linkID string
		value  string
	}{
		{"IpAddress", ipAddress},
		{"UserId", userID},
		{"UserName", userName},
		{"UserEmail", userEmail},
		{"PerformerSDSJobRole", sdsJobRoleName},
		{"ReduceValidationReason", reduceValidationReason},
	} {
		if isNotEmpty(sv.value) {
			items = append(items, questionnaireItem(sv.linkID, map[string]any{
				"valueString": sv.value,
			}))
		}
	}

	questionnaire["item"] = items
	appendContained(imms, questionnaire)
	return nil
}
