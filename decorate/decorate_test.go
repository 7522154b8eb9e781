package decorate

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func fullRow() Row {
	return Row{
		"not_given":     "false",
		"action_flag":   "new",
		"recorded_date": "20240131",
		"unique_id":     "a-unique-id-001",
		"unique_id_uri": "https://supplierABC/identifiers/vacc",

		"nhs_number":                              "9990548609",
		"nhs_number_status_indicator_code":        "01",
		"nhs_number_status_indicator_description": "Number present and verified",
		"person_surname":                          "Taylor",
		"person_forename":                         "Sarah",
		"person_gender_code":                      "2",
		"person_dob":                              "19650228",
		"person_postcode":                         "EC1A 1BB",

		"vaccine_product_code": "42223111000001107",
		"vaccine_product_term": "Quadrivalent influenza vaccine",
		"vaccine_manufacturer": "Sanofi Pasteur",
		"expiry_date":          "20250915",
		"batch_number":         "BN92478105653",

		"vaccination_procedure_code": "1303503001",
		"vaccination_procedure_term": "Administration of vaccine product",
		"date_and_time":              "20240131T13003300",
		"primary_source":             "TRUE",
		"report_origin":              "X99999",
		"site_of_vaccination_code":   "368208006",
		"site_of_vaccination_term":   "Left upper arm structure",
		"route_of_vaccination_code":  "78421000",
		"route_of_vaccination_term":  "Intramuscular route",
		"dose_amount":                "0.5",
		"dose_unit_term":             "Milliliter",
		"dose_unit_code":             "258773002",
		"dose_sequence":              "1",

		"site_code_type_uri":                    "https://fhir.nhs.uk/Id/ods-organization-code",
		"site_code":                             "RVVKC",
		"site_name":                             "Acme Healthcare",
		"performing_professional_body_reg_uri":  "https://fhir.hl7.org.uk/Id/nmc-number",
		"performing_professional_body_reg_code": "99A9999A",
		"performing_professional_surname":       "Nightingale",
		"performing_professional_forename":      "Florence",
		"location_code":                         "RJC02",
		"location_code_type_uri":                "https://fhir.nhs.uk/Id/ods-organization-code",

		"consent_for_treatment_code":        "310375005",
		"consent_for_treatment_description": "Informed consent given",
		"care_setting_type_code":            "413294000",
		"care_setting_type_description":     "Community health services",
		"reduce_validation_code":            "false",
		"local_patient_uri":                 "https://supplierABC/identifiers/patient",
		"local_patient_id":                  "ACME-patient123",
		"ip_address":                        "192.0.2.10",
		"user_id":                           "jdoe12",
		"user_name":                         "Jo Doe",
		"user_email":                        "jo.doe@example.com",
		"submitted_timestamp":               "20240131T13023000",
		"sds_job_role_name":                 "Specialist Nurse Practitioner",
	}
}

func TestDecorateFullRow(t *testing.T) {
	imms, err := Decorate(fullRow())
	if err != nil {
		t.Fatalf("Decorate: %v", err)
	}

	if got := imms["resourceType"]; got != "Immunization" {
		t.Errorf("resourceType = %v", got)
	}
	if got := imms["status"]; got != "completed" {
		t.Errorf("status = %v", got)
	}
	if got := imms["recorded"]; got != "2024-01-31" {
		t.Errorf("recorded = %v", got)
	}
	if got := imms["occurrenceDateTime"]; got != "2024-01-31T13:00:33+00:00" {
		t.Errorf("occurrenceDateTime = %v", got)
	}
	if got := imms["primarySource"]; got != true {
		t.Errorf("primarySource = %v", got)
	}
	if got := imms["lotNumber"]; got != "BN92478105653" {
		t.Errorf("lotNumber = %v", got)
	}
	if got := imms["expirationDate"]; got != "2025-09-15" {
		t.Errorf("expirationDate = %v", got)
	}

	wantIdentifier := []any{map[string]any{
		"value":  "a-unique-id-001",
		"system": "https://supplierABC/identifiers/vacc",
	}}
	if got := imms["identifier"]; !reflect.DeepEqual(got, wantIdentifier) {
		t.Errorf("identifier = %v", got)
	}

	wantDose := map[string]any{
		"value":  decimal.RequireFromString("0.5"),
		"unit":   "Milliliter",
		"system": "http://unitsofmeasure.org",
		"code":   "258773002",
	}
	if got := imms["doseQuantity"]; !reflect.DeepEqual(got, wantDose) {
		t.Errorf("doseQuantity = %v", got)
	}

	wantProtocol := []any{map[string]any{"doseNumberPositiveInt": 1}}
	if got := imms["protocolApplied"]; !reflect.DeepEqual(got, wantProtocol) {
		t.Errorf("protocolApplied = %v", got)
	}

	contained, ok := imms["contained"].([]any)
	if !ok || len(contained) != 3 {
		t.Fatalf("contained = %v", imms["contained"])
	}
	types := make([]string, len(contained))
	for i, c := range contained {
		types[i] = c.(map[string]any)["resourceType"].(string)
	}
	want := []string{"Patient", "Practitioner", "QuestionnaireResponse"}
	if !reflect.DeepEqual(types, want) {
		t.Errorf("contained resource types = %v, want %v", types, want)
	}
}

func TestDecoratePatientDetail(t *testing.T) {
	imms, err := Decorate(fullRow())
	if err != nil {
		t.Fatalf("Decorate: %v", err)
	}

	if got := imms["patient"]; !reflect.DeepEqual(got, map[string]any{"reference": "#Patient1"}) {
		t.Fatalf("patient reference = %v", got)
	}

	patient := imms["contained"].([]any)[0].(map[string]any)
	if patient["id"] != "Patient1" {
		t.Errorf("patient id = %v", patient["id"])
	}
	if patient["birthDate"] != "1965-02-28" {
		t.Errorf("birthDate = %v", patient["birthDate"])
	}
	if patient["gender"] != "female" {
		t.Errorf("gender = %v", patient["gender"])
	}

	wantAddress := []any{map[string]any{"postalCode": "EC1A 1BB"}}
	if !reflect.DeepEqual(patient["address"], wantAddress) {
		t.Errorf("address = %v", patient["address"])
	}

	wantName := []any{map[string]any{"family": "Taylor", "given": []any{"Sarah"}}}
	if !reflect.DeepEqual(patient["name"], wantName) {
		t.Errorf("name = %v", patient["name"])
	}

	wantIdentifier := []any{map[string]any{
		"value":  "9990548609",
		"system": "https://fhir.nhs.uk/Id/nhs-number",
		"extension": []any{map[string]any{
			"url": "https://fhir.hl7.org.uk/StructureDefinition/Extension-UKCore-NHSNumberVerificationStatus",
			"valueCodeableConcept": map[string]any{
				"coding": []any{map[string]any{
					"system":  "https://fhir.hl7.org.uk/CodeSystem/UKCore-NHSNumberVerificationStatusEngland",
					"code":    "01",
					"display": "Number present and verified",
				}},
			},
		}},
	}}
	if !reflect.DeepEqual(patient["identifier"], wantIdentifier) {
		t.Errorf("identifier = %v", patient["identifier"])
	}
}

func TestDecoratePerformerDetail(t *testing.T) {
	imms, err := Decorate(fullRow())
	if err != nil {
		t.Fatalf("Decorate: %v", err)
	}

	performers := imms["performer"].([]any)
	if len(performers) != 2 {
		t.Fatalf("performer = %v", performers)
	}

	wantOrg := map[string]any{"actor": map[string]any{
		"type":    "Organization",
		"display": "Acme Healthcare",
		"identifier": map[string]any{
			"system": "https://fhir.nhs.uk/Id/ods-organization-code",
			"value":  "RVVKC",
		},
	}}
	if !reflect.DeepEqual(performers[0], wantOrg) {
		t.Errorf("organization performer = %v", performers[0])
	}

	wantRef := map[string]any{"actor": map[string]any{"reference": "#Practitioner1"}}
	if !reflect.DeepEqual(performers[1], wantRef) {
		t.Errorf("practitioner performer = %v", performers[1])
	}

	practitioner := imms["contained"].([]any)[1].(map[string]any)
	wantPractitioner := map[string]any{
		"resourceType": "Practitioner",
		"id":           "Practitioner1",
		"identifier": []any{map[string]any{
			"value":  "99A9999A",
			"system": "https://fhir.hl7.org.uk/Id/nmc-number",
		}},
		"name": []any{map[string]any{
			"family": "Nightingale",
			"given":  []any{"Florence"},
		}},
	}
	if !reflect.DeepEqual(practitioner, wantPractitioner) {
		t.Errorf("practitioner = %v", practitioner)
	}

	wantLocation := map[string]any{
		"type": "Location",
		"identifier": map[string]any{
			"value":  "RJC02",
			"system": "https://fhir.nhs.uk/Id/ods-organization-code",
		},
	}
	if !reflect.DeepEqual(imms["location"], wantLocation) {
		t.Errorf("location = %v", imms["location"])
	}
}

func TestDecorateQuestionnaireDetail(t *testing.T) {
	imms, err := Decorate(fullRow())
	if err != nil {
		t.Fatalf("Decorate: %v", err)
	}

	qr := imms["contained"].([]any)[2].(map[string]any)
	if qr["id"] != "QR1" || qr["status"] != "completed" {
		t.Fatalf("questionnaire response = %v", qr)
	}

	items := qr["item"].([]any)
	byLinkID := map[string]map[string]any{}
	order := make([]string, len(items))
	for i, item := range items {
		m := item.(map[string]any)
		linkID := m["linkId"].(string)
		order[i] = linkID
		byLinkID[linkID] = m["answer"].([]any)[0].(map[string]any)
	}

	wantOrder := []string{
		"Consent", "CareSetting", "ReduceValidation", "LocalPatient",
		"SubmittedTimeStamp", "IpAddress", "UserId", "UserName", "UserEmail",
		"PerformerSDSJobRole",
	}
	if !reflect.DeepEqual(order, wantOrder) {
		t.Fatalf("item order = %v", order)
	}

	wantConsent := map[string]any{"valueCoding": map[string]any{
		"code":    "310375005",
		"display": "Informed consent given",
	}}
	if !reflect.DeepEqual(byLinkID["Consent"], wantConsent) {
		t.Errorf("Consent = %v", byLinkID["Consent"])
	}

	if got := byLinkID["ReduceValidation"]["valueBoolean"]; got != false {
		t.Errorf("ReduceValidation = %v", got)
	}

	wantLocal := map[string]any{"valueReference": map[string]any{
		"identifier": map[string]any{
			"system": "https://supplierABC/identifiers/patient",
			"value":  "ACME-patient123",
		},
	}}
	if !reflect.DeepEqual(byLinkID["LocalPatient"], wantLocal) {
		t.Errorf("LocalPatient = %v", byLinkID["LocalPatient"])
	}

	if got := byLinkID["SubmittedTimeStamp"]["valueDateTime"]; got != "2024-01-31T13:02:30+00:00" {
		t.Errorf("SubmittedTimeStamp = %v", got)
	}
	if got := byLinkID["PerformerSDSJobRole"]["valueString"]; got != "Specialist Nurse Practitioner" {
		t.Errorf("PerformerSDSJobRole = %v", got)
	}
}

func TestDecorateStatus(t *testing.T) {
	tests := []struct {
		name       string
		notGiven   string
		actionFlag string
		want       string
	}{
		{"new and given", "false", "new", "completed"},
		{"update and given", "FALSE", "UPDATE", "completed"},
		{"new and not given", "true", "new", "not-done"},
		{"update and not given", "True", "update", "not-done"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imms, err := Decorate(Row{"not_given": tt.notGiven, "action_flag": tt.actionFlag})
			if err != nil {
				t.Fatalf("Decorate: %v", err)
			}
			if got := imms["status"]; got != tt.want {
				t.Errorf("status = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecorateFieldErrors(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		want []string
	}{
		{
			name: "missing not_given",
			row:  Row{"action_flag": "new"},
			want: []string{"NOT_GIVEN is missing or is not a boolean"},
		},
		{
			name: "bad action_flag",
			row:  Row{"not_given": "false", "action_flag": "delete"},
			want: []string{"ACTION_FLAG is missing or is not in the set 'new', 'update', 'delete'"},
		},
		{
			name: "both bad",
			row:  Row{"not_given": "maybe", "action_flag": ""},
			want: []string{
				"NOT_GIVEN is missing or is not a boolean",
				"ACTION_FLAG is missing or is not in the set 'new', 'update', 'delete'",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decorate(tt.row)
			var rowErr *RowError
			if !errors.As(err, &rowErr) {
				t.Fatalf("error = %v, want *RowError", err)
			}
			fields := rowErr.FieldErrors()
			if len(fields) != len(tt.want) {
				t.Fatalf("field errors = %v", fields)
			}
			for i, f := range fields {
				if f.Message != tt.want[i] {
					t.Errorf("field[%d] = %q, want %q", i, f.Message, tt.want[i])
				}
			}
		})
	}
}

func TestDecorateEmptyRowKeepsBaseShape(t *testing.T) {
	imms, err := Decorate(Row{"not_given": "false", "action_flag": "new"})
	if err != nil {
		t.Fatalf("Decorate: %v", err)
	}

	if got := imms["contained"]; !reflect.DeepEqual(got, []any{}) {
		t.Errorf("contained = %v", got)
	}
	if got := imms["extension"]; !reflect.DeepEqual(got, []any{}) {
		t.Errorf("extension = %v", got)
	}
	if got := imms["performer"]; !reflect.DeepEqual(got, []any{}) {
		t.Errorf("performer = %v", got)
	}
	if _, ok := imms["patient"]; ok {
		t.Error("patient should be absent")
	}
	if _, ok := imms["doseQuantity"]; ok {
		t.Error("doseQuantity should be absent")
	}
}

func TestDecorateBlankValuesAreDropped(t *testing.T) {
	row := Row{
		"not_given":            "false",
		"action_flag":          "new",
		"person_surname":       "Taylor",
		"person_forename":      "",
		"person_dob":           "",
		"person_postcode":      "",
		"nhs_number":           "",
		"vaccine_manufacturer": "",
	}
	imms, err := Decorate(row)
	if err != nil {
		t.Fatalf("Decorate: %v", err)
	}

	patient := imms["contained"].([]any)[0].(map[string]any)
	wantName := []any{map[string]any{"family": "Taylor"}}
	if !reflect.DeepEqual(patient["name"], wantName) {
		t.Errorf("name = %v", patient["name"])
	}
	if _, ok := patient["identifier"]; ok {
		t.Error("identifier should be absent")
	}
	if _, ok := patient["address"]; ok {
		t.Error("address should be absent")
	}
	if _, ok := imms["manufacturer"]; ok {
		t.Error("manufacturer should be absent")
	}
}

func TestDecorateBadValuesPassThrough(t *testing.T) {
	// Malformed dates and numbers survive untouched so validation can name
	// them precisely.
	row := Row{
		"not_given":     "false",
		"action_flag":   "new",
		"recorded_date": "31-01-2024",
		"date_and_time": "20240131",
		"dose_sequence": "first",
	}
	imms, err := Decorate(row)
	if err != nil {
		t.Fatalf("Decorate: %v", err)
	}

	if got := imms["recorded"]; got != "31-01-2024" {
		t.Errorf("recorded = %v", got)
	}
	if got := imms["occurrenceDateTime"]; got != "20240131" {
		t.Errorf("occurrenceDateTime = %v", got)
	}
	wantProtocol := []any{map[string]any{"doseNumberPositiveInt": "first"}}
	if !reflect.DeepEqual(imms["protocolApplied"], wantProtocol) {
		t.Errorf("protocolApplied = %v", imms["protocolApplied"])
	}
}

func TestRunDecoratorRecoversPanic(t *testing.T) {
	boom := decorator{
		name: "boom",
		fn: func(map[string]any, Row) *DecoratorError {
			panic("unexpected shape")
		},
	}
	_, err := runDecorator(boom, map[string]any{}, Row{})
	var unhandled *UnhandledError
	if !errors.As(err, &unhandled) {
		t.Fatalf("error = %v, want *UnhandledError", err)
	}
	if unhandled.Decorator != "boom" {
		t.Errorf("decorator = %q", unhandled.Decorator)
	}
}

func TestConvertHelpers(t *testing.T) {
	if got := convertDate("20240229"); got != "2024-02-29" {
		t.Errorf("convertDate = %v", got)
	}
	if got := convertDate("20240230"); got != "20240230" {
		t.Errorf("convertDate invalid = %v", got)
	}
	if got := convertDateTime("20240131T130033"); got != "2024-01-31T13:00:33+00:00" {
		t.Errorf("convertDateTime = %v", got)
	}
	if got := convertGender("9"); got != "other" {
		t.Errorf("convertGender = %v", got)
	}
	if got := convertGender("3"); got != "3" {
		t.Errorf("convertGender invalid = %v", got)
	}
	if got := convertBoolean("TRUE"); got != true {
		t.Errorf("convertBoolean = %v", got)
	}
	if got := convertInteger("12"); got != 12 {
		t.Errorf("convertInteger = %v", got)
	}
	if got := convertIntegerOrDecimal("2"); got != 2 {
		t.Errorf("convertIntegerOrDecimal int = %v", got)
	}
	d, ok := convertIntegerOrDecimal("0.50").(decimal.Decimal)
	if !ok || d.String() != "0.5" {
		t.Errorf("convertIntegerOrDecimal decimal = %v", d)
	}
}
