package postvalidate

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dlzhry2/immunisation-fhir-api-sub000/mandation"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/vaccine"
)

// completeRecord builds a record carrying every field the mandation table can
// demand, including the fields that only become mandatory for particular
// vaccine types.
func completeRecord() map[string]any {
	return map[string]any{
		"resourceType": "Immunization",
		"status":       "completed",
		"contained": []any{
			map[string]any{
				"resourceType": "Patient",
				"id":           "Patient1",
				"name": []any{map[string]any{
					"family": "Taylor",
					"given":  []any{"Sarah"},
				}},
				"birthDate": "1965-02-28",
				"gender":    "female",
				"address":   []any{map[string]any{"postalCode": "EC1A 1BB"}},
				"identifier": []any{map[string]any{
					"system": "https://fhir.nhs.uk/Id/nhs-number",
					"value":  "9990548609",
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
				}},
			},
			map[string]any{
				"resourceType": "Practitioner",
				"id":           "Practitioner1",
				"name": []any{map[string]any{
					"family": "Nightingale",
					"given":  []any{"Florence"},
				}},
				"identifier": []any{map[string]any{
					"system": "https://fhir.hl7.org.uk/Id/nmc-number",
					"value":  "99A9999A",
				}},
			},
			map[string]any{
				"resourceType": "QuestionnaireResponse",
				"id":           "QR1",
				"status":       "completed",
				"item": []any{
					map[string]any{
						"linkId": "Consent",
						"answer": []any{map[string]any{
							"valueCoding": map[string]any{"code": "310375005", "display": "Informed consent given"},
						}},
					},
					map[string]any{
						"linkId": "LocalPatient",
						"answer": []any{map[string]any{
							"valueReference": map[string]any{
								"identifier": map[string]any{
									"system": "https://supplierABC/identifiers/patient",
									"value":  "ACME-patient123",
								},
							},
						}},
					},
				},
			},
		},
		"patient": map[string]any{"reference": "#Patient1"},
		"extension": []any{map[string]any{
			"url": "https://fhir.hl7.org.uk/StructureDefinition/Extension-UKCore-VaccinationProcedure",
			"valueCodeableConcept": map[string]any{
				"coding": []any{map[string]any{
					"system":  "http://snomed.info/sct",
					"code":    "1303503001",
					"display": "Administration of vaccine product",
				}},
			},
		}},
		"occurrenceDateTime": "2024-01-31T13:00:33+00:00",
		"recorded":           "2024-01-31",
		"primarySource":      true,
		"identifier": []any{map[string]any{
			"system": "https://supplierABC/identifiers/vacc",
			"value":  "a-unique-id-001",
		}},
		"performer": []any{
			map[string]any{"actor": map[string]any{
				"type":    "Organization",
				"display": "Acme Healthcare",
				"identifier": map[string]any{
					"system": "https://fhir.nhs.uk/Id/ods-organization-code",
					"value":  "RVVKC",
				},
			}},
			map[string]any{"actor": map[string]any{"reference": "#Practitioner1"}},
		},
		"location": map[string]any{
			"type": "Location",
			"identifier": map[string]any{
				"system": "https://fhir.nhs.uk/Id/ods-organization-code",
				"value":  "RJC02",
			},
		},
		"vaccineCode": map[string]any{
			"coding": []any{map[string]any{
				"system":  "http://snomed.info/sct",
				"code":    "42223111000001107",
				"display": "Quadrivalent influenza vaccine",
			}},
		},
		"manufacturer":   map[string]any{"display": "Sanofi Pasteur"},
		"lotNumber":      "BN92478105653",
		"expirationDate": "2025-09-15",
		"site": map[string]any{
			"coding": []any{map[string]any{
				"system":  "http://snomed.info/sct",
				"code":    "368208006",
				"display": "Left upper arm structure",
			}},
		},
		"route": map[string]any{
			"coding": []any{map[string]any{
				"system":  "http://snomed.info/sct",
				"code":    "78421000",
				"display": "Intramuscular route",
			}},
		},
		"doseQuantity": map[string]any{
			"value":  decimal.RequireFromString("0.5"),
			"unit":   "Milliliter",
			"system": "http://unitsofmeasure.org",
			"code":   "258773002",
		},
		"protocolApplied": []any{map[string]any{
			"targetDisease": []any{map[string]any{
				"coding": []any{map[string]any{
					"system": "http://snomed.info/sct",
					"code":   "6142004",
				}},
			}},
			"doseNumberPositiveInt": 1,
		}},
	}
}

func TestValidateCompleteRecordPerVaccineType(t *testing.T) {
	v := New()
	for _, vt := range vaccine.All() {
		t.Run(string(vt), func(t *testing.T) {
			if diags := v.Diagnostics(completeRecord(), vt); len(diags) != 0 {
				t.Fatalf("diagnostics = %v", diags)
			}
		})
	}
}

func TestMandatoryFieldAbsent(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(record map[string]any)
		want   string
	}{
		{
			name:   "recorded missing",
			mutate: func(r map[string]any) { delete(r, "recorded") },
			want:   "recorded is a mandatory field",
		},
		{
			name: "patient gender missing",
			mutate: func(r map[string]any) {
				patient := r["contained"].([]any)[0].(map[string]any)
				delete(patient, "gender")
			},
			want: "contained[?(@.resourceType=='Patient')].gender is a mandatory field",
		},
		{
			name: "location identifier value missing",
			mutate: func(r map[string]any) {
				identifier := r["location"].(map[string]any)["identifier"].(map[string]any)
				delete(identifier, "value")
			},
			want: "location.identifier.value is a mandatory field",
		},
		{
			name: "organization identifier system missing",
			mutate: func(r map[string]any) {
				actor := r["performer"].([]any)[0].(map[string]any)["actor"].(map[string]any)
				delete(actor["identifier"].(map[string]any), "system")
			},
			want: "performer[?(@.actor.type=='Organization')].actor.identifier.system is a mandatory field",
		},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := completeRecord()
			tt.mutate(record)
			diags := v.Diagnostics(record, vaccine.HPV)
			if len(diags) != 1 || diags[0] != tt.want {
				t.Errorf("diagnostics = %v, want [%q]", diags, tt.want)
			}
		})
	}
}

func TestPractitionerIdentifierSystemConditional(t *testing.T) {
	withoutSystem := func() map[string]any {
		record := completeRecord()
		practitioner := record["contained"].([]any)[1].(map[string]any)
		identifier := practitioner["identifier"].([]any)[0].(map[string]any)
		delete(identifier, "system")
		return record
	}

	v := New()

	t.Run("mandatory for FLU when value present", func(t *testing.T) {
		want := "contained[?(@.resourceType=='Practitioner')].identifier[0].system is mandatory when " +
			"contained[?(@.resourceType=='Practitioner')].identifier[0].value is present and vaccination type is FLU"
		diags := v.Diagnostics(withoutSystem(), vaccine.FLU)
		if len(diags) != 1 || diags[0] != want {
			t.Errorf("diagnostics = %v, want [%q]", diags, want)
		}
	})

	t.Run("optional for HPV", func(t *testing.T) {
		if diags := v.Diagnostics(withoutSystem(), vaccine.HPV); len(diags) != 0 {
			t.Errorf("diagnostics = %v", diags)
		}
	})

	t.Run("optional when value also absent", func(t *testing.T) {
		record := completeRecord()
		practitioner := record["contained"].([]any)[1].(map[string]any)
		delete(practitioner, "identifier")
		if diags := v.Diagnostics(record, vaccine.FLU); len(diags) != 0 {
			t.Errorf("diagnostics = %v", diags)
		}
	})
}

func TestReportOriginTextConditional(t *testing.T) {
	v := New()

	record := completeRecord()
	record["primarySource"] = false
	diags := v.Diagnostics(record, vaccine.HPV)
	want := "reportOrigin.text is mandatory when primarySource is false"
	if len(diags) != 1 || diags[0] != want {
		t.Errorf("diagnostics = %v, want [%q]", diags, want)
	}

	record["reportOrigin"] = map[string]any{"text": "Acme GP practice"}
	if diags := v.Diagnostics(record, vaccine.HPV); len(diags) != 0 {
		t.Errorf("diagnostics = %v", diags)
	}
}

// notDoneRecord converts the complete fixture into a not-done record with the
// fields a not-done record must carry.
func notDoneRecord() map[string]any {
	record := completeRecord()
	record["status"] = "not-done"
	record["statusReason"] = map[string]any{
		"coding": []any{map[string]any{
			"system":  "http://snomed.info/sct",
			"code":    "310376006",
			"display": "Informed dissent",
		}},
	}
	record["extension"] = append(record["extension"].([]any), map[string]any{
		"url": "https://fhir.hl7.org.uk/StructureDefinition/Extension-UKCore-VaccinationSituation",
		"valueCodeableConcept": map[string]any{
			"coding": []any{map[string]any{
				"system":  "http://snomed.info/sct",
				"code":    "310376006",
				"display": "Immunization not given - patient refusal",
			}},
		},
	})
	record["vaccineCode"] = map[string]any{
		"coding": []any{map[string]any{
			"system": "http://terminology.hl7.org/CodeSystem/v3-NullFlavor",
			"code":   "UNK",
		}},
	}
	return record
}

func TestNotDoneRules(t *testing.T) {
	v := New()

	t.Run("complete not-done record passes", func(t *testing.T) {
		if diags := v.Diagnostics(notDoneRecord(), vaccine.MMR); len(diags) != 0 {
			t.Fatalf("diagnostics = %v", diags)
		}
	})

	t.Run("situation and status reason become mandatory", func(t *testing.T) {
		record := completeRecord()
		record["status"] = "not-done"
		record["vaccineCode"] = map[string]any{
			"coding": []any{map[string]any{
				"system": "http://terminology.hl7.org/CodeSystem/v3-NullFlavor",
				"code":   "NA",
			}},
		}
		diags := v.Diagnostics(record, vaccine.MMR)
		if len(diags) != 2 {
			t.Fatalf("diagnostics = %v", diags)
		}
		if !strings.Contains(diags[0], "VaccinationSituation") || !strings.HasSuffix(diags[0], "is mandatory when status is 'not-done'") {
			t.Errorf("diags[0] = %q", diags[0])
		}
		if !strings.HasPrefix(diags[1], "statusReason.coding") || !strings.HasSuffix(diags[1], "is mandatory when status is 'not-done'") {
			t.Errorf("diags[1] = %q", diags[1])
		}
	})

	t.Run("vaccine code restricted to null flavor set", func(t *testing.T) {
		record := notDoneRecord()
		record["vaccineCode"] = map[string]any{
			"coding": []any{map[string]any{
				"system": "http://terminology.hl7.org/CodeSystem/v3-NullFlavor",
				"code":   "39114911000001105",
			}},
		}
		diags := v.Diagnostics(record, vaccine.MMR)
		want := "vaccineCode.coding[?(@.system=='http://terminology.hl7.org/CodeSystem/v3-NullFlavor')].code " +
			"must be one of the following: NAVU, UNC, UNK, NA when status is 'not-done'"
		if len(diags) != 1 || diags[0] != want {
			t.Errorf("diagnostics = %v, want [%q]", diags, want)
		}
	})
}

func TestDoseNumberConditional(t *testing.T) {
	withoutDoseNumber := func() map[string]any {
		record := completeRecord()
		protocol := record["protocolApplied"].([]any)[0].(map[string]any)
		delete(protocol, "doseNumberPositiveInt")
		return record
	}

	v := New()
	tests := []struct {
		name        string
		vaccineType vaccine.Type
		status      string
		want        string
	}{
		{
			name:        "COVID19 always mandatory",
			vaccineType: vaccine.COVID19,
			status:      "completed",
			want:        "protocolApplied[0].doseNumberPositiveInt is mandatory when vaccination type is COVID19",
		},
		{
			name:        "FLU mandatory when administered",
			vaccineType: vaccine.FLU,
			status:      "completed",
			want: "protocolApplied[0].doseNumberPositiveInt is mandatory when status is " +
				"'completed' or 'entered-in-error' and vaccination type is FLU",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := withoutDoseNumber()
			record["status"] = tt.status
			diags := v.Diagnostics(record, tt.vaccineType)
			found := false
			for _, d := range diags {
				if d == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("diagnostics = %v, want one equal to %q", diags, tt.want)
			}
		})
	}

	t.Run("HPV tolerates absence", func(t *testing.T) {
		if diags := v.Diagnostics(withoutDoseNumber(), vaccine.HPV); len(diags) != 0 {
			t.Errorf("diagnostics = %v", diags)
		}
	})
}

func TestAdministeredEscalations(t *testing.T) {
	v := New()
	tests := []struct {
		name        string
		vaccineType vaccine.Type
		mutate      func(record map[string]any)
		want        string
	}{
		{
			name:        "manufacturer for COVID19",
			vaccineType: vaccine.COVID19,
			mutate:      func(r map[string]any) { delete(r, "manufacturer") },
			want: "manufacturer.display is mandatory when status is 'completed' or " +
				"'entered-in-error' and vaccination type is COVID19",
		},
		{
			name:        "lot number for COVID19",
			vaccineType: vaccine.COVID19,
			mutate:      func(r map[string]any) { delete(r, "lotNumber") },
			want: "lotNumber is mandatory when status is 'completed' or " +
				"'entered-in-error' and vaccination type is COVID19",
		},
		{
			name:        "dose quantity value for FLU",
			vaccineType: vaccine.FLU,
			mutate: func(r map[string]any) {
				delete(r["doseQuantity"].(map[string]any), "value")
			},
			want: "doseQuantity.value is mandatory when status is 'completed' or " +
				"'entered-in-error' and vaccination type is FLU",
		},
		{
			name:        "route code for COVID19",
			vaccineType: vaccine.COVID19,
			mutate:      func(r map[string]any) { delete(r, "route") },
			want: "route.coding[?(@.system=='http://snomed.info/sct')].code is mandatory when " +
				"status is 'completed' or 'entered-in-error' and vaccination type is COVID19",
		},
		{
			name:        "consent for FLU",
			vaccineType: vaccine.FLU,
			mutate: func(r map[string]any) {
				qr := r["contained"].([]any)[2].(map[string]any)
				qr["item"] = qr["item"].([]any)[1:]
			},
			want: "contained[?(@.resourceType=='QuestionnaireResponse')].item[?(@.linkId=='Consent')]" +
				".answer[0].valueCoding.code is mandatory when status is 'completed' or " +
				"'entered-in-error' and vaccination type is FLU",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := completeRecord()
			tt.mutate(record)
			diags := v.Diagnostics(record, tt.vaccineType)
			if len(diags) != 1 || diags[0] != tt.want {
				t.Errorf("diagnostics = %v, want [%q]", diags, tt.want)
			}
		})
	}

	t.Run("required when not administered", func(t *testing.T) {
		record := completeRecord()
		delete(record, "manufacturer")
		delete(record, "lotNumber")
		if diags := v.Diagnostics(record, vaccine.RSV); len(diags) != 0 {
			t.Errorf("diagnostics = %v", diags)
		}
	})
}

func TestReasonCodeChecksEveryElement(t *testing.T) {
	table, err := mandation.Load([]byte(`
vaccine_types:
  - MMR
fields:
  reason_code_coding_code:
    default: mandatory
`))
	if err != nil {
		t.Fatal(err)
	}
	v := NewWithTable(table)

	record := map[string]any{
		"status": "completed",
		"reasonCode": []any{
			map[string]any{"coding": []any{map[string]any{"display": "Disease outbreak"}}},
			map[string]any{"coding": []any{map[string]any{"code": "443684005"}}},
			map[string]any{"coding": []any{map[string]any{"display": "Travel"}}},
		},
	}
	diags := v.Diagnostics(record, vaccine.MMR)
	want := []string{
		"reasonCode[0].coding[0].code is a mandatory field",
		"reasonCode[2].coding[0].code is a mandatory field",
	}
	if len(diags) != len(want) || diags[0] != want[0] || diags[1] != want[1] {
		t.Errorf("diagnostics = %v, want %v", diags, want)
	}

	t.Run("absent list still checked once", func(t *testing.T) {
		diags := v.Diagnostics(map[string]any{"status": "completed"}, vaccine.MMR)
		if len(diags) != 1 || diags[0] != "reasonCode[0].coding[0].code is a mandatory field" {
			t.Errorf("diagnostics = %v", diags)
		}
	})
}

func TestNotApplicableFieldPresent(t *testing.T) {
	table, err := mandation.Load([]byte(`
vaccine_types:
  - RSV
fields:
  lot_number:
    default: not_applicable
`))
	if err != nil {
		t.Fatal(err)
	}
	v := NewWithTable(table)

	record := map[string]any{
		"status":    "completed",
		"lotNumber": "BN92478105653",
	}
	diags := v.Diagnostics(record, vaccine.RSV)
	want := "lotNumber must not be provided for this vaccine type"
	if len(diags) != 1 || diags[0] != want {
		t.Errorf("diagnostics = %v, want [%q]", diags, want)
	}

	t.Run("absent passes", func(t *testing.T) {
		diags := v.Diagnostics(map[string]any{"status": "completed"}, vaccine.RSV)
		if len(diags) != 0 {
			t.Errorf("diagnostics = %v", diags)
		}
	})
}

func TestValidateAggregates(t *testing.T) {
	record := completeRecord()
	patient := record["contained"].([]any)[0].(map[string]any)
	delete(patient, "gender")
	delete(record, "recorded")

	err := New().Validate(record, vaccine.HPV)
	if err == nil {
		t.Fatal("expected an error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "Validation errors: ") {
		t.Errorf("error = %q", msg)
	}
	genderAt := strings.Index(msg, "gender is a mandatory field")
	recordedAt := strings.Index(msg, "recorded is a mandatory field")
	if genderAt < 0 || recordedAt < 0 || genderAt > recordedAt {
		t.Errorf("error = %q", msg)
	}
	if !strings.Contains(msg, "; ") {
		t.Errorf("error = %q", msg)
	}
}
