// Package postvalidate applies the mandation rules to a structurally valid
// record. Every check consults the mandation table for the resolved vaccine
// type; a handful of fields escalate or relax their level depending on the
// record status or a sibling field, and those rules live here rather than in
// the table.
//
// Checks run in a fixed order and every failure is collected, so one
// validation pass reports everything the submitter has to fix.
package postvalidate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dlzhry2/immunisation-fhir-api-sub000/fieldpath"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/mandation"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/vaccine"
)

// nullFlavorCodes are the vaccineCode codes accepted when the vaccination did
// not happen.
var nullFlavorCodes = map[string]bool{
	"NAVU": true,
	"UNC":  true,
	"UNK":  true,
	"NA":   true,
}

// Validator runs the mandation checks against records. The zero value is not
// usable; construct with New or NewWithTable.
type Validator struct {
	table *mandation.Table
}

// New returns a Validator backed by the embedded mandation table.
func New() *Validator {
	return &Validator{table: mandation.Default()}
}

// NewWithTable returns a Validator backed by a caller-supplied table.
func NewWithTable(table *mandation.Table) *Validator {
	return &Validator{table: table}
}

// callContext carries the per-record state the checks share.
type callContext struct {
	record      map[string]any
	vaccineType vaccine.Type
	status      string
	table       *mandation.Table
}

func (c *callContext) notDone() bool {
	return c.status == "not-done"
}

// present reports whether the field a key addresses carries a value. A JSON
// null counts as absent, matching the mandation semantics.
func (c *callContext) present(key fieldpath.Key) bool {
	v, ok := fieldpath.Value(c.record, key)
	return ok && v != nil
}

func (c *callContext) level(key fieldpath.Key) mandation.Level {
	return c.table.Level(key, c.vaccineType)
}

// enforce applies the table level for a key to the field's presence.
func (c *callContext) enforce(key fieldpath.Key) []string {
	err := mandation.Enforce(c.level(key), c.present(key), fieldpath.Location(key))
	return diag(err)
}

func diag(err error) []string {
	if err == nil {
		return nil
	}
	return []string{err.Error()}
}

// mandatoryForStatusAndType is the bespoke diagnostic for fields that become
// mandatory for a vaccine type whenever the vaccination actually happened.
func mandatoryForStatusAndType(location string, vaccineType vaccine.Type) mandation.CheckOption {
	return mandation.WithMandatoryMessage(fmt.Sprintf(
		"%s is mandatory when status is 'completed' or 'entered-in-error' and vaccination type is %s",
		location, vaccineType))
}

type check func(c *callContext) []string

// simple wraps the plain table lookup for fields without conditional rules.
func simple(key fieldpath.Key) check {
	return func(c *callContext) []string {
		return c.enforce(key)
	}
}

// administeredFor reports whether the record describes an administered
// vaccination of one of the given types.
func (c *callContext) administeredFor(types ...vaccine.Type) bool {
	if c.notDone() {
		return false
	}
	for _, t := range types {
		if c.vaccineType == t {
			return true
		}
	}
	return false
}

// checks lists every post-validation check in reporting order.
var checks = []check{
	simple(fieldpath.PatientIdentifierValue),
	simple(fieldpath.PatientNameGiven),
	simple(fieldpath.PatientNameFamily),
	simple(fieldpath.PatientBirthDate),
	simple(fieldpath.PatientGender),
	simple(fieldpath.PatientAddressPostalCode),
	simple(fieldpath.OccurrenceDateTime),
	simple(fieldpath.OrganizationIdentifierValue),
	simple(fieldpath.OrganizationDisplay),
	simple(fieldpath.IdentifierValue),
	simple(fieldpath.IdentifierSystem),
	simple(fieldpath.PractitionerNameGiven),
	simple(fieldpath.PractitionerNameFamily),
	simple(fieldpath.PractitionerIdentifierValue),
	checkPractitionerIdentifierSystem,
	simple(fieldpath.PerformerSDSJobRole),
	simple(fieldpath.Recorded),
	simple(fieldpath.PrimarySource),
	checkReportOriginText,
	simple(fieldpath.VaccinationProcedureCode),
	simple(fieldpath.VaccinationProcedureDisplay),
	checkVaccinationSituationCode,
	simple(fieldpath.VaccinationSituationDisplay),
	checkStatusReasonCodingCode,
	simple(fieldpath.StatusReasonCodingDisplay),
	checkDoseNumberPositiveInt,
	checkVaccineCodeCodingCode,
	checkVaccineCodeCodingDisplay,
	covid19Administered(fieldpath.ManufacturerDisplay),
	covid19Administered(fieldpath.LotNumber),
	covid19Administered(fieldpath.ExpirationDate),
	simple(fieldpath.SiteCodingCode),
	simple(fieldpath.SiteCodingDisplay),
	covidOrFluAdministered(fieldpath.RouteCodingCode),
	simple(fieldpath.RouteCodingDisplay),
	covidOrFluAdministered(fieldpath.DoseQuantityValue),
	covidOrFluAdministered(fieldpath.DoseQuantityCode),
	simple(fieldpath.DoseQuantityUnit),
	reasonCodeCheck("code", fieldpath.ReasonCodeCodingCode),
	reasonCodeCheck("display", fieldpath.ReasonCodeCodingDisplay),
	simple(fieldpath.NHSNumberVerificationStatusCode),
	simple(fieldpath.NHSNumberVerificationStatusDisplay),
	simple(fieldpath.OrganizationIdentifierSystem),
	simple(fieldpath.LocalPatientValue),
	simple(fieldpath.LocalPatientSystem),
	checkConsentCode,
	simple(fieldpath.ConsentDisplay),
	simple(fieldpath.CareSettingCode),
	simple(fieldpath.CareSettingDisplay),
	simple(fieldpath.IPAddress),
	simple(fieldpath.UserID),
	simple(fieldpath.UserName),
	simple(fieldpath.UserEmail),
	simple(fieldpath.SubmittedTimeStamp),
	simple(fieldpath.LocationIdentifierValue),
	simple(fieldpath.LocationIdentifierSystem),
	simple(fieldpath.ReduceValidationReason),
}

// checkPractitionerIdentifierSystem escalates the practitioner identifier
// system to mandatory when its value is present on a COVID19 or FLU record.
func checkPractitionerIdentifierSystem(c *callContext) []string {
	key := fieldpath.PractitionerIdentifierSystem
	location := fieldpath.Location(key)
	level := c.level(key)

	var opts []mandation.CheckOption
	valuePresent := c.present(fieldpath.PractitionerIdentifierValue)
	if valuePresent && (c.vaccineType == vaccine.COVID19 || c.vaccineType == vaccine.FLU) {
		level = mandation.Mandatory
		opts = append(opts, mandation.WithMandatoryMessage(fmt.Sprintf(
			"%s is mandatory when %s is present and vaccination type is %s",
			location, fieldpath.Location(fieldpath.PractitionerIdentifierValue), c.vaccineType)))
	}
	return diag(mandation.Enforce(level, c.present(key), location, opts...))
}

// checkReportOriginText escalates reportOrigin.text to mandatory when the
// record did not come from the original source.
func checkReportOriginText(c *callContext) []string {
	key := fieldpath.ReportOriginText
	location := fieldpath.Location(key)
	level := c.level(key)

	var opts []mandation.CheckOption
	if primarySource, ok := fieldpath.Value(c.record, fieldpath.PrimarySource); ok && primarySource == false {
		level = mandation.Mandatory
		opts = append(opts, mandation.WithMandatoryMessage(
			location+" is mandatory when primarySource is false"))
	}
	return diag(mandation.Enforce(level, c.present(key), location, opts...))
}

// mandatoryWhenNotDone escalates a field to mandatory on not-done records.
func mandatoryWhenNotDone(c *callContext, key fieldpath.Key) []string {
	location := fieldpath.Location(key)
	level := c.level(key)

	var opts []mandation.CheckOption
	if c.notDone() {
		level = mandation.Mandatory
		opts = append(opts, mandation.WithMandatoryMessage(
			location+" is mandatory when status is 'not-done'"))
	}
	return diag(mandation.Enforce(level, c.present(key), location, opts...))
}

func checkVaccinationSituationCode(c *callContext) []string {
	return mandatoryWhenNotDone(c, fieldpath.VaccinationSituationCode)
}

func checkStatusReasonCodingCode(c *callContext) []string {
	return mandatoryWhenNotDone(c, fieldpath.StatusReasonCodingCode)
}

// checkDoseNumberPositiveInt is mandatory for every COVID19 record and for
// administered FLU records; other combinations fall back to the table.
func checkDoseNumberPositiveInt(c *callContext) []string {
	key := fieldpath.DoseNumberPositiveInt
	location := fieldpath.Location(key)
	level := c.level(key)

	var opts []mandation.CheckOption
	switch {
	case c.vaccineType == vaccine.COVID19:
		level = mandation.Mandatory
		opts = append(opts, mandation.WithMandatoryMessage(
			location+" is mandatory when vaccination type is COVID19"))
	case c.administeredFor(vaccine.FLU):
		level = mandation.Mandatory
		opts = append(opts, mandatoryForStatusAndType(location, vaccine.FLU))
	}
	return diag(mandation.Enforce(level, c.present(key), location, opts...))
}

// vaccineCodeSystem returns the coding system the vaccineCode must use for
// the record status.
func (c *callContext) vaccineCodeSystem() string {
	if c.notDone() {
		return fieldpath.SystemNullFlavor
	}
	return fieldpath.SystemSNOMED
}

func vaccineCodeLocation(system, field string) string {
	return fieldpath.Build(func(b *fieldpath.Builder) {
		b.Append("vaccineCode")
		b.Append("coding")
		b.AppendFilter("system", system)
		b.Append(field)
	})
}

// checkVaccineCodeCodingCode enforces presence under the status-dependent
// coding system and, for not-done records, restricts the code to the
// null-flavor set.
func checkVaccineCodeCodingCode(c *callContext) []string {
	system := c.vaccineCodeSystem()
	location := vaccineCodeLocation(system, "code")

	value, ok := fieldpath.CodingValue(c.record, "vaccineCode", system, "code")
	present := ok && value != nil

	var out []string
	if err := mandation.Enforce(c.level(fieldpath.VaccineCodeCodingCode), present, location); err != nil {
		out = append(out, err.Error())
	}
	if c.notDone() && present {
		code, _ := value.(string)
		if !nullFlavorCodes[code] {
			out = append(out, location+" must be one of the following: NAVU, UNC, UNK, NA when status is 'not-done'")
		}
	}
	return out
}

func checkVaccineCodeCodingDisplay(c *callContext) []string {
	system := c.vaccineCodeSystem()
	value, ok := fieldpath.CodingValue(c.record, "vaccineCode", system, "display")
	present := ok && value != nil
	return diag(mandation.Enforce(c.level(fieldpath.VaccineCodeCodingDisplay), present,
		vaccineCodeLocation(system, "display")))
}

// covid19Administered escalates a field to mandatory on administered COVID19
// records.
func covid19Administered(key fieldpath.Key) check {
	return administeredCheck(key, vaccine.COVID19)
}

// covidOrFluAdministered escalates a field to mandatory on administered
// COVID19 or FLU records.
func covidOrFluAdministered(key fieldpath.Key) check {
	return administeredCheck(key, vaccine.COVID19, vaccine.FLU)
}

func administeredCheck(key fieldpath.Key, types ...vaccine.Type) check {
	return func(c *callContext) []string {
		location := fieldpath.Location(key)
		level := c.level(key)

		var opts []mandation.CheckOption
		if c.administeredFor(types...) {
			level = mandation.Mandatory
			opts = append(opts, mandatoryForStatusAndType(location, c.vaccineType))
		}
		return diag(mandation.Enforce(level, c.present(key), location, opts...))
	}
}

// checkConsentCode escalates the consent recorded answer to mandatory on
// administered COVID19 or FLU records; it is otherwise optional.
func checkConsentCode(c *callContext) []string {
	key := fieldpath.ConsentCode
	location := fieldpath.Location(key)
	level := c.level(key)

	var opts []mandation.CheckOption
	if c.administeredFor(vaccine.COVID19, vaccine.FLU) {
		level = mandation.Mandatory
		opts = append(opts, mandatoryForStatusAndType(location, c.vaccineType))
	}
	return diag(mandation.Enforce(level, c.present(key), location, opts...))
}

// reasonCodeCheck enforces the table level for every reasonCode element.
// A record without any reasonCode still gets one check at index 0, so a
// mandatory level reports the absence.
func reasonCodeCheck(field string, key fieldpath.Key) check {
	return func(c *callContext) []string {
		count := fieldpath.ReasonCodeCount(c.record)
		if count == 0 {
			count = 1
		}
		level := c.level(key)

		var out []string
		for i := 0; i < count; i++ {
			value, ok := fieldpath.ReasonCodeValue(c.record, i, field)
			present := ok && value != nil
			if err := mandation.Enforce(level, present, fieldpath.ReasonCodeLocation(i, field)); err != nil {
				out = append(out, err.Error())
			}
		}
		return out
	}
}

// Diagnostics runs every check in order and returns the failures. The record
// must already have passed pre-validation.
func (v *Validator) Diagnostics(record map[string]any, vaccineType vaccine.Type) []string {
	status, _ := fieldpath.Value(record, fieldpath.Status)
	statusStr, _ := status.(string)

	c := &callContext{
		record:      record,
		vaccineType: vaccineType,
		status:      statusStr,
		table:       v.table,
	}

	var diags []string
	for _, chk := range checks {
		diags = append(diags, chk(c)...)
	}
	return diags
}

// Validate runs the checks and wraps any failures in a single aggregate
// error, so the caller reports every mandation problem at once.
func (v *Validator) Validate(record map[string]any, vaccineType vaccine.Type) error {
	diags := v.Diagnostics(record, vaccineType)
	if len(diags) == 0 {
		return nil
	}
	return errors.New("Validation errors: " + strings.Join(diags, "; "))
}
