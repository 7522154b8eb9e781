// Package engine sequences the validation stages behind a single facade.
//
// A record flows through pre-validation, FHIR model conformance, vaccine-type
// resolution and post-validation, in that order. Pre-validation failures stop
// the run: the later stages assume a structurally sound record. A conformance
// failure likewise stops before post-validation. Within each stage every
// check runs and every failure is reported.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	immunisation "github.com/dlzhry2/immunisation-fhir-api-sub000"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/conformance"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/decorate"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/fieldpath"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/loader"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/logger"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/mandation"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/postvalidate"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/prevalidate"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/vaccine"
)

// Stage names used in issue phases and stage metrics, re-exported from the
// root package so the vocabulary has a single definition.
const (
	PhaseDecoration        = immunisation.StageDecoration
	PhasePreValidation     = immunisation.StagePreValidation
	PhaseConformance       = immunisation.StageConformance
	PhaseVaccineResolution = immunisation.StageVaccineResolution
	PhasePostValidation    = immunisation.StagePostValidation
)

// ImmunizationValidator validates immunisation records. It is safe for
// concurrent use.
type ImmunizationValidator struct {
	options     *immunisation.Options
	conformance *conformance.Validator
	post        *postvalidate.Validator
	metrics     *immunisation.Metrics
	log         zerolog.Logger
}

// New creates an ImmunizationValidator with the given options.
func New(opts ...immunisation.Option) *ImmunizationValidator {
	options := immunisation.DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	post := postvalidate.New()
	if table, ok := options.MandationTable.(*mandation.Table); ok && table != nil {
		post = postvalidate.NewWithTable(table)
	}

	return &ImmunizationValidator{
		options:     options,
		conformance: conformance.New(),
		post:        post,
		metrics:     immunisation.NewMetrics(),
		log:         logger.Default().With().Str("component", "engine").Logger(),
	}
}

// acquireResult honours the pooling option.
func (v *ImmunizationValidator) acquireResult() *immunisation.Result {
	if v.options.EnablePooling {
		v.metrics.RecordPoolAcquire()
		return immunisation.AcquireResult()
	}
	return immunisation.NewResult()
}

// addDiagnostics appends one issue per diagnostic, respecting MaxErrors.
// It reports whether the caller may keep adding issues.
func (v *ImmunizationValidator) addDiagnostics(result *immunisation.Result, phase string, code func(string) immunisation.IssueType, diags []string) bool {
	for _, d := range diags {
		if v.options.MaxErrors > 0 && result.ErrorCount() >= v.options.MaxErrors {
			return false
		}
		result.AddIssue(immunisation.Issue{
			Severity:    immunisation.SeverityError,
			Code:        code(d),
			Diagnostics: d,
			Phase:       phase,
		})
		v.metrics.RecordIssue(immunisation.SeverityError)
	}
	return true
}

func structureCode(string) immunisation.IssueType {
	return immunisation.IssueTypeStructure
}

func conformanceCode(diag string) immunisation.IssueType {
	if strings.HasPrefix(diag, "imm-") {
		return immunisation.IssueTypeInvariant
	}
	return immunisation.IssueTypeInvalid
}

func mandationCode(diag string) immunisation.IssueType {
	if strings.HasSuffix(diag, "is a mandatory field") || strings.Contains(diag, "is mandatory when") {
		return immunisation.IssueTypeRequired
	}
	return immunisation.IssueTypeBusinessRule
}

// Validate runs every applicable stage against an assembled record and
// returns the aggregated result. When pooling is enabled the caller must
// Release() the result.
func (v *ImmunizationValidator) Validate(ctx context.Context, record map[string]any) *immunisation.Result {
	start := time.Now()
	result := v.acquireResult()

	defer func() {
		v.metrics.RecordValidation(time.Since(start), result.Valid)
	}()

	stageStart := time.Now()
	preDiags := prevalidate.Diagnostics(record)
	v.metrics.RecordStage(PhasePreValidation, time.Since(stageStart), len(preDiags))
	v.addDiagnostics(result, PhasePreValidation, structureCode, preDiags)
	if len(preDiags) > 0 {
		v.log.Debug().Int("issues", len(preDiags)).Msg("pre-validation failed")
		return result
	}

	if v.options.RunConformance {
		stageStart = time.Now()
		confDiags := v.conformance.Validate(ctx, record)
		v.metrics.RecordStage(PhaseConformance, time.Since(stageStart), len(confDiags))
		v.addDiagnostics(result, PhaseConformance, conformanceCode, confDiags)
		if len(confDiags) > 0 {
			v.log.Debug().Int("issues", len(confDiags)).Msg("conformance failed")
			return result
		}
	}

	if !v.options.RunPostValidation {
		return result
	}

	stageStart = time.Now()
	vaccineType, err := vaccine.FromRecord(record)
	if err != nil {
		v.metrics.RecordStage(PhaseVaccineResolution, time.Since(stageStart), 1)
		v.addDiagnostics(result, PhaseVaccineResolution, mandationCode, []string{err.Error()})
		v.log.Debug().Err(err).Msg("vaccine type resolution failed")
		return result
	}
	v.metrics.RecordStage(PhaseVaccineResolution, time.Since(stageStart), 0)
	result.VaccineType = string(vaccineType)

	if v.options.HonourReduceFlag && reduceValidationRequested(record) {
		reason, _ := fieldpath.Value(record, fieldpath.ReduceValidationReason)
		v.log.Info().
			Str("vaccineType", string(vaccineType)).
			Any("reason", reason).
			Msg("post-validation skipped: reduce validation requested by supplier")
		return result
	}

	stageStart = time.Now()
	postDiags := v.post.Diagnostics(record, vaccineType)
	v.metrics.RecordStage(PhasePostValidation, time.Since(stageStart), len(postDiags))
	v.addDiagnostics(result, PhasePostValidation, mandationCode, postDiags)
	if len(postDiags) > 0 {
		v.log.Debug().Int("issues", len(postDiags)).Msg("post-validation failed")
	}

	return result
}

// reduceValidationRequested reads the ReduceValidation questionnaire answer.
func reduceValidationRequested(record map[string]any) bool {
	value, ok := fieldpath.Value(record, fieldpath.ReduceValidation)
	if !ok {
		return false
	}
	b, _ := value.(bool)
	return b
}

// ValidateJSON parses a FHIR Immunization JSON document and validates it.
// Numbers are parsed decimal-preserving, so decimal-place rules behave the
// same as for decorated records.
func (v *ImmunizationValidator) ValidateJSON(ctx context.Context, data []byte) *immunisation.Result {
	record, err := loader.ParseRecord(data)
	if err != nil {
		result := v.acquireResult()
		result.AddIssue(immunisation.Issue{
			Severity:    immunisation.SeverityError,
			Code:        immunisation.IssueTypeStructure,
			Diagnostics: fmt.Sprintf("Invalid JSON: %v", err),
			Phase:       PhasePreValidation,
		})
		v.metrics.RecordIssue(immunisation.SeverityError)
		return result
	}
	return v.Validate(ctx, record)
}

// ValidateRow decorates a flat legacy row into an Immunization record and
// validates the outcome. Flat rows never carry disease codes; the batch they
// belong to names the vaccine type, and the targetDisease element is derived
// from it. Decoration failures are reported per flat field; a decorator panic
// surfaces as a fatal processing issue, never as a data-quality error.
func (v *ImmunizationValidator) ValidateRow(ctx context.Context, row decorate.Row, vaccineType vaccine.Type) *immunisation.Result {
	stageStart := time.Now()
	record, err := v.Transform(row, vaccineType)
	if err != nil {
		result := v.acquireResult()
		switch e := err.(type) {
		case *decorate.RowError:
			for _, fieldErr := range e.FieldErrors() {
				result.AddIssue(immunisation.Issue{
					Severity:    immunisation.SeverityError,
					Code:        immunisation.IssueTypeValue,
					Diagnostics: fieldErr.Message,
					Expression:  []string{fieldErr.Field},
					Phase:       PhaseDecoration,
				})
				v.metrics.RecordIssue(immunisation.SeverityError)
			}
		default:
			result.AddIssue(immunisation.Issue{
				Severity:    immunisation.SeverityFatal,
				Code:        immunisation.IssueTypeProcessing,
				Diagnostics: err.Error(),
				Phase:       PhaseDecoration,
			})
			v.metrics.RecordIssue(immunisation.SeverityFatal)
			v.log.Error().Err(err).Msg("decoration failed unexpectedly")
		}
		v.metrics.RecordStage(PhaseDecoration, time.Since(stageStart), result.ErrorCount())
		v.metrics.RecordValidation(time.Since(stageStart), false)
		return result
	}
	v.metrics.RecordStage(PhaseDecoration, time.Since(stageStart), 0)

	return v.Validate(ctx, record)
}

// Transform decorates a flat legacy row without validating the outcome,
// adding the targetDisease element the vaccine type implies. Rows that do
// not record a dose sequence get the placeholder doseNumberString so the
// resulting record still carries a dose number.
func (v *ImmunizationValidator) Transform(row decorate.Row, vaccineType vaccine.Type) (map[string]any, error) {
	record, err := decorate.Decorate(row)
	if err != nil {
		return nil, err
	}
	if element := vaccine.TargetDiseaseElement(vaccineType); element != nil {
		protocol, _ := record["protocolApplied"].([]any)
		if len(protocol) == 0 {
			protocol = []any{map[string]any{}}
			record["protocolApplied"] = protocol
		}
		if entry, ok := protocol[0].(map[string]any); ok {
			entry["targetDisease"] = element
			if _, hasInt := entry["doseNumberPositiveInt"]; !hasInt {
				if _, hasString := entry["doseNumberString"]; !hasString {
					entry["doseNumberString"] = "Dose sequence not recorded"
				}
			}
		}
	}
	return record, nil
}

// Release returns a pooled result. It is a no-op when pooling is disabled.
func (v *ImmunizationValidator) Release(result *immunisation.Result) {
	if !v.options.EnablePooling || result == nil {
		return
	}
	v.metrics.RecordPoolRelease()
	result.Release()
}

// Metrics returns the validator's metrics.
func (v *ImmunizationValidator) Metrics() *immunisation.Metrics {
	return v.metrics
}

// Options returns the validator's configuration.
func (v *ImmunizationValidator) Options() *immunisation.Options {
	return v.options
}
