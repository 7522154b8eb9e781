package immunisation

// IssueSeverity represents the severity of a validation issue.
// Maps to OperationOutcome.issue.severity in FHIR.
type IssueSeverity string

const (
	// SeverityFatal indicates the issue is fatal and validation cannot continue.
	SeverityFatal IssueSeverity = "fatal"
	// SeverityError indicates a validation error that causes the record to be invalid.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a potential problem that should be reviewed.
	SeverityWarning IssueSeverity = "warning"
	// SeverityInformation indicates informational feedback.
	SeverityInformation IssueSeverity = "information"
)

// IssueType represents the type of validation issue.
// Maps to OperationOutcome.issue.code in FHIR.
type IssueType string

const (
	// IssueTypeStructure indicates a present-but-malformed field (pre-validation).
	IssueTypeStructure IssueType = "structure"
	// IssueTypeValue indicates an invalid value.
	IssueTypeValue IssueType = "value"
	// IssueTypeRequired indicates a field that is mandatory for the current
	// vaccine type and status but is absent.
	IssueTypeRequired IssueType = "required"
	// IssueTypeBusinessRule indicates a mandation or vaccine-type rule violation,
	// including fields populated when not applicable.
	IssueTypeBusinessRule IssueType = "business-rule"
	// IssueTypeInvariant indicates a FHIR model invariant violation.
	IssueTypeInvariant IssueType = "invariant"
	// IssueTypeInvalid indicates content the FHIR model cannot represent.
	IssueTypeInvalid IssueType = "invalid"
	// IssueTypeProcessing indicates an internal processing error, such as an
	// unhandled failure inside a decorator. Never a data-quality problem.
	IssueTypeProcessing IssueType = "processing"
)

// Issue represents a single validation issue.
// It maps to OperationOutcome.issue in FHIR.
type Issue struct {
	// Severity of the issue (error, warning, information)
	Severity IssueSeverity `json:"severity"`

	// Code identifying the type of issue
	Code IssueType `json:"code"`

	// Diagnostics contains the human-readable detail. For pre- and
	// post-validation issues this is the exact legacy message, e.g.
	// "lotNumber must be 100 or fewer characters".
	Diagnostics string `json:"diagnostics,omitempty"`

	// Expression contains the field location path(s) of the element(s) in
	// error, e.g. "contained[?(@.resourceType=='Patient')].name[0].given".
	Expression []string `json:"expression,omitempty"`

	// Phase is the validation stage that generated this issue
	// (pre-validation, conformance, post-validation).
	Phase string `json:"phase,omitempty"`
}

// IsError returns true if this is an error or fatal issue.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError || i.Severity == SeverityFatal
}

// IsWarning returns true if this is a warning.
func (i Issue) IsWarning() bool {
	return i.Severity == SeverityWarning
}

// String returns a human-readable representation of the issue.
func (i Issue) String() string {
	path := ""
	if len(i.Expression) > 0 && i.Diagnostics == "" {
		path = " at " + i.Expression[0]
	}
	return string(i.Severity) + ": " + i.Diagnostics + path
}

// IssueBuilder provides a fluent API for building issues.
type IssueBuilder struct {
	issue Issue
}

// NewIssue creates a new IssueBuilder.
func NewIssue(severity IssueSeverity, code IssueType) *IssueBuilder {
	return &IssueBuilder{
		issue: Issue{
			Severity: severity,
			Code:     code,
		},
	}
}

// Error creates an error issue.
func Error(code IssueType) *IssueBuilder {
	return NewIssue(SeverityError, code)
}

// Warning creates a warning issue.
func Warning(code IssueType) *IssueBuilder {
	return NewIssue(SeverityWarning, code)
}

// Fatal creates a fatal issue.
func Fatal(code IssueType) *IssueBuilder {
	return NewIssue(SeverityFatal, code)
}

// Diagnostics sets the diagnostic message.
func (b *IssueBuilder) Diagnostics(msg string) *IssueBuilder {
	b.issue.Diagnostics = msg
	return b
}

// At sets the field location path.
func (b *IssueBuilder) At(path string) *IssueBuilder {
	b.issue.Expression = []string{path}
	return b
}

// Phase sets the validation stage.
func (b *IssueBuilder) Phase(phase string) *IssueBuilder {
	b.issue.Phase = phase
	return b
}

// Build returns the constructed issue.
func (b *IssueBuilder) Build() Issue {
	return b.issue
}
