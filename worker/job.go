package worker

import (
	"time"

	immunisation "github.com/dlzhry2/immunisation-fhir-api-sub000"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/decorate"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/vaccine"
)

// Job is one record to process. Either Row or Resource is set: a flat legacy
// row to decorate and validate, or a FHIR Immunization JSON document to
// validate directly. A job without an ID is assigned one on submission.
type Job struct {
	// ID correlates the job with its result.
	ID string

	// Row is a flat legacy row (batch input).
	Row decorate.Row

	// VaccineType names the batch's vaccine type; flat rows carry no
	// disease codes of their own.
	VaccineType vaccine.Type

	// Resource is a FHIR Immunization JSON document.
	Resource []byte
}

// JobResult is the outcome of one job.
type JobResult struct {
	// ID matches the Job that produced this result.
	ID string

	// Result aggregates the validation issues found.
	Result *immunisation.Result

	// Err is set when the job could not be processed at all. Data-quality
	// problems live in Result, never here.
	Err error

	// Duration is the processing time for this job.
	Duration time.Duration
}

// BatchResult aggregates the results of a drained pool.
type BatchResult struct {
	Results       []*JobResult
	TotalJobs     int
	CompletedJobs int
	TotalDuration time.Duration
}

// HasErrors reports whether any job failed or produced validation errors.
func (br *BatchResult) HasErrors() bool {
	for _, r := range br.Results {
		if r.Err != nil {
			return true
		}
		if r.Result != nil && r.Result.HasErrors() {
			return true
		}
	}
	return false
}

// ErrorCount returns the total validation errors across all results.
func (br *BatchResult) ErrorCount() int {
	count := 0
	for _, r := range br.Results {
		if r.Result != nil {
			count += r.Result.ErrorCount()
		}
	}
	return count
}
