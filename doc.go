// Package immunisation validates and transforms immunisation records between a
// flat legacy CSV representation and a FHIR Immunization resource, enforcing the
// NHS and UK-Core business rules that sit on top of generic FHIR conformance.
//
// This package holds the shared issue and result types used by every stage of
// the engine. The stages themselves live in subpackages:
//
//   - decorate builds a nested Immunization resource from flat input fields
//   - prevalidate runs structural checks against the assembled resource
//   - conformance checks the resource against the FHIR R4 model
//   - vaccine resolves the vaccine type from target disease codes
//   - postvalidate enforces mandation rules per vaccine type and status
//   - engine sequences the stages behind a single validator facade
//
// Basic usage:
//
//	v := engine.New()
//	if err := v.Validate(ctx, record); err != nil {
//	    // err aggregates every problem found in the record
//	}
package immunisation
