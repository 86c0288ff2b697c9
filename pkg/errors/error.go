// package errors contains domain errors that different layers can use to add
// meaning to an error and that the entrypoint can transform to a status code.
// This is implemented as a separate package in order to avoid cycle import
// errors.
package errors

import "fmt"

// The following errors serve as domain errors that can be used by the
// different layers. The fatal pipeline errors abort the whole ad request;
// degraded conditions (missing examples, absent brand voice, scoring-parse
// failure) are absorbed with a warning log and never surface here.
var (
	// ErrInvalidArgument is used when the provided argument is incorrect
	// (e.g. empty product description, unknown platform).
	ErrInvalidArgument = fmt.Errorf("invalid")
	// ErrNotFound is used when a resource doesn't exist.
	ErrNotFound = fmt.Errorf("not found")
	// ErrImageAnalysisFailed is used when an image reference was supplied but
	// the vision call or its response validation failed. Fatal: downstream
	// creative alignment depends on the image context.
	ErrImageAnalysisFailed = fmt.Errorf("image analysis failed")
	// ErrRetrievalFailed is used when best-practice retrieval failed. Only
	// best practices are mandatory; example and brand-voice retrieval degrade
	// instead of raising this error.
	ErrRetrievalFailed = fmt.Errorf("knowledge retrieval failed")
	// ErrGenerationFailed is used when the creative model returned malformed
	// JSON, the wrong number of drafts, or drafts missing required fields.
	ErrGenerationFailed = fmt.Errorf("creative generation failed")
	// ErrPersistenceFailed is used when the request or its variants could not
	// be written to the store.
	ErrPersistenceFailed = fmt.Errorf("persistence failed")
	// ErrRequestCancelled is used when the invoking context was cancelled
	// mid-pipeline. No variants are persisted for a cancelled request.
	ErrRequestCancelled = fmt.Errorf("request cancelled")
)
