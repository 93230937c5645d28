package funnel

import "github.com/rotisserie/eris"

// Validation failures are the only fatal errors in the pipeline: identity is
// a trust boundary, so the orchestrator aborts instead of degrading.
var (
	// ErrMissingFields is returned when contact id, email or form answers
	// are absent from the request.
	ErrMissingFields = eris.New("funnel: missing contactId, email or formData")

	// ErrContactNotFound is returned when the CRM lookup errors or
	// resolves to no contact.
	ErrContactNotFound = eris.New("funnel: contact not found")

	// ErrEmailMismatch is returned when the submitted email does not match
	// the contact's email after normalization.
	ErrEmailMismatch = eris.New("funnel: email does not match the contact")
)
