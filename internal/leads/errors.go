package leads

import "errors"

var (
	// ErrMissingLeadID indicates the intake payload had no lead id.
	ErrMissingLeadID = errors.New("leads: leadId is required")
	// ErrMissingTradiePhone indicates the intake payload had no tradie phone.
	ErrMissingTradiePhone = errors.New("leads: tradiePhone is required")
	// ErrLeadNotFound indicates no record exists for the given key.
	ErrLeadNotFound = errors.New("leads: lead not found")
)
