package tracking

import "errors"

// Validation errors returned by CollectEventInput.Validate. Their messages
// are sent to clients as-is.
var (
	ErrMissingFields     = errors.New("Missing required fields")
	ErrInvalidEventType  = errors.New("Invalid event_type")
	ErrInvalidEntityType = errors.New("Invalid entity_type")
)
