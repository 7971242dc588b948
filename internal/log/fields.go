package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldUserID    = "user_id"
	FieldRequestID = "request_id"
	FieldEmail     = "email"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Focus session fields
	FieldOwner    = "owner"
	FieldDuration = "duration"
	FieldElapsed  = "elapsed"
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath   = "path"
	FieldMethod = "method"
	FieldStatus = "status"
)
