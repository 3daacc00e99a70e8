package log

// Canonical field names.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldJobID     = "job_id"
	FieldOwnerID   = "owner_id"
	FieldRequestID = "request_id"
	FieldStage     = "stage"
	FieldStatus    = "status"
	FieldPath      = "path"
	FieldDuration  = "duration_ms"
	FieldWorker    = "worker"
)
