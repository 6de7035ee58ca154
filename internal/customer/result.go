package customer

// ValidationResult is the outcome of validating a customer reference.
// Exactly one of the three concrete types below is returned; callers switch
// on the type instead of catching errors.
type ValidationResult interface {
	validationResult()
}

// Found means the customer exists. Snapshot is the decoded response body as
// returned by the customer service; its schema belongs to that service and
// is not interpreted here.
type Found struct {
	Snapshot map[string]any
}

// NotFound means the customer does not exist, or the request was rejected as
// a client error. Message carries the server's explanation when it gave one.
type NotFound struct {
	Message string
}

// ServiceUnavailable means the customer service could not answer: retries
// were exhausted against 503/504, transport failures, or a hard 5xx.
type ServiceUnavailable struct {
	Err error
}

func (Found) validationResult()              {}
func (NotFound) validationResult()           {}
func (ServiceUnavailable) validationResult() {}
