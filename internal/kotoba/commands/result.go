package commands

// ErrorKind classifies a failed command.
type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindParseError      ErrorKind = "parse_error"
	KindValidationError ErrorKind = "validation_error"
	KindNotFound        ErrorKind = "not_found"
	KindStorageError    ErrorKind = "storage_error"
)

// ActionResult is the uniform outcome of running a command. It carries data
// for the renderer, never final user-facing text beyond the handler's short
// message.
type ActionResult struct {
	OK        bool           `json:"ok"`
	Intent    string         `json:"intent"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	ErrorKind ErrorKind      `json:"error_kind,omitempty"`
	Field     string         `json:"field,omitempty"`
	TraceID   string         `json:"trace_id,omitempty"`
}

// Result returns "ok" or the error kind, for metrics and audit rows.
func (r ActionResult) Result() string {
	if r.OK {
		return "ok"
	}
	return string(r.ErrorKind)
}
