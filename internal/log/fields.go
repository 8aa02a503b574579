package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldCorrelationID = "correlation_id"
	FieldUserID        = "user_id"
	FieldMessageID     = "message_id"
	FieldState         = "state"
	FieldIntent        = "intent"
	FieldCommand       = "command"
	FieldTransactionID = "transaction_id"
	FieldAmountCents   = "amount_cents"
	FieldCategory      = "category"
	FieldScheduleID    = "schedule_id"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentDispatch     = "dispatch"
	ComponentConversation = "conversation"
	ComponentStorage      = "storage"
	ComponentAMQP         = "amqp"
	ComponentWorker       = "worker"
	ComponentScheduler    = "scheduler"
	ComponentTelegram     = "telegram"
	ComponentSheets       = "sheets"
	ComponentHTTP         = "http"
	ComponentCache        = "cache"
	ComponentBackend      = "backend"
)

// Operations defines standard operation names
const (
	OpLoad       = "load"
	OpSave       = "save"
	OpRecord     = "record"
	OpHandle     = "handle"
	OpSend       = "send"
	OpTranscribe = "transcribe"
	OpSync       = "sync"
	OpSchedule   = "schedule"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithUser(userID string) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithMessage adds the inbound message id
func (f LogFields) WithMessage(messageID string) LogFields {
	f[FieldMessageID] = messageID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransaction adds ledger entry fields
func (f LogFields) WithTransaction(id, amountCents int64, category string) LogFields {
	f[FieldTransactionID] = id
	f[FieldAmountCents] = amountCents
	f[FieldCategory] = category
	return f
}

// WithHTTPResponse adds HTTP request and response fields
func (f LogFields) WithHTTPResponse(method, path string, statusCode int, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
