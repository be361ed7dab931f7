package tool

// Event is a tool invocation from the tool-calling interface.
type Event struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the common envelope for every simulated tool.
type Response struct {
	Status        string         `json:"status"`
	Message       string         `json:"message,omitempty"`
	UpdatedFields map[string]any `json:"updated_fields,omitempty"`
	Timestamp     string         `json:"timestamp,omitempty"`
	Balance       *float64       `json:"balance,omitempty"`
	Currency      string         `json:"currency,omitempty"`
}

// Error builds an error envelope.
func Error(message string) Response {
	return Response{Status: StatusError, Message: message}
}
