package voice

// Event carries one audio fragment from the contact flow.
type Event struct {
	AudioChunk string `json:"audioChunk"`
	Locale     string `json:"locale,omitempty"`
}

const (
	ActionBlocked   = "blocked"
	ActionTransfer  = "transfer"
	ActionCompleted = "completed"
	ActionError     = "error"
)

// Result is the outcome of one streamed voice turn.
type Result struct {
	StatusCode     int    `json:"statusCode"`
	Action         string `json:"action"`
	Body           string `json:"body,omitempty"`
	TargetQueue    string `json:"targetQueue,omitempty"`
	TargetQueueArn string `json:"targetQueueArn,omitempty"`
	Message        string `json:"message,omitempty"`
}
