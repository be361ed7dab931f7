package lex

const (
	DialogActionClose = "Close"

	StateFulfilled = "Fulfilled"
	StateFailed    = "Failed"

	ContentTypePlainText = "PlainText"

	AttrTargetQueue    = "TargetQueue"
	AttrTargetQueueArn = "TargetQueueArn"
)

// Response is returned to the Lex V2 runtime.
type Response struct {
	SessionState SessionState `json:"sessionState"`
	Messages     []Message    `json:"messages,omitempty"`
}

type Message struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// Close ends the dialog for intentName with a single plain-text message.
// attributes are copied; a nil or empty map is omitted from the payload.
func Close(intentName, state, message string, attributes map[string]string) Response {
	var attrs map[string]string
	if len(attributes) > 0 {
		attrs = make(map[string]string, len(attributes))
		for k, v := range attributes {
			attrs[k] = v
		}
	}

	return Response{
		SessionState: SessionState{
			DialogAction:      &DialogAction{Type: DialogActionClose},
			Intent:            Intent{Name: intentName, State: state},
			SessionAttributes: attrs,
		},
		Messages: []Message{{ContentType: ContentTypePlainText, Content: message}},
	}
}

// Text returns the first message content, or "".
func (r Response) Text() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].Content
}
