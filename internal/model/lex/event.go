package lex

// Event is the Lex V2 code hook input, limited to the fields the router reads.
type Event struct {
	SessionID        string       `json:"sessionId,omitempty"`
	InputTranscript  string       `json:"inputTranscript"`
	InvocationSource string       `json:"invocationSource,omitempty"`
	SessionState     SessionState `json:"sessionState"`
}

// SessionState is shared by Event and Response.
type SessionState struct {
	DialogAction      *DialogAction     `json:"dialogAction,omitempty"`
	Intent            Intent            `json:"intent"`
	SessionAttributes map[string]string `json:"sessionAttributes,omitempty"`
}

type Intent struct {
	Name  string           `json:"name"`
	Slots map[string]*Slot `json:"slots,omitempty"`
	State string           `json:"state,omitempty"`
}

type Slot struct {
	Value SlotValue `json:"value"`
}

type SlotValue struct {
	OriginalValue    string   `json:"originalValue,omitempty"`
	InterpretedValue string   `json:"interpretedValue,omitempty"`
	ResolvedValues   []string `json:"resolvedValues,omitempty"`
}

type DialogAction struct {
	Type string `json:"type"`
}

// SlotText returns the caller's original wording for a slot, falling back to
// the interpreted value. A missing or null slot yields "".
func (e Event) SlotText(name string) string {
	slot := e.SessionState.Intent.Slots[name]
	if slot == nil {
		return ""
	}
	if slot.Value.OriginalValue != "" {
		return slot.Value.OriginalValue
	}
	return slot.Value.InterpretedValue
}
