package relay

// StartChatRequest 启动一个聊天联系人。
type StartChatRequest struct {
	InstanceID    string            `json:"instanceId" validate:"required"`
	ContactFlowID string            `json:"contactFlowId" validate:"required"`
	CustomerName  string            `json:"customerName,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// StartChatResponse is returned to the browser after StartChatContact.
type StartChatResponse struct {
	ContactID        string `json:"contactId"`
	ParticipantID    string `json:"participantId"`
	ParticipantToken string `json:"participantToken"`
}

type CreateConnectionRequest struct {
	ParticipantToken string `json:"participantToken" validate:"required"`
}

// Websocket and ConnectionCredentials keep the upstream field names so the
// chat page can read them as returned by the participant service.
type Websocket struct {
	Url              string `json:"Url,omitempty"`
	ConnectionExpiry string `json:"ConnectionExpiry,omitempty"`
}

type ConnectionCredentials struct {
	ConnectionToken string `json:"ConnectionToken,omitempty"`
	Expiry          string `json:"Expiry,omitempty"`
}

type CreateConnectionResponse struct {
	Websocket             *Websocket             `json:"websocket"`
	ConnectionCredentials *ConnectionCredentials `json:"connectionCredentials"`
}

type SendMessageRequest struct {
	ConnectionToken string `json:"connectionToken" validate:"required"`
	Message         string `json:"message" validate:"required"`
	ContentType     string `json:"contentType,omitempty"`
}

type SendMessageResponse struct {
	ID           string `json:"id"`
	AbsoluteTime string `json:"absoluteTime"`
}

type GetTranscriptRequest struct {
	ConnectionToken string `json:"connectionToken" validate:"required"`
	MaxResults      int32  `json:"maxResults,omitempty" validate:"min=0,max=100"`
	NextToken       string `json:"nextToken,omitempty"`
}

// TranscriptItem mirrors a participant service transcript item.
type TranscriptItem struct {
	AbsoluteTime    string `json:"AbsoluteTime,omitempty"`
	Content         string `json:"Content,omitempty"`
	ContentType     string `json:"ContentType,omitempty"`
	Id              string `json:"Id,omitempty"`
	Type            string `json:"Type,omitempty"`
	ParticipantId   string `json:"ParticipantId,omitempty"`
	DisplayName     string `json:"DisplayName,omitempty"`
	ParticipantRole string `json:"ParticipantRole,omitempty"`
	ContactId       string `json:"ContactId,omitempty"`
}

type GetTranscriptResponse struct {
	Transcript []TranscriptItem `json:"transcript"`
	NextToken  string           `json:"nextToken,omitempty"`
}

type DisconnectRequest struct {
	ConnectionToken string `json:"connectionToken" validate:"required"`
}

type DisconnectResponse struct {
	Success bool `json:"success"`
}
