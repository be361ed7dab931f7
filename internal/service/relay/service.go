package relay

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/connect"
	connecttypes "github.com/aws/aws-sdk-go-v2/service/connect/types"
	"github.com/aws/aws-sdk-go-v2/service/connectparticipant"
	"github.com/aws/aws-sdk-go-v2/service/connectparticipant/types"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/model/relay"
	model "github.com/alokkulkarni/connect-relay/internal/model/session"
	"github.com/alokkulkarni/connect-relay/internal/service/session"
)

const (
	defaultDisplayName  = "Anonymous Customer"
	defaultCustomerName = "Anonymous"
	defaultContentType  = "text/plain"
	defaultMaxResults   = int32(15)
)

var tracer = otel.Tracer("github.com/alokkulkarni/connect-relay/internal/service/relay")

// ContactAPI is the subset of the Connect client used by the relay.
type ContactAPI interface {
	StartChatContact(ctx context.Context, params *connect.StartChatContactInput, optFns ...func(*connect.Options)) (*connect.StartChatContactOutput, error)
}

// ParticipantAPI is the subset of the Connect Participant client used by the relay.
type ParticipantAPI interface {
	CreateParticipantConnection(ctx context.Context, params *connectparticipant.CreateParticipantConnectionInput, optFns ...func(*connectparticipant.Options)) (*connectparticipant.CreateParticipantConnectionOutput, error)
	SendMessage(ctx context.Context, params *connectparticipant.SendMessageInput, optFns ...func(*connectparticipant.Options)) (*connectparticipant.SendMessageOutput, error)
	GetTranscript(ctx context.Context, params *connectparticipant.GetTranscriptInput, optFns ...func(*connectparticipant.Options)) (*connectparticipant.GetTranscriptOutput, error)
	DisconnectParticipant(ctx context.Context, params *connectparticipant.DisconnectParticipantInput, optFns ...func(*connectparticipant.Options)) (*connectparticipant.DisconnectParticipantOutput, error)
}

// Service forwards chat session requests to Amazon Connect. Each operation
// validates first and then issues exactly one remote call.
type Service struct {
	contact     ContactAPI
	participant ParticipantAPI
	sessions    *session.Store
	timeout     time.Duration
	validate    *validator.Validate
	log         *zap.Logger
}

// NewService wires the relay with its AWS clients and session store.
func NewService(contact ContactAPI, participant ParticipantAPI, sessions *session.Store, timeout time.Duration, log *zap.Logger) *Service {
	v := validator.New()
	// 校验错误中使用 JSON 字段名，便于前端直接展示。
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Service{
		contact:     contact,
		participant: participant,
		sessions:    sessions,
		timeout:     timeout,
		validate:    v,
		log:         log.With(zap.String("module", "relay")),
	}
}

// StartChat starts a chat contact and records the resulting session.
func (s *Service) StartChat(ctx context.Context, req relay.StartChatRequest) (relay.StartChatResponse, error) {
	if err := s.check(req, "Missing required fields: instanceId and contactFlowId"); err != nil {
		return relay.StartChatResponse{}, err
	}

	displayName := req.CustomerName
	if displayName == "" {
		displayName = defaultDisplayName
	}

	customerName := req.CustomerName
	if customerName == "" {
		customerName = defaultCustomerName
	}
	attributes := map[string]string{"customerName": customerName}
	for k, v := range req.Attributes {
		attributes[k] = v
	}

	s.log.Info("starting chat",
		zap.String("instanceId", req.InstanceID),
		zap.String("contactFlowId", req.ContactFlowID),
		zap.Any("attributes", attributes),
	)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "connect.StartChatContact")
	defer span.End()

	out, err := s.contact.StartChatContact(ctx, &connect.StartChatContactInput{
		InstanceId:         aws.String(req.InstanceID),
		ContactFlowId:      aws.String(req.ContactFlowID),
		ParticipantDetails: &connecttypes.ParticipantDetails{DisplayName: aws.String(displayName)},
		Attributes:         attributes,
	})
	if err != nil {
		return relay.StartChatResponse{}, s.fail(span, "StartChatContact", err)
	}

	resp := relay.StartChatResponse{
		ContactID:        aws.ToString(out.ContactId),
		ParticipantID:    aws.ToString(out.ParticipantId),
		ParticipantToken: aws.ToString(out.ParticipantToken),
	}

	s.sessions.Put(model.Session{
		ContactID:        resp.ContactID,
		ParticipantID:    resp.ParticipantID,
		ParticipantToken: resp.ParticipantToken,
	})
	s.log.Info("chat started", zap.String("contactId", resp.ContactID), zap.String("participantId", resp.ParticipantID))

	return resp, nil
}

// CreateConnection opens a participant connection with websocket and
// connection credentials.
func (s *Service) CreateConnection(ctx context.Context, req relay.CreateConnectionRequest) (relay.CreateConnectionResponse, error) {
	if err := s.check(req, "Missing participantToken"); err != nil {
		return relay.CreateConnectionResponse{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "connect.CreateParticipantConnection")
	defer span.End()

	out, err := s.participant.CreateParticipantConnection(ctx, &connectparticipant.CreateParticipantConnectionInput{
		ParticipantToken: aws.String(req.ParticipantToken),
		Type:             []types.ConnectionType{types.ConnectionTypeWebsocket, types.ConnectionTypeConnectionCredentials},
	})
	if err != nil {
		return relay.CreateConnectionResponse{}, s.fail(span, "CreateParticipantConnection", err)
	}

	var resp relay.CreateConnectionResponse
	if out.Websocket != nil {
		resp.Websocket = &relay.Websocket{
			Url:              aws.ToString(out.Websocket.Url),
			ConnectionExpiry: aws.ToString(out.Websocket.ConnectionExpiry),
		}
	}
	if out.ConnectionCredentials != nil {
		resp.ConnectionCredentials = &relay.ConnectionCredentials{
			ConnectionToken: aws.ToString(out.ConnectionCredentials.ConnectionToken),
			Expiry:          aws.ToString(out.ConnectionCredentials.Expiry),
		}
		s.sessions.AttachConnection(req.ParticipantToken, resp.ConnectionCredentials.ConnectionToken)
	}

	return resp, nil
}

// SendMessage posts a message on behalf of the participant. A caller retry
// after a lost response may deliver the message twice.
func (s *Service) SendMessage(ctx context.Context, req relay.SendMessageRequest) (relay.SendMessageResponse, error) {
	if err := s.check(req, "Missing required fields"); err != nil {
		return relay.SendMessageResponse{}, err
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "connect.SendMessage")
	defer span.End()

	out, err := s.participant.SendMessage(ctx, &connectparticipant.SendMessageInput{
		ConnectionToken: aws.String(req.ConnectionToken),
		Content:         aws.String(req.Message),
		ContentType:     aws.String(contentType),
	})
	if err != nil {
		return relay.SendMessageResponse{}, s.fail(span, "SendMessage", err)
	}

	return relay.SendMessageResponse{
		ID:           aws.ToString(out.Id),
		AbsoluteTime: aws.ToString(out.AbsoluteTime),
	}, nil
}

// GetTranscript returns one ascending page of the transcript.
func (s *Service) GetTranscript(ctx context.Context, req relay.GetTranscriptRequest) (relay.GetTranscriptResponse, error) {
	if err := s.check(req, "Missing connectionToken"); err != nil {
		return relay.GetTranscriptResponse{}, err
	}

	maxResults := req.MaxResults
	if maxResults == 0 {
		maxResults = defaultMaxResults
	}

	input := &connectparticipant.GetTranscriptInput{
		ConnectionToken: aws.String(req.ConnectionToken),
		MaxResults:      aws.Int32(maxResults),
		SortOrder:       types.SortKeyAscending,
	}
	if req.NextToken != "" {
		input.NextToken = aws.String(req.NextToken)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "connect.GetTranscript")
	defer span.End()

	out, err := s.participant.GetTranscript(ctx, input)
	if err != nil {
		return relay.GetTranscriptResponse{}, s.fail(span, "GetTranscript", err)
	}

	items := make([]relay.TranscriptItem, 0, len(out.Transcript))
	for _, item := range out.Transcript {
		items = append(items, relay.TranscriptItem{
			AbsoluteTime:    aws.ToString(item.AbsoluteTime),
			Content:         aws.ToString(item.Content),
			ContentType:     aws.ToString(item.ContentType),
			Id:              aws.ToString(item.Id),
			Type:            string(item.Type),
			ParticipantId:   aws.ToString(item.ParticipantId),
			DisplayName:     aws.ToString(item.DisplayName),
			ParticipantRole: string(item.ParticipantRole),
			ContactId:       aws.ToString(item.ContactId),
		})
	}

	return relay.GetTranscriptResponse{
		Transcript: items,
		NextToken:  aws.ToString(out.NextToken),
	}, nil
}

// Disconnect ends the participant connection and forgets the session. A
// participant that is already gone counts as success.
func (s *Service) Disconnect(ctx context.Context, req relay.DisconnectRequest) (relay.DisconnectResponse, error) {
	if err := s.check(req, "Missing connectionToken"); err != nil {
		return relay.DisconnectResponse{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "connect.DisconnectParticipant")
	defer span.End()

	_, err := s.participant.DisconnectParticipant(ctx, &connectparticipant.DisconnectParticipantInput{
		ConnectionToken: aws.String(req.ConnectionToken),
	})
	if err != nil {
		upErr := upstreamError("DisconnectParticipant", err)
		if !alreadyDisconnected(upErr) {
			return relay.DisconnectResponse{}, s.fail(span, "DisconnectParticipant", err)
		}
		s.log.Info("participant already disconnected", zap.String("code", upErr.Code))
	}

	if contactID, ok := s.sessions.DeleteByConnection(req.ConnectionToken); ok {
		s.log.Info("session closed", zap.String("contactId", contactID))
	}

	return relay.DisconnectResponse{Success: true}, nil
}

// ActiveSessions reports how many sessions the relay is tracking.
func (s *Service) ActiveSessions() int {
	return s.sessions.Len()
}

func (s *Service) check(req any, message string) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Message: message}
	}

	verr := &ValidationError{Message: message}
	for _, fe := range fieldErrs {
		if fe.Tag() != "required" {
			verr.Message = "Invalid field: " + fe.Field()
		}
		verr.Fields = append(verr.Fields, fe.Field())
	}
	return verr
}

func (s *Service) fail(span trace.Span, op string, err error) error {
	upErr := upstreamError(op, err)
	span.RecordError(err)
	span.SetStatus(codes.Error, upErr.Code)
	s.log.Error("remote call failed", zap.String("op", op), zap.String("code", upErr.Code), zap.Error(err))
	return upErr
}

// alreadyDisconnected only trusts the message of a coded API error; transport
// failures carry no code and are never treated as success.
func alreadyDisconnected(err *UpstreamError) bool {
	if err.Code == "ResourceNotFoundException" {
		return true
	}
	if err.Code == "" || err.Code == CodeTimeout {
		return false
	}
	msg := strings.ToLower(err.Message)
	return strings.Contains(msg, "already") || strings.Contains(msg, "disconnected")
}
