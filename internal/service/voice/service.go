package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/config"
	"github.com/alokkulkarni/connect-relay/internal/model/voice"
	"github.com/alokkulkarni/connect-relay/internal/service/ai"
)

const (
	// GuardrailMarker appears in the model output when a guardrail intervened.
	GuardrailMarker = "guardrail_intervention"
	defaultRoute    = "Default"
)

var handoverPattern = regexp.MustCompile(`\[HANDOVER:\s*([^\]]*?)\s*\]`)

// Service consumes a streamed model response for one voice turn and watches
// the text for moderation and handover markers.
type Service struct {
	cfg      config.VoiceConfig
	streamer ai.Streamer
	log      *zap.Logger
}

func NewService(cfg config.VoiceConfig, streamer ai.Streamer, log *zap.Logger) *Service {
	return &Service{cfg: cfg, streamer: streamer, log: log.With(zap.String("module", "voice"))}
}

// Handle processes one audio fragment. Markers are matched against the text
// accumulated so far, so a marker split across fragments is still detected.
func (s *Service) Handle(ctx context.Context, event voice.Event) voice.Result {
	if event.AudioChunk == "" {
		return voice.Result{StatusCode: http.StatusBadRequest, Action: voice.ActionError, Body: "Missing audioChunk"}
	}

	locale := event.Locale
	if locale == "" {
		locale = s.cfg.Locale
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	stream, err := s.streamer.Stream(ctx, ai.VoiceRequest{
		AudioChunk:   event.AudioChunk,
		Locale:       locale,
		SystemPrompt: s.systemPrompt(),
	})
	if err != nil {
		if errors.Is(err, ai.ErrModerationBlocked) {
			return blocked()
		}
		s.log.Error("failed to open model stream", zap.Error(err))
		return failure()
	}
	defer stream.Close()

	var text strings.Builder
	fragments := 0
	for {
		chunk, recvErr := recv(ctx, stream)
		if errors.Is(recvErr, io.EOF) {
			s.log.Info("voice stream completed", zap.Int("fragments", fragments))
			return voice.Result{StatusCode: http.StatusOK, Action: voice.ActionCompleted, Body: "Stream processed"}
		}
		if recvErr != nil {
			if errors.Is(recvErr, ai.ErrModerationBlocked) {
				return blocked()
			}
			if errors.Is(recvErr, context.DeadlineExceeded) {
				s.log.Error("voice stream timed out", zap.Int("fragments", fragments), zap.Duration("timeout", s.cfg.Timeout))
				return failure()
			}
			s.log.Error("voice stream failed", zap.Int("fragments", fragments), zap.Error(recvErr))
			return failure()
		}

		fragments++
		text.WriteString(chunk)
		seen := text.String()

		if strings.Contains(seen, GuardrailMarker) {
			s.log.Warn("content blocked by guardrail", zap.Int("fragments", fragments))
			return blocked()
		}

		if match := handoverPattern.FindStringSubmatch(seen); match != nil {
			return s.transfer(match[1])
		}
	}
}

type fragment struct {
	text string
	err  error
}

// recv waits for the next fragment or for ctx to end. Only one fragment is
// pulled per call, so nothing is read past a marker.
func recv(ctx context.Context, stream *schema.StreamReader[string]) (string, error) {
	ch := make(chan fragment, 1)
	go func() {
		text, err := stream.Recv()
		ch <- fragment{text: text, err: err}
	}()

	select {
	case f := <-ch:
		return f.text, f.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Service) transfer(department string) voice.Result {
	arn, ok := s.resolve(department)
	if !ok {
		s.log.Error("handover requested but no queues are configured", zap.String("department", department))
		return failure()
	}

	s.log.Info("handover requested", zap.String("department", department), zap.String("queueArn", arn))
	return voice.Result{
		StatusCode:     http.StatusOK,
		Action:         voice.ActionTransfer,
		TargetQueue:    department,
		TargetQueueArn: arn,
		Message:        fmt.Sprintf("Transferring you to %s...", department),
	}
}

// resolve looks up department, then the Default entry, then the first
// configured queue.
func (s *Service) resolve(department string) (string, bool) {
	routes := s.cfg.Routes
	if routes == nil || routes.Len() == 0 {
		return "", false
	}
	if arn, ok := routes.Get(department); ok {
		return arn, true
	}
	if arn, ok := routes.Get(defaultRoute); ok {
		return arn, true
	}
	return routes.Oldest().Value, true
}

func (s *Service) systemPrompt() string {
	var names []string
	if s.cfg.Routes != nil {
		for pair := s.cfg.Routes.Oldest(); pair != nil; pair = pair.Next() {
			names = append(names, pair.Key)
		}
	}

	return "You are a helpful voice assistant.\n" +
		"If the user asks to speak to a human agent or a specific department, output the tag [HANDOVER: DepartmentName].\n" +
		"Available departments: " + strings.Join(names, ", ") + ".\n" +
		"If the department is not found, output [HANDOVER: Default]."
}

func blocked() voice.Result {
	return voice.Result{StatusCode: http.StatusBadRequest, Action: voice.ActionBlocked, Body: "Content blocked"}
}

func failure() voice.Result {
	return voice.Result{StatusCode: http.StatusInternalServerError, Action: voice.ActionError, Body: "Error processing audio"}
}
