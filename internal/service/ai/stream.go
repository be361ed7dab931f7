package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

type voicePayload struct {
	Audio        string `json:"audio"`
	Stream       bool   `json:"stream"`
	Locale       string `json:"locale"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

// BedrockStreamer opens InvokeModelWithResponseStream and forwards every chunk
// as a text fragment.
type BedrockStreamer struct {
	client BedrockAPI
	opts   BedrockOptions
	log    *zap.Logger
}

func NewBedrockStreamer(client BedrockAPI, opts BedrockOptions, log *zap.Logger) *BedrockStreamer {
	return &BedrockStreamer{client: client, opts: opts, log: log.With(zap.String("module", "ai"))}
}

// Stream starts the model stream. The returned reader ends with io.EOF when
// the remote stream finishes. The stream lives no longer than ctx and
// opts.Timeout; when either ends, the reader gets the context error and the
// underlying connection is released.
func (s *BedrockStreamer) Stream(ctx context.Context, req VoiceRequest) (*schema.StreamReader[string], error) {
	body, err := json.Marshal(voicePayload{
		Audio:        req.AudioChunk,
		Stream:       true,
		Locale:       req.Locale,
		SystemPrompt: req.SystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	input := &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(s.opts.ModelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
		Trace:       types.TraceEnabled,
	}
	if s.opts.Guardrail.Enabled() {
		input.GuardrailIdentifier = aws.String(s.opts.Guardrail.ID)
		input.GuardrailVersion = aws.String(s.opts.Guardrail.Version)
	}

	cancel := context.CancelFunc(func() {})
	if s.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
	}

	out, err := s.client.InvokeModelWithResponseStream(ctx, input)
	if err != nil {
		cancel()
		return nil, classifyInvokeError(err)
	}

	events := out.GetStream()
	sr, sw := schema.Pipe[string](4)
	go func() {
		defer cancel()
		defer func() {
			if cerr := events.Close(); cerr != nil {
				s.log.Debug("close model stream", zap.Error(cerr))
			}
		}()
		pumpEvents(ctx, events.Events(), events.Err, sw)
	}()

	return sr, nil
}

// pumpEvents copies chunk payloads into sw until the channel drains, the
// reader side is closed or ctx ends, then reports the terminal error if any.
func pumpEvents(ctx context.Context, events <-chan types.ResponseStream, streamErr func() error, sw *schema.StreamWriter[string]) {
	defer sw.Close()

	for {
		var event types.ResponseStream
		var ok bool
		select {
		case <-ctx.Done():
			sw.Send("", fmt.Errorf("model stream stopped: %w", ctx.Err()))
			return
		case event, ok = <-events:
		}
		if !ok {
			break
		}

		chunk, isChunk := event.(*types.ResponseStreamMemberChunk)
		if !isChunk {
			continue
		}
		if closed := sw.Send(string(chunk.Value.Bytes), nil); closed {
			return
		}
	}

	if err := streamErr(); err != nil {
		sw.Send("", fmt.Errorf("model stream failed: %w", err))
	}
}
