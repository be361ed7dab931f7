package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/config"
)

// ErrModerationBlocked is returned when a guardrail intervened on the input or
// the output of a model call.
var ErrModerationBlocked = errors.New("content blocked by guardrail")

// Generator produces one complete reply for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VoiceRequest is the payload for a streaming voice turn.
type VoiceRequest struct {
	AudioChunk   string
	Locale       string
	SystemPrompt string
}

// Streamer opens a model stream and exposes the decoded text fragments.
type Streamer interface {
	Stream(ctx context.Context, req VoiceRequest) (*schema.StreamReader[string], error)
}

// GuardrailConfig identifies the guardrail attached to each invocation.
type GuardrailConfig struct {
	ID      string
	Version string
}

// Enabled reports whether both identifier and version are set.
func (g GuardrailConfig) Enabled() bool {
	return g.ID != "" && g.Version != ""
}

// NewGenerator picks the text provider configured by AI_PROVIDER.
func NewGenerator(ctx context.Context, aiCfg config.AIConfig, routerCfg config.RouterConfig, client BedrockAPI, timeout time.Duration, log *zap.Logger) (Generator, error) {
	switch aiCfg.Provider {
	case "ark":
		chatModel, err := aiCfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		return NewArkGenerator(ctx, chatModel, timeout, log)
	default:
		return NewBedrockGenerator(client, BedrockOptions{
			ModelID:   routerCfg.ModelID,
			Guardrail: GuardrailConfig{ID: routerCfg.GuardrailID, Version: routerCfg.GuardrailVersion},
			Timeout:   timeout,
		}, log), nil
	}
}
