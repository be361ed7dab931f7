package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const (
	anthropicVersion = "bedrock-2023-05-31"
	defaultMaxTokens = 1000

	guardrailIntervened = "INTERVENED"
)

// BedrockAPI is the subset of the Bedrock runtime client used here.
type BedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
	InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error)
}

// BedrockOptions configures a Bedrock generator or streamer.
type BedrockOptions struct {
	ModelID   string
	Guardrail GuardrailConfig
	MaxTokens int
	Timeout   time.Duration
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason      string `json:"stop_reason"`
	GuardrailAction string `json:"amazon-bedrock-guardrailAction"`
}

// BedrockGenerator calls an Anthropic model through InvokeModel.
type BedrockGenerator struct {
	client BedrockAPI
	opts   BedrockOptions
	log    *zap.Logger
}

func NewBedrockGenerator(client BedrockAPI, opts BedrockOptions, log *zap.Logger) *BedrockGenerator {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	return &BedrockGenerator{client: client, opts: opts, log: log.With(zap.String("module", "ai"))}
}

// Generate sends prompt as a single user message and returns the trimmed text
// of the first content block.
func (g *BedrockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        g.opts.MaxTokens,
		Messages: []anthropicMessage{{
			Role:    "user",
			Content: []anthropicContent{{Type: "text", Text: prompt}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	input := &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.opts.ModelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
		Trace:       types.TraceEnabled,
	}
	if g.opts.Guardrail.Enabled() {
		input.GuardrailIdentifier = aws.String(g.opts.Guardrail.ID)
		input.GuardrailVersion = aws.String(g.opts.Guardrail.Version)
	}

	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	out, err := g.client.InvokeModel(ctx, input)
	if err != nil {
		return "", classifyInvokeError(err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode model response: %w", err)
	}

	if resp.GuardrailAction == guardrailIntervened || resp.StopReason == "guardrail_intervened" {
		g.log.Warn("guardrail intervened", zap.String("model", g.opts.ModelID))
		return "", ErrModerationBlocked
	}

	if len(resp.Content) == 0 {
		return "", errors.New("model returned no content")
	}

	return strings.TrimSpace(resp.Content[0].Text), nil
}

// classifyInvokeError maps guardrail validation failures to ErrModerationBlocked.
func classifyInvokeError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationException" &&
		strings.Contains(strings.ToLower(apiErr.ErrorMessage()), "guardrail") {
		return fmt.Errorf("%w: %s", ErrModerationBlocked, apiErr.ErrorMessage())
	}
	return fmt.Errorf("failed to invoke model: %w", err)
}
