package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// ArkGenerator 通过 eino 链调用 Ark 模型。Ark 不支持 Bedrock guardrail，
// 因此该实现永远不会返回 ErrModerationBlocked。
type ArkGenerator struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	timeout time.Duration
	log     *zap.Logger
}

// NewArkGenerator compiles a one-message prompt chain around chatModel.
func NewArkGenerator(ctx context.Context, chatModel model.BaseChatModel, timeout time.Duration, log *zap.Logger) (*ArkGenerator, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ArkGenerator{
		chain:   runnable,
		timeout: timeout,
		log:     log.With(zap.String("module", "ai"), zap.String("provider", "ark")),
	}, nil
}

// Generate runs the chain once and returns the trimmed reply.
func (g *ArkGenerator) Generate(ctx context.Context, query string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	response, err := g.chain.Invoke(ctx, map[string]any{"query": query})
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	g.log.Debug("generated response", zap.Int("length", len(response.Content)))
	return strings.TrimSpace(response.Content), nil
}
