// Package app builds the services shared by the HTTP server, the Lambda
// entrypoints and turnctl from a loaded configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/connect"
	"github.com/aws/aws-sdk-go-v2/service/connectparticipant"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lexmodelsv2"
	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/config"
	"github.com/alokkulkarni/connect-relay/internal/service/ai"
	"github.com/alokkulkarni/connect-relay/internal/service/faq"
	"github.com/alokkulkarni/connect-relay/internal/service/learning"
	"github.com/alokkulkarni/connect-relay/internal/service/relay"
	"github.com/alokkulkarni/connect-relay/internal/service/router"
	"github.com/alokkulkarni/connect-relay/internal/service/session"
	"github.com/alokkulkarni/connect-relay/internal/service/tools"
	"github.com/alokkulkarni/connect-relay/internal/service/voice"
)

// LoadAWS resolves credentials and region through the default provider chain.
func LoadAWS(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

// NewRelay builds the session relay and its store.
func NewRelay(awsCfg aws.Config, cfg *config.Config, log *zap.Logger) (*relay.Service, *session.Store) {
	store := session.NewStore(cfg.Server.SessionRetention, log)
	svc := relay.NewService(
		connect.NewFromConfig(awsCfg),
		connectparticipant.NewFromConfig(awsCfg),
		store,
		cfg.AWS.CallTimeout,
		log,
	)
	return svc, store
}

// TurnRouter bundles the text router with the runner that owns its
// background self-learning tasks. Close the runner on shutdown.
type TurnRouter struct {
	Router *router.Router
	Runner *learning.Runner
}

// NewTurnRouter builds the text turn router with its FAQ cache and learner.
func NewTurnRouter(ctx context.Context, awsCfg aws.Config, cfg *config.Config, log *zap.Logger) (*TurnRouter, error) {
	generator, err := ai.NewGenerator(ctx, cfg.AI, cfg.Router, bedrockruntime.NewFromConfig(awsCfg), cfg.AWS.CallTimeout, log)
	if err != nil {
		return nil, err
	}

	deps := router.Deps{Generator: generator}

	if cfg.FAQ.Table != "" {
		deps.Cache = faq.NewCache(dynamodb.NewFromConfig(awsCfg), cfg.FAQ.Table, cfg.FAQ.TTL, cfg.AWS.CallTimeout, log)
	}

	var runner *learning.Runner
	if cfg.Learning.Enabled() {
		runner = learning.NewRunner(cfg.Learning.Timeout, log)
		deps.Learner = learning.NewIntentLearner(lexmodelsv2.NewFromConfig(awsCfg), cfg.Learning, log)
		deps.Runner = runner
	} else {
		log.Info("self-learning disabled: BOT_ID or INTENT_ID not set")
	}

	return &TurnRouter{Router: router.New(cfg.Router, deps, log), Runner: runner}, nil
}

// Close waits for background tasks.
func (t *TurnRouter) Close(ctx context.Context) error {
	if t == nil || t.Runner == nil {
		return nil
	}
	return t.Runner.Close(ctx)
}

// NewVoice builds the streaming voice router over Bedrock.
func NewVoice(awsCfg aws.Config, cfg *config.Config, log *zap.Logger) *voice.Service {
	streamer := ai.NewBedrockStreamer(bedrockruntime.NewFromConfig(awsCfg), ai.BedrockOptions{
		ModelID:   cfg.Voice.ModelID,
		Guardrail: ai.GuardrailConfig{ID: cfg.Voice.GuardrailID, Version: cfg.Voice.GuardrailVersion},
		Timeout:   cfg.Voice.Timeout,
	}, log)
	return voice.NewService(cfg.Voice, streamer, log)
}

// NewTools builds the simulated tool handler.
func NewTools(cfg *config.Config, log *zap.Logger) *tools.Service {
	return tools.NewService(cfg.Router.Locale, log)
}
