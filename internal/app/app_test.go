package app

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	routes, err := config.ParseDepartmentRoutes(`{"Sales":"arn:queue:sales"}`)
	require.NoError(t, err)

	return &config.Config{
		Server:   config.ServerConfig{SessionRetention: time.Hour},
		AWS:      config.AWSConfig{Region: "eu-west-2", CallTimeout: time.Second},
		Router:   config.RouterConfig{Routes: routes, ModelID: "model", Locale: "en_GB", GenerativeFallback: true},
		Voice:    config.VoiceConfig{Routes: routes, ModelID: "voice-model"},
		Learning: config.LearningConfig{BotID: "bot", BotVersion: "DRAFT", LocaleID: "en_GB", Timeout: time.Second},
		AI:       config.AIConfig{Provider: "bedrock"},
	}
}

func TestNewTurnRouterWithoutLearning(t *testing.T) {
	turns, err := NewTurnRouter(context.Background(), aws.Config{Region: "eu-west-2"}, testConfig(t), zap.NewNop())
	require.NoError(t, err)

	assert.NotNil(t, turns.Router)
	assert.Nil(t, turns.Runner)
	assert.NoError(t, turns.Close(context.Background()))
}

func TestNewTurnRouterWithLearningOwnsRunner(t *testing.T) {
	cfg := testConfig(t)
	cfg.Learning.IntentID = "intent"
	cfg.FAQ.Table = "faq"

	turns, err := NewTurnRouter(context.Background(), aws.Config{Region: "eu-west-2"}, cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, turns.Runner)
	assert.NoError(t, turns.Close(context.Background()))
}

func TestNewTurnRouterRejectsIncompleteArkConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.AI.Provider = "ark"

	_, err := NewTurnRouter(context.Background(), aws.Config{}, cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestNewRelayStartsEmpty(t *testing.T) {
	svc, store := NewRelay(aws.Config{Region: "eu-west-2"}, testConfig(t), zap.NewNop())
	assert.Equal(t, 0, svc.ActiveSessions())
	assert.Equal(t, 0, store.Len())
}
