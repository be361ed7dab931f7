package learning

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lexmodelsv2"
	"github.com/aws/aws-sdk-go-v2/service/lexmodelsv2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/config"
)

type fakeLex struct {
	intent      *lexmodelsv2.DescribeIntentOutput
	describeErr error
	updateErr   error
	updates     []*lexmodelsv2.UpdateIntentInput
}

func (f *fakeLex) DescribeIntent(context.Context, *lexmodelsv2.DescribeIntentInput, ...func(*lexmodelsv2.Options)) (*lexmodelsv2.DescribeIntentOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return f.intent, nil
}

func (f *fakeLex) UpdateIntent(_ context.Context, in *lexmodelsv2.UpdateIntentInput, _ ...func(*lexmodelsv2.Options)) (*lexmodelsv2.UpdateIntentOutput, error) {
	f.updates = append(f.updates, in)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	// Reflect the write so a later DescribeIntent sees it.
	f.intent.SampleUtterances = in.SampleUtterances
	return &lexmodelsv2.UpdateIntentOutput{}, nil
}

var testLearningConfig = config.LearningConfig{BotID: "bot", BotVersion: "DRAFT", LocaleID: "en_GB", IntentID: "intent"}

func talkToAgentIntent() *lexmodelsv2.DescribeIntentOutput {
	return &lexmodelsv2.DescribeIntentOutput{
		IntentName:          aws.String("TalkToAgent"),
		Description:         aws.String("Route to a human"),
		SampleUtterances:    []types.SampleUtterance{{Utterance: aws.String("talk to an agent")}},
		DialogCodeHook:      &types.DialogCodeHookSettings{},
		FulfillmentCodeHook: &types.FulfillmentCodeHookSettings{},
		SlotPriorities:      []types.SlotPriority{{SlotId: aws.String("dept")}},
		InputContexts:       []types.InputContext{{Name: aws.String("ctx")}},
	}
}

func TestLearnAppendsAndPreservesFields(t *testing.T) {
	original := talkToAgentIntent()
	client := &fakeLex{intent: original}
	dialogHook, fulfillmentHook := original.DialogCodeHook, original.FulfillmentCodeHook
	learner := NewIntentLearner(client, testLearningConfig, zap.NewNop())

	updated, err := learner.Learn(context.Background(), "  I want to buy a car ", "Sales")
	require.NoError(t, err)
	assert.True(t, updated)

	require.Len(t, client.updates, 1)
	in := client.updates[0]
	assert.Equal(t, "TalkToAgent", aws.ToString(in.IntentName))
	assert.Equal(t, "Route to a human", aws.ToString(in.Description))
	assert.Same(t, dialogHook, in.DialogCodeHook)
	assert.Same(t, fulfillmentHook, in.FulfillmentCodeHook)
	assert.Equal(t, "dept", aws.ToString(in.SlotPriorities[0].SlotId))
	assert.Equal(t, "ctx", aws.ToString(in.InputContexts[0].Name))
	assert.Equal(t, "intent", aws.ToString(in.IntentId))

	require.Len(t, in.SampleUtterances, 2)
	assert.Equal(t, "I want to buy a car", aws.ToString(in.SampleUtterances[1].Utterance))
}

func TestLearnIsIdempotent(t *testing.T) {
	client := &fakeLex{intent: talkToAgentIntent()}
	learner := NewIntentLearner(client, testLearningConfig, zap.NewNop())
	ctx := context.Background()

	_, err := learner.Learn(ctx, "I want to buy a car", "Sales")
	require.NoError(t, err)

	updated, err := learner.Learn(ctx, "i WANT to buy a car", "Sales")
	require.NoError(t, err)
	assert.False(t, updated)

	updated, err = learner.Learn(ctx, "Talk to an agent", "Sales")
	require.NoError(t, err)
	assert.False(t, updated)

	assert.Len(t, client.updates, 1)
	assert.Len(t, client.intent.SampleUtterances, 2)
}

func TestLearnFailuresWrapSentinel(t *testing.T) {
	remote := errors.New("ConflictException")

	describeFails := NewIntentLearner(&fakeLex{describeErr: remote}, testLearningConfig, zap.NewNop())
	_, err := describeFails.Learn(context.Background(), "hello", "Sales")
	assert.ErrorIs(t, err, ErrSelfLearning)
	assert.ErrorIs(t, err, remote)

	updateFails := NewIntentLearner(&fakeLex{intent: talkToAgentIntent(), updateErr: remote}, testLearningConfig, zap.NewNop())
	_, err = updateFails.Learn(context.Background(), "hello", "Sales")
	assert.ErrorIs(t, err, ErrSelfLearning)
}

func TestLearnRequiresConfiguration(t *testing.T) {
	learner := NewIntentLearner(&fakeLex{}, config.LearningConfig{BotID: "bot"}, zap.NewNop())
	assert.False(t, learner.Enabled())

	_, err := learner.Learn(context.Background(), "hello", "Sales")
	assert.ErrorIs(t, err, ErrSelfLearning)

	updated, err := learner.Learn(context.Background(), "   ", "Sales")
	assert.NoError(t, err)
	assert.False(t, updated)
}
