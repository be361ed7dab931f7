package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChatModel struct {
	got   []*schema.Message
	reply string
	err   error
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.got = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(f.reply, nil)}), nil
}

func TestArkGeneratorSendsQueryAsUserMessage(t *testing.T) {
	chatModel := &fakeChatModel{reply: " Our branches open at 9am. "}
	gen, err := NewArkGenerator(context.Background(), chatModel, 0, zap.NewNop())
	require.NoError(t, err)

	reply, err := gen.Generate(context.Background(), `What time do you open? {"braces": true}`)
	require.NoError(t, err)
	assert.Equal(t, "Our branches open at 9am.", reply)

	require.Len(t, chatModel.got, 1)
	assert.Equal(t, schema.User, chatModel.got[0].Role)
	assert.Equal(t, `What time do you open? {"braces": true}`, chatModel.got[0].Content)
}

func TestArkGeneratorWrapsErrors(t *testing.T) {
	gen, err := NewArkGenerator(context.Background(), &fakeChatModel{err: errors.New("quota")}, 0, zap.NewNop())
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "hi")
	assert.ErrorContains(t, err, "quota")
}
