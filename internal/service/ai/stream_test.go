package ai

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkEvent(text string) types.ResponseStream {
	return &types.ResponseStreamMemberChunk{Value: types.PayloadPart{Bytes: []byte(text)}}
}

func TestPumpEventsForwardsChunksInOrder(t *testing.T) {
	events := make(chan types.ResponseStream, 3)
	events <- chunkEvent("Hello ")
	events <- chunkEvent("there")
	close(events)

	sr, sw := schema.Pipe[string](4)
	go pumpEvents(context.Background(), events, func() error { return nil }, sw)
	defer sr.Close()

	var got []string
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, chunk)
	}
	assert.Equal(t, []string{"Hello ", "there"}, got)
}

func TestPumpEventsReportsStreamError(t *testing.T) {
	events := make(chan types.ResponseStream)
	close(events)

	sr, sw := schema.Pipe[string](1)
	go pumpEvents(context.Background(), events, func() error { return errors.New("decode failure") }, sw)
	defer sr.Close()

	_, err := sr.Recv()
	assert.ErrorContains(t, err, "decode failure")
}

func TestPumpEventsStopsWhenReaderCloses(t *testing.T) {
	events := make(chan types.ResponseStream, 8)
	for i := 0; i < 8; i++ {
		events <- chunkEvent("x")
	}
	close(events)

	sr, sw := schema.Pipe[string](0)
	done := make(chan struct{})
	go func() {
		pumpEvents(context.Background(), events, func() error { return nil }, sw)
		close(done)
	}()

	_, err := sr.Recv()
	require.NoError(t, err)
	sr.Close()
	<-done
}

func TestPumpEventsStopsWhenContextEnds(t *testing.T) {
	events := make(chan types.ResponseStream)
	ctx, cancel := context.WithCancel(context.Background())

	sr, sw := schema.Pipe[string](1)
	done := make(chan struct{})
	go func() {
		pumpEvents(ctx, events, func() error { return nil }, sw)
		close(done)
	}()
	defer sr.Close()

	cancel()
	<-done

	_, err := sr.Recv()
	assert.ErrorIs(t, err, context.Canceled)
}
