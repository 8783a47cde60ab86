package eventbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidusnet/solidus/coretypes"
)

type fakeSink struct {
	topics []string
	events []interface{}
	err    error
	closed bool
}

func (f *fakeSink) Publish(topic string, event interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.events = append(f.events, event)
	return nil
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}

func TestPublishBlockUsesBlocksTopic(t *testing.T) {
	sink := &fakeSink{}
	bus := New(sink)

	bus.PublishBlock(coretypes.Block{Hash: "abc"})

	require.Len(t, sink.topics, 1)
	assert.Equal(t, TopicBlocks, sink.topics[0])
	evt, ok := sink.events[0].(BlockEvent)
	require.True(t, ok)
	assert.Equal(t, "abc", evt.Block.Hash)
}

func TestPublishShareUsesSharesTopicAndKey(t *testing.T) {
	sink := &fakeSink{}
	bus := New(sink)

	bus.PublishShare(ShareEvent{Address: "addr-1", JobID: "job-1", Hash: "h", Diff: 2})

	require.Len(t, sink.topics, 1)
	assert.Equal(t, TopicShares, sink.topics[0])
	evt, ok := sink.events[0].(ShareEvent)
	require.True(t, ok)
	assert.Equal(t, "addr-1", evt.Key())
}

func TestPublishSwallowsSinkErrors(t *testing.T) {
	sink := &fakeSink{err: errors.New("broker down")}
	bus := New(sink)

	assert.NotPanics(t, func() {
		bus.PublishBlock(coretypes.Block{Hash: "x"})
	})
}

func TestNewWithNilSinkUsesNilSink(t *testing.T) {
	bus := New(nil)
	assert.NotPanics(t, func() {
		bus.PublishBlock(coretypes.Block{})
		bus.PublishShare(ShareEvent{})
	})
	assert.NoError(t, bus.Close())
}

func TestCloseDelegatesToSink(t *testing.T) {
	sink := &fakeSink{}
	bus := New(sink)
	require.NoError(t, bus.Close())
	assert.True(t, sink.closed)
}
