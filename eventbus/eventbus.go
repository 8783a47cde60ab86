// Package eventbus is the node's optional fan-out to an external consumer:
// accepted blocks and pool shares get published to a topic so something
// outside the node (an explorer, a payout worker, a metrics pipeline) can
// react without polling RPC. Grounded on
// datasync/chaindatafetcher/event/kafka/kafka.go's KafkaBroker, generalized
// from a chain-indexer-specific broker (InsertTransactions/InsertContracts/
// ...) down to the two event kinds this node actually produces.
package eventbus

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/solidusnet/solidus/coretypes"
	"github.com/solidusnet/solidus/log"
)

var (
	elog = log.NewModuleLogger("eventbus")
	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

// Topic names events are published under.
const (
	TopicBlocks = "blocks"
	TopicShares = "shares"
)

// BlockEvent is published whenever the consensus engine accepts a new tip.
type BlockEvent struct {
	Block coretypes.Block `json:"block"`
}

// ShareEvent is published whenever the mining pool records an accepted
// share, grounded on the pool package's ShareResult.
type ShareEvent struct {
	Address string  `json:"address"`
	JobID   string  `json:"job_id"`
	Hash    string  `json:"hash"`
	Diff    float64 `json:"diff"`
}

// Key lets a ShareEvent (or any event) override the default topic-name
// partition key, mirroring chaindatafetcher/common.IKey.
type Key interface {
	Key() string
}

func (e ShareEvent) Key() string { return e.Address }

// Sink publishes an arbitrary event payload to a named topic.
type Sink interface {
	Publish(topic string, event interface{}) error
	Close() error
}

// NilSink discards every event; New uses this when given a nil sink, so a
// node run without eventbus configuration pays no cost (spec.md scopes any
// external consumer of this stream out of core, so publication defaults
// off).
type NilSink struct{}

func (NilSink) Publish(string, interface{}) error { return nil }
func (NilSink) Close() error                      { return nil }

// Bus is the node-facing handle: PublishBlock/PublishShare wrap Sink.Publish
// with the fixed topic names and swallow sink errors into a log line rather
// than propagating them, since a downed event consumer must never stall
// block acceptance or share processing.
type Bus struct {
	sink Sink
}

// New wraps sink as a Bus. Passing nil uses NilSink.
func New(sink Sink) *Bus {
	if sink == nil {
		sink = NilSink{}
	}
	return &Bus{sink: sink}
}

// PublishBlock emits a BlockEvent, logging (not returning) any sink error.
func (b *Bus) PublishBlock(blk coretypes.Block) {
	if err := b.sink.Publish(TopicBlocks, BlockEvent{Block: blk}); err != nil {
		elog.Warn("failed to publish block event", "hash", blk.Hash, "err", err)
	}
}

// PublishShare emits a ShareEvent, logging (not returning) any sink error.
func (b *Bus) PublishShare(evt ShareEvent) {
	if err := b.sink.Publish(TopicShares, evt); err != nil {
		elog.Warn("failed to publish share event", "address", evt.Address, "err", err)
	}
}

// Close releases the underlying sink's resources (e.g. the Kafka producer).
func (b *Bus) Close() error {
	return b.sink.Close()
}
