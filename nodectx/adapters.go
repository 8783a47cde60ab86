package nodectx

import (
	uuid "github.com/satori/go.uuid"

	"github.com/solidusnet/solidus/coretypes"
	"github.com/solidusnet/solidus/rpc"
)

// blockRequester satisfies consensus/engine.BlockRequester by sending a
// getblock request over the named peer's registered stream (spec.md §4.3
// step 2), grounded on rpc/transport.go's Stream.Send.
type blockRequester struct {
	streams *rpc.StreamRegistry
}

func (b *blockRequester) RequestBlock(peerRID string, hash string, index uint64) {
	stream, ok := b.streams.Get(peerRID)
	if !ok {
		nlog.Debug("cannot request block, peer stream not registered", "peer_rid", peerRID, "hash", hash)
		return
	}
	msg, err := rpc.NewRequest(uuid.NewV4().String(), rpc.MethodGetBlock, rpc.GetBlockParams{Hash: hash, Index: &index})
	if err != nil {
		nlog.Error("failed to build getblock request", "err", err)
		return
	}
	if err := stream.Send(msg); err != nil {
		nlog.Warn("failed to send getblock request", "peer_rid", peerRID, "err", err)
	}
}

// broadcaster satisfies pool.Broadcaster by gossiping a newly promoted
// block to every stream currently registered (spec.md §4.5 step 6).
type broadcaster struct {
	streams *rpc.StreamRegistry
}

func (b *broadcaster) BroadcastNewBlock(block coretypes.Block) {
	msg, err := rpc.NewRequest(uuid.NewV4().String(), rpc.MethodNewBlock, rpc.NewBlockParams{Block: block})
	if err != nil {
		nlog.Error("failed to build newblock message", "err", err)
		return
	}
	for _, stream := range b.streams.All() {
		if err := stream.Send(msg); err != nil {
			nlog.Warn("failed to broadcast new block", "peer_rid", stream.PeerRID, "err", err)
		}
	}
}
