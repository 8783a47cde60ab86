package rpc

import "github.com/solidusnet/solidus/coretypes"

// Payload shapes for every RPC method of spec.md §6. Field names match the
// wire vocabulary spec.md itself uses.

// ConnectParams introduces a peer, its role, and its protocol version
// (spec.md §4.6 step 1, §6 "connect").
type ConnectParams struct {
	Peer            coretypes.Peer `json:"peer"`
	ProtocolVersion int            `json:"protocol_version"`
}

// ChallengeResult issues the auth nonce a connecting peer must sign (spec.md
// §4.6 step 2).
type ChallengeResult struct {
	Token string `json:"token"`
}

// AuthenticateParams is the signed-challenge reply (spec.md §4.6 step 3).
// Params is used when protocol_version == 1; AuthenticateParamsV2 supersedes
// it when protocol_version > 1 ("uses params form of authenticate").
type AuthenticateParams struct {
	SignedChallenge string `json:"signed_challenge"`
}

// AuthenticateParamsV2 adds the responder's own challenge so both sides
// authenticate in a single round trip under protocol_version > 1.
type AuthenticateParamsV2 struct {
	SignedChallenge string `json:"signed_challenge"`
	Token           string `json:"token"`
}

// CapacityResult tells a refused peer why (spec.md §6 "capacity").
type CapacityResult struct {
	Reason string `json:"reason"`
}

// GetBlocksParams requests a bulk, capped range pull (spec.md §6 "getblocks").
type GetBlocksParams struct {
	StartIndex uint64 `json:"start_index"`
	EndIndex   uint64 `json:"end_index"`
}

// BlocksResponseResult answers GetBlocksParams, capped at
// chainparams.MaxBlocksPerMessage.
type BlocksResponseResult struct {
	Blocks     []coretypes.Block `json:"blocks"`
	StartIndex uint64            `json:"start_index"`
}

// GetBlockParams requests a single block, by hash or index (spec.md §6
// "getblock {hash|index}").
type GetBlockParams struct {
	Hash  string  `json:"hash,omitempty"`
	Index *uint64 `json:"index,omitempty"`
}

// BlockResponseResult answers GetBlockParams.
type BlockResponseResult struct {
	Block coretypes.Block `json:"block"`
}

// NewBlockParams gossips a newly accepted tip (spec.md §6 "newblock").
type NewBlockParams struct {
	Block coretypes.Block `json:"block"`
}

// NewTxnParams gossips a mempool admission (spec.md §6 "newtxn").
type NewTxnParams struct {
	Transaction coretypes.Transaction `json:"transaction"`
}

// DisconnectParams is a polite close notice (spec.md §6 "disconnect").
type DisconnectParams struct {
	Reason string `json:"reason,omitempty"`
}

// ConfirmedResult acks a retried send so the sender's retry table entry can
// be cleared (spec.md §4.7, §6 "*_confirmed").
type ConfirmedResult struct {
	Discriminator string `json:"discriminator"`
}
