package rpc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadMessageRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	msg, err := NewRequest("req-1", MethodGetBlock, GetBlockParams{Hash: "abc"})
	require.NoError(t, err)
	require.NoError(t, w.WriteMessage(msg))

	r := NewReader(&buf)
	got, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "req-1", got.ID)
	assert.Equal(t, MethodGetBlock, got.Method)
	assert.Equal(t, JSONRPCVersion, got.JSONRPC)

	var params GetBlockParams
	require.NoError(t, jsonAPI.Unmarshal(got.Params, &params))
	assert.Equal(t, "abc", params.Hash)
}

func TestReaderHandlesMultipleMessagesOnOneStream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	m1, _ := NewRequest("1", MethodGetBlocks, GetBlocksParams{StartIndex: 0, EndIndex: 10})
	m2, _ := NewRequest("2", MethodDisconnect, DisconnectParams{Reason: "bye"})
	require.NoError(t, w.WriteMessage(m1))
	require.NoError(t, w.WriteMessage(m2))

	r := NewReader(&buf)
	got1, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "1", got1.ID)

	got2, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "2", got2.ID)
}

func TestConfirmedSuffix(t *testing.T) {
	assert.Equal(t, "blockresponse_confirmed", ConfirmedSuffix(MethodBlockResponse))
}

func TestPendingTableAwaitThenResolve(t *testing.T) {
	pt := NewPendingTable()
	ch := pt.Await(MethodGetBlock, "req-1")

	resp, _ := NewResult("req-1", BlockResponseResult{})
	ok := pt.Resolve(MethodGetBlock, "req-1", resp)
	assert.True(t, ok)

	got := <-ch
	assert.Equal(t, "req-1", got.ID)
	assert.Equal(t, 0, pt.Len())
}

func TestPendingTableResolveWithoutWaiterReturnsFalse(t *testing.T) {
	pt := NewPendingTable()
	resp, _ := NewResult("unknown", BlockResponseResult{})
	assert.False(t, pt.Resolve(MethodGetBlock, "unknown", resp))
}

func TestPendingTableCancelAllClosesChannels(t *testing.T) {
	pt := NewPendingTable()
	ch1 := pt.Await(MethodGetBlock, "a")
	ch2 := pt.Await(MethodGetBlocks, "b")

	pt.CancelAll()

	_, open1 := <-ch1
	_, open2 := <-ch2
	assert.False(t, open1)
	assert.False(t, open2)
	assert.Equal(t, 0, pt.Len())
}

func TestRetryTableConfirmRemovesEntry(t *testing.T) {
	rt := NewRetryTable()
	msg, _ := NewRequest("1", MethodNewBlock, NewBlockParams{})
	rt.Record("peer-1", MethodNewBlock, "hash-a", msg, 100)
	assert.Equal(t, 1, rt.Len())

	rt.Confirm("peer-1", MethodNewBlock, "hash-a")
	assert.Equal(t, 0, rt.Len())
}

func TestRetryTableDueForResendRespectsCapAndCutoff(t *testing.T) {
	rt := NewRetryTable()
	msg, _ := NewRequest("1", MethodNewBlock, NewBlockParams{})
	rt.Record("peer-1", MethodNewBlock, "hash-a", msg, 100)

	// Not yet due: cutoff before sentAt.
	due := rt.DueForResend(50, 3)
	assert.Empty(t, due)

	due = rt.DueForResend(200, 3)
	require.Len(t, due, 1)
}

func TestRetryTablePurgePeerRemovesOnlyThatPeer(t *testing.T) {
	rt := NewRetryTable()
	msg, _ := NewRequest("1", MethodNewBlock, NewBlockParams{})
	rt.Record("peer-1", MethodNewBlock, "hash-a", msg, 100)
	rt.Record("peer-2", MethodNewBlock, "hash-b", msg, 100)

	rt.PurgePeer("peer-1")
	assert.Equal(t, 1, rt.Len())
}
