// Package rpc is the node-to-node transport of spec.md §4.7: length-delimited
// JSON-RPC messages over TCP, per-stream pending-request bookkeeping, and
// an at-least-once retry table for protocol versions beyond 1. Grounded on
// node/sc/bridgepeer.go's per-connection read/write goroutine shape, adapted
// from RLP-over-devp2p framing to newline-delimited JSON framing since
// spec.md mandates JSON on the wire.
package rpc

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONRPCVersion is the fixed protocol tag every message carries (spec.md
// §4.7: "jsonrpc=2.0").
const JSONRPCVersion = "2.0"

// Method names for the RPC surface of spec.md §6.
const (
	MethodConnect        = "connect"
	MethodChallenge      = "challenge"
	MethodAuthenticate   = "authenticate"
	MethodCapacity       = "capacity"
	MethodGetBlocks      = "getblocks"
	MethodBlocksResponse = "blocksresponse"
	MethodGetBlock       = "getblock"
	MethodBlockResponse  = "blockresponse"
	MethodNewBlock       = "newblock"
	MethodNewTxn         = "newtxn"
	MethodDisconnect     = "disconnect"
)

// ConfirmedSuffix turns a base method name into its ack counterpart used by
// the retry table (spec.md §4.7: "*_confirmed").
func ConfirmedSuffix(method string) string { return method + "_confirmed" }

// Message is the single wire envelope every RPC exchange uses (spec.md
// §4.7: "Every message has {id, method, jsonrpc=2.0, params|result}").
type Message struct {
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	JSONRPC string          `json:"jsonrpc"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// IsResult reports whether m carries a result payload rather than a request.
func (m Message) IsResult() bool { return len(m.Result) > 0 }

// NewRequest builds a request-shaped message with params marshaled from v.
func NewRequest(id, method string, v interface{}) (Message, error) {
	raw, err := jsonAPI.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{ID: id, Method: method, JSONRPC: JSONRPCVersion, Params: raw}, nil
}

// NewResult builds a result-shaped message answering a request id.
func NewResult(id string, v interface{}) (Message, error) {
	raw, err := jsonAPI.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{ID: id, JSONRPC: JSONRPCVersion, Result: raw}, nil
}

// ErrOversizedMessage guards against unbounded allocation from a malicious
// or corrupt peer sending an enormous line before any newline.
var ErrOversizedMessage = errors.New("rpc: message exceeds maximum line size")

// MaxMessageBytes bounds a single length-delimited message.
const MaxMessageBytes = 16 << 20 // 16 MiB; generous for a blocksresponse batch.

// Reader reads newline-delimited JSON messages off a stream (spec.md §4.7:
// "Length-delimited JSON messages, one per newline, over TCP").
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r for message-at-a-time reading.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 4096)}
}

// ReadMessage reads and decodes the next newline-delimited message.
func (r *Reader) ReadMessage() (Message, error) {
	var line []byte
	for {
		chunk, err := r.br.ReadSlice('\n')
		if len(line)+len(chunk) > MaxMessageBytes {
			return Message{}, ErrOversizedMessage
		}
		line = append(line, chunk...)
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil && len(line) == 0 {
			return Message{}, err
		}
		break
	}
	var m Message
	if err := jsonAPI.Unmarshal(line, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Writer writes newline-delimited JSON messages to a stream.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w for message-at-a-time writing.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteMessage encodes and writes m, terminated by a newline.
func (w *Writer) WriteMessage(m Message) error {
	raw, err := jsonAPI.Marshal(m)
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	_, err = w.w.Write(raw)
	return err
}
