package rpc

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/solidusnet/solidus/log"
)

var rlog = log.NewModuleLogger("rpc")

// TLSConfig is spec.md §6's optional TLS block: `{certfile, keyfile, cafile, port}`.
type TLSConfig struct {
	CertFile string
	KeyFile  string
	CAFile   string
	Port     int
}

// BuildServerTLSConfig loads a server-side tls.Config from a TLSConfig,
// including the optional CA for client-cert verification.
func BuildServerTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("rpc: load tls keypair: %w", err)
	}
	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}}
	if cfg.CAFile != "" {
		pool, err := loadCAPool(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		tlsCfg.ClientCAs = pool
		tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return tlsCfg, nil
}

// BuildClientTLSConfig loads a client-side tls.Config. When cfg.CAFile is
// set it becomes the only trusted root pool (the system roots are not
// added); otherwise the system root pool is used.
func BuildClientTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{}
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("rpc: load tls keypair: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	if cfg.CAFile != "" {
		pool, err := loadCAPool(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}

func loadCAPool(path string) (*x509.CertPool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rpc: read ca file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(raw) {
		return nil, fmt.Errorf("rpc: no certificates found in %s", path)
	}
	return pool, nil
}

// Stream wraps one peer connection: framed read/write plus the per-stream
// pending-request table and last-activity timestamp the health checker
// reads (spec.md §4.7, §5 "per-stream last_activity, removal after 600 s
// idle").
type Stream struct {
	conn    net.Conn
	reader  *Reader
	writer  *Writer
	pending *PendingTable

	PeerRID         string
	ProtocolVersion int
	LastActivity    int64
}

// NewStream wraps a net.Conn (plain or TLS) as a framed RPC stream.
func NewStream(conn net.Conn, peerRID string) *Stream {
	return &Stream{
		conn:         conn,
		reader:       NewReader(conn),
		writer:       NewWriter(conn),
		pending:      NewPendingTable(),
		PeerRID:      peerRID,
		LastActivity: time.Now().Unix(),
	}
}

// Send writes a message and touches LastActivity.
func (s *Stream) Send(m Message) error {
	s.LastActivity = time.Now().Unix()
	return s.writer.WriteMessage(m)
}

// Receive blocks for the next message and touches LastActivity.
func (s *Stream) Receive() (Message, error) {
	m, err := s.reader.ReadMessage()
	if err != nil {
		return Message{}, err
	}
	s.LastActivity = time.Now().Unix()
	return m, nil
}

// Pending exposes this stream's pending-request table.
func (s *Stream) Pending() *PendingTable { return s.pending }

// IdleSince reports how many seconds have elapsed since LastActivity.
func (s *Stream) IdleSince(now int64) int64 { return now - s.LastActivity }

// Close cancels every in-flight RPC on this stream and closes the
// underlying connection (spec.md §5: "Closing a stream cancels all
// in-flight RPCs for that stream and purges its entries from pending
// tables").
func (s *Stream) Close() error {
	s.pending.CancelAll()
	rlog.Debug("stream closed", "peer_rid", s.PeerRID)
	return s.conn.Close()
}
