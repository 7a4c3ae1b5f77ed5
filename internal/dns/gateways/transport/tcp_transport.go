package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/haukened/lbdns/internal/dns/common/log"
	"github.com/haukened/lbdns/internal/dns/common/metrics"
	"github.com/haukened/lbdns/internal/dns/domain"
	"github.com/haukened/lbdns/internal/dns/services/responder"
)

// frameSlack is how many bytes past the declared length one read may return;
// any of them arriving means the client sent more than it declared.
const frameSlack = 512

// TCPTransport implements ServerTransport for DNS over TCP. Every connection
// carries exactly one length-prefixed request and its reply.
type TCPTransport struct {
	addr        string
	listener    net.Listener
	x           *exchange
	workers     *workerPool
	logger      log.Logger
	readTimeout time.Duration

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
}

// NewTCPTransport creates a new TCP transport instance.
func NewTCPTransport(opts Options) *TCPTransport {
	opts = opts.withDefaults()
	logger := opts.Logger.With(map[string]any{"transport": string(TransportTCP)})
	return &TCPTransport{
		addr: opts.Addr,
		x: &exchange{
			transport: string(TransportTCP),
			codec:     opts.Codec,
			refresher: opts.Refresher,
			logger:    logger,
		},
		workers:     newWorkerPool(opts.Workers, string(TransportTCP), logger),
		logger:      logger,
		readTimeout: opts.ReadTimeout,
	}
}

// Start binds the TCP listener and starts accepting connections.
func (t *TCPTransport) Start(ctx context.Context, handler responder.DNSResponder) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("TCP transport already running")
	}

	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to bind TCP listener on %s: %w", t.addr, err)
	}

	t.listener = ln
	t.running = true
	t.stopCh = make(chan struct{})

	t.logger.Info(map[string]any{
		"address": ln.Addr().String(),
	}, "DNS transport started")

	go t.acceptLoop(ctx, ln, handler)
	go t.stopOnCancel(ctx, t.stopCh)

	return nil
}

func (t *TCPTransport) stopOnCancel(ctx context.Context, stopCh chan struct{}) {
	select {
	case <-ctx.Done():
		_ = t.Stop()
	case <-stopCh:
	}
}

// Stop closes the listener. Connections already accepted finish on their own.
func (t *TCPTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}

	close(t.stopCh)
	t.running = false

	var closeErr error
	if t.listener != nil {
		closeErr = t.listener.Close()
		if closeErr != nil {
			t.logger.Warn(map[string]any{
				"error": closeErr.Error(),
			}, "Error closing TCP listener")
		}
	}

	t.logger.Info(map[string]any{
		"address": t.addr,
	}, "DNS transport stopped")

	return closeErr
}

// Address returns the network address the transport is bound to.
func (t *TCPTransport) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.listener != nil {
		return t.listener.Addr().String()
	}
	return t.addr
}

func (t *TCPTransport) isRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

func (t *TCPTransport) acceptLoop(ctx context.Context, ln net.Listener, handler responder.DNSResponder) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !t.isRunning() || errors.Is(err, net.ErrClosed) {
				return
			}
			t.logger.Warn(map[string]any{
				"error": err.Error(),
			}, "Failed to accept TCP connection")
			continue
		}

		if err := t.workers.Go(ctx, func() {
			t.handleConn(ctx, conn, handler)
		}); err != nil {
			_ = conn.Close()
			t.logger.Debug(nil, "TCP transport stopping due to context cancellation")
			return
		}
	}
}

// handleConn serves the single request carried by conn.
func (t *TCPTransport) handleConn(ctx context.Context, conn net.Conn, handler responder.DNSResponder) {
	defer conn.Close()
	client := conn.RemoteAddr()

	_ = conn.SetReadDeadline(time.Now().Add(t.readTimeout))
	payload, err := readFrame(conn)
	if err != nil {
		t.x.drop(client, metrics.ReasonFraming, err)
		return
	}

	s, ok := t.x.prepare(ctx, payload, client, handler)
	if !ok {
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(t.readTimeout))
	if err := writeFrame(conn, s.reply); err != nil {
		t.x.drop(client, metrics.ReasonWrite, err)
		return
	}
	t.x.sent(s, client)
}

// readFrame reads a 2-byte big-endian length and then exactly that many
// bytes. Ending early is a framing error, and so is receiving bytes beyond
// the declared length together with the frame.
func readFrame(r io.Reader) ([]byte, error) {
	var prefix [2]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("%w: length prefix: %v", domain.ErrFraming, err)
	}
	want := int(binary.BigEndian.Uint16(prefix[:]))
	if want == 0 {
		return nil, fmt.Errorf("%w: zero length", domain.ErrFraming)
	}

	buf := make([]byte, want+frameSlack)
	got := 0
	for got < want {
		n, err := r.Read(buf[got:])
		got += n
		if got > want {
			return nil, fmt.Errorf("%w: declared %d bytes, received at least %d", domain.ErrFraming, want, got)
		}
		if err != nil {
			if got == want && errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: declared %d bytes, received %d: %v", domain.ErrFraming, want, got, err)
		}
	}
	return buf[:want], nil
}

// writeFrame writes msg preceded by its 2-byte length in a single write.
func writeFrame(w io.Writer, msg []byte) error {
	if len(msg) > 0xFFFF {
		return fmt.Errorf("reply of %d bytes exceeds TCP frame size", len(msg))
	}
	frame := make([]byte, 2+len(msg))
	binary.BigEndian.PutUint16(frame, uint16(len(msg)))
	copy(frame[2:], msg)
	_, err := w.Write(frame)
	return err
}

var _ ServerTransport = (*TCPTransport)(nil)
