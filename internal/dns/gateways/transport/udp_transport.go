package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/haukened/lbdns/internal/dns/common/log"
	"github.com/haukened/lbdns/internal/dns/common/metrics"
	"github.com/haukened/lbdns/internal/dns/services/responder"
)

// maxUDPMessage is large enough for any query, including EDNS ones.
const maxUDPMessage = 4096

// UDPTransport implements ServerTransport for standard DNS over UDP (RFC 1035).
// It handles UDP socket management, packet reception/transmission, and wire format
// conversion while delegating DNS logic to the service layer.
type UDPTransport struct {
	addr    string
	conn    *net.UDPConn
	x       *exchange
	workers *workerPool
	logger  log.Logger

	// Synchronization for graceful shutdown
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
}

// NewUDPTransport creates a new UDP transport instance.
func NewUDPTransport(opts Options) *UDPTransport {
	opts = opts.withDefaults()
	logger := opts.Logger.With(map[string]any{"transport": string(TransportUDP)})
	return &UDPTransport{
		addr: opts.Addr,
		x: &exchange{
			transport: string(TransportUDP),
			codec:     opts.Codec,
			refresher: opts.Refresher,
			logger:    logger,
		},
		workers: newWorkerPool(opts.Workers, string(TransportUDP), logger),
		logger:  logger,
	}
}

// Start begins listening for UDP DNS queries on the configured address.
// It binds to the UDP socket and starts the packet handling loop.
func (t *UDPTransport) Start(ctx context.Context, handler responder.DNSResponder) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("UDP transport already running")
	}

	udpAddr, err := net.ResolveUDPAddr("udp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address %s: %w", t.addr, err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("failed to bind UDP socket on %s: %w", t.addr, err)
	}

	t.conn = conn
	t.running = true
	t.stopCh = make(chan struct{})

	t.logger.Info(map[string]any{
		"address": conn.LocalAddr().String(),
	}, "DNS transport started")

	go t.listenLoop(ctx, conn, handler)
	go t.stopOnCancel(ctx, t.stopCh)

	return nil
}

// stopOnCancel closes the socket when ctx ends so the blocked read returns.
func (t *UDPTransport) stopOnCancel(ctx context.Context, stopCh chan struct{}) {
	select {
	case <-ctx.Done():
		_ = t.Stop()
	case <-stopCh:
	}
}

// Stop gracefully shuts down the UDP transport.
func (t *UDPTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}

	close(t.stopCh)
	t.running = false

	var closeErr error
	if t.conn != nil {
		closeErr = t.conn.Close()
		if closeErr != nil {
			t.logger.Warn(map[string]any{
				"error": closeErr.Error(),
			}, "Error closing UDP connection")
		}
	}

	t.logger.Info(map[string]any{
		"address": t.addr,
	}, "DNS transport stopped")

	return closeErr
}

// Address returns the network address the transport is bound to.
func (t *UDPTransport) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.conn != nil {
		return t.conn.LocalAddr().String()
	}
	return t.addr
}

func (t *UDPTransport) isRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// listenLoop reads datagrams until the socket is closed. Each datagram is
// handed to a worker; when all workers are busy the loop waits.
func (t *UDPTransport) listenLoop(ctx context.Context, conn *net.UDPConn, handler responder.DNSResponder) {
	buffer := make([]byte, maxUDPMessage)

	for {
		n, clientAddr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if !t.isRunning() || errors.Is(err, net.ErrClosed) {
				return // Normal shutdown
			}
			t.logger.Warn(map[string]any{
				"error": err.Error(),
			}, "Failed to read UDP packet")
			continue
		}

		packet := make([]byte, n)
		copy(packet, buffer[:n])
		if err := t.workers.Go(ctx, func() {
			t.handlePacket(ctx, conn, packet, clientAddr, handler)
		}); err != nil {
			t.logger.Debug(nil, "UDP transport stopping due to context cancellation")
			return
		}
	}
}

// handlePacket processes a single UDP DNS packet.
func (t *UDPTransport) handlePacket(ctx context.Context, conn *net.UDPConn, data []byte, clientAddr *net.UDPAddr, handler responder.DNSResponder) {
	s, ok := t.x.prepare(ctx, data, clientAddr, handler)
	if !ok {
		return
	}

	if _, err := conn.WriteToUDP(s.reply, clientAddr); err != nil {
		t.x.drop(clientAddr, metrics.ReasonWrite, err)
		return
	}
	t.x.sent(s, clientAddr)
}

var _ ServerTransport = (*UDPTransport)(nil)
