package gateway

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/tkivisto/ecugate/pkg/messages"
)

// maxFrameBytes bounds a single newline-delimited frame.
const maxFrameBytes = 1 << 20

// frame is the wire format of one ingested ECU message: a single JSON
// object per line.
type frame struct {
	ID    string            `json:"id"`
	ECUID string            `json:"ecuId"`
	Data  map[string]string `json:"data"`
}

// IngestServer accepts TCP connections carrying newline-delimited JSON
// ECU frames and hands decoded frames to a callback. Malformed frames
// and frames missing ecuId are dropped and counted, never fatal to the
// connection.
type IngestServer struct {
	addr    string
	log     *zap.Logger
	metrics *Metrics
	handle  func(*messages.ECUData)

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool

	wg sync.WaitGroup
}

// NewIngestServer creates a server that will listen on addr and invoke
// handle for every valid frame.
func NewIngestServer(addr string, log *zap.Logger, metrics *Metrics, handle func(*messages.ECUData)) *IngestServer {
	return &IngestServer{
		addr:    addr,
		log:     log,
		metrics: metrics,
		handle:  handle,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Start binds the listener and begins accepting connections. It returns
// once the listener is bound, so callers know the port is open.
func (s *IngestServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return errors.New("gateway: ingest server already stopped")
	}
	s.listener = ln
	s.mu.Unlock()

	s.log.Info("ingest listening", zap.String("addr", ln.Addr().String()))

	s.wg.Add(1)
	go s.acceptLoop(ln)
	return nil
}

// Addr returns the bound listener address, useful when the configured
// port was 0.
func (s *IngestServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every active connection, then waits for
// the connection handlers to return. It is idempotent.
func (s *IngestServer) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.listener != nil {
		s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *IngestServer) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			// Listener closed during Stop, or a transient accept error;
			// either way this loop is done when we are shutting down.
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			s.log.Warn("accept failed", zap.Error(err))
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *IngestServer) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	remote := conn.RemoteAddr().String()
	s.log.Debug("ecu connected", zap.String("remote", remote))

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var f frame
		if err := json.Unmarshal(line, &f); err != nil {
			s.metrics.FramesRejected.Inc()
			s.log.Warn("malformed frame", zap.String("remote", remote), zap.Error(err))
			continue
		}
		if f.ECUID == "" {
			s.metrics.FramesRejected.Inc()
			s.log.Warn("frame missing ecuId", zap.String("remote", remote))
			continue
		}

		s.metrics.FramesReceived.Inc()
		s.handle(messages.NewECUData(f.ID, f.ECUID, f.Data))
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Debug("ecu disconnected", zap.String("remote", remote), zap.Error(err))
	}
}
