// Package tcpline carries the wire protocol over newline-framed TCP. A
// client picks its own mailbox address (like the historical per-client
// reply queues); the first line naming an address binds it to the
// connection, and responses for that address are written back on it.
package tcpline

import (
	"bufio"
	"chat-hall/contract"
	"chat-hall/domain"
	"chat-hall/errors"
	"chat-hall/protocol"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

const writeTimeout = 2 * time.Second

type Server struct {
	log      *slog.Logger
	listener net.Listener
	ingress  chan string

	mu    sync.RWMutex
	conns map[string]net.Conn // mailbox addr -> bound connection
}

var _ contract.Transport = (*Server)(nil)

func NewServer(log *slog.Logger, listener net.Listener, ingressBuffer int) *Server {
	return &Server{
		log:      log,
		listener: listener,
		ingress:  make(chan string, ingressBuffer),
		conns:    make(map[string]net.Conn),
	}
}

// Serve accepts connections until the context ends. Each connection gets a
// reader goroutine feeding the shared ingress channel.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn("Accept failed", "error", err)
			continue
		}
		go s.readLoop(ctx, conn)
	}
}

func (s *Server) readLoop(ctx context.Context, conn net.Conn) {
	defer func() {
		s.unbind(conn)
		_ = conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		s.bind(replyAddr(line), conn)

		select {
		case s.ingress <- line:
		case <-ctx.Done():
			return
		}
	}
}

// replyAddr extracts the second pipe-delimited field; empty when absent.
func replyAddr(line string) string {
	fields := strings.SplitN(line, "|", 3)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

func (s *Server) bind(addr string, conn net.Conn) {
	if addr == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[addr] = conn
}

func (s *Server) unbind(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr, bound := range s.conns {
		if bound == conn {
			delete(s.conns, addr)
		}
	}
}

func (s *Server) Receive(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line := <-s.ingress:
		return line, nil
	}
}

// TrySend writes one response line under a short deadline. A gone or
// stalled connection fails fast and reports ErrMailboxUnavailable.
func (s *Server) TrySend(addr string, resp domain.Response) error {
	s.mu.RLock()
	conn, ok := s.conns[addr]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: no connection for %q", errors.ErrMailboxUnavailable, addr)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write([]byte(protocol.EncodeResponse(resp) + "\n")); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMailboxUnavailable, err)
	}
	return nil
}
