// Package ws carries the wire protocol over WebSocket text frames, one
// command or response per frame. Same binding contract as tcpline: the
// first frame naming a mailbox address claims it for the connection.
package ws

import (
	"chat-hall/contract"
	"chat-hall/domain"
	"chat-hall/errors"
	"chat-hall/protocol"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout   = 2 * time.Second
	maxMessageSize = 4096
)

type Server struct {
	log      *slog.Logger
	upgrader websocket.Upgrader
	ingress  chan string

	mu    sync.RWMutex
	conns map[string]*client
}

type client struct {
	conn *websocket.Conn
	// gorilla allows one concurrent writer per connection
	writeMu sync.Mutex
}

var _ contract.Transport = (*Server)(nil)

func NewServer(log *slog.Logger, ingressBuffer int) *Server {
	return &Server{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		ingress: make(chan string, ingressBuffer),
		conns:   make(map[string]*client),
	}
}

// ServeHTTP upgrades the request and pumps frames into the ingress channel.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := &client{conn: conn}
	defer func() {
		s.unbind(c)
		_ = conn.Close()
	}()

	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("WebSocket read failed", "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		line := strings.TrimSpace(string(payload))
		if line == "" {
			continue
		}
		s.bind(replyAddr(line), c)

		select {
		case s.ingress <- line:
		case <-r.Context().Done():
			return
		}
	}
}

func replyAddr(line string) string {
	fields := strings.SplitN(line, "|", 3)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

func (s *Server) bind(addr string, c *client) {
	if addr == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[addr] = c
}

func (s *Server) unbind(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr, bound := range s.conns {
		if bound == c {
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

func (s *Server) TrySend(addr string, resp domain.Response) error {
	s.mu.RLock()
	c, ok := s.conns[addr]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: no connection for %q", errors.ErrMailboxUnavailable, addr)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(protocol.EncodeResponse(resp))); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMailboxUnavailable, err)
	}
	return nil
}
