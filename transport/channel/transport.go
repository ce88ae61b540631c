// Package channel is the in-process transport: every mailbox is a buffered
// Go channel keyed by address. It is the canonical transport for tests and
// for embedding the broker inside another process.
package channel

import (
	"chat-hall/contract"
	"chat-hall/domain"
	"chat-hall/errors"
	"context"
	"fmt"
	"sync"
)

type Transport struct {
	mu        sync.RWMutex
	mailboxes map[string]chan domain.Response
	ingress   chan string
	buffer    int
}

var _ contract.Transport = (*Transport)(nil)

// DefaultBuffer is the per-mailbox capacity used when none is given.
const DefaultBuffer = 32

func NewTransport(buffer int) *Transport {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Transport{
		mailboxes: make(map[string]chan domain.Response),
		ingress:   make(chan string, buffer),
		buffer:    buffer,
	}
}

// Open creates the mailbox for addr and returns its receive side. Opening
// an existing address replaces the old mailbox, matching a client process
// recreating its reply queue.
func (t *Transport) Open(addr string) <-chan domain.Response {
	t.mu.Lock()
	defer t.mu.Unlock()

	mailbox := make(chan domain.Response, t.buffer)
	t.mailboxes[addr] = mailbox
	return mailbox
}

// Close removes a mailbox; pending messages are dropped with it.
func (t *Transport) Close(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.mailboxes, addr)
}

// Submit feeds one raw command line into the broker ingress.
func (t *Transport) Submit(line string) {
	t.ingress <- line
}

// Receive blocks for the next command line or context cancellation.
func (t *Transport) Receive(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line := <-t.ingress:
		return line, nil
	}
}

// TrySend delivers without blocking. A missing or full mailbox fails
// immediately so a dead peer can never stall the sender.
func (t *Transport) TrySend(addr string, resp domain.Response) error {
	t.mu.RLock()
	mailbox, ok := t.mailboxes[addr]
	t.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: no mailbox %q", errors.ErrMailboxUnavailable, addr)
	}
	select {
	case mailbox <- resp:
		return nil
	default:
		return fmt.Errorf("%w: mailbox %q is full", errors.ErrMailboxUnavailable, addr)
	}
}
