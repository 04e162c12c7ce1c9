package network

import (
	"context"
	"sync"

	"golang.org/x/xerrors"
)

// ErrClosed is returned when using a closed connector.
var ErrClosed = xerrors.New("connector closed")

// Connector is one direction-pair of a link to a single peer.
type Connector interface {
	// Peer returns the id of the trustee at the other end.
	Peer() int
	// Send queues msg for the peer. It doesn't wait for the peer to read it.
	Send(ctx context.Context, msg []byte) error
	// Receive blocks until the next message of the peer arrives or ctx is
	// done.
	Receive(ctx context.Context) ([]byte, error)
	// Close stops the connector. Pending messages can still be received.
	Close() error
}

// LocalConnector is an unbounded in-process mailbox. Two of them are
// connected to form a link.
type LocalConnector struct {
	peer   int
	remote *LocalConnector

	mu     sync.Mutex
	queue  [][]byte
	closed bool
	notify chan struct{}
}

// NewLocalConnector returns an unconnected mailbox for messages of peer.
func NewLocalConnector(peer int) *LocalConnector {
	return &LocalConnector{peer: peer, notify: make(chan struct{}, 1)}
}

// Connect sets the mailbox of the other end of the link.
func (c *LocalConnector) Connect(remote *LocalConnector) {
	c.remote = remote
}

// Peer implements Connector.
func (c *LocalConnector) Peer() int {
	return c.peer
}

// Send implements Connector.
func (c *LocalConnector) Send(ctx context.Context, msg []byte) error {
	if c.remote == nil {
		return xerrors.Errorf("connector to %d is not connected", c.peer)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.remote.deliver(append([]byte{}, msg...))
}

// Receive implements Connector.
func (c *LocalConnector) Receive(ctx context.Context) ([]byte, error) {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			msg := c.queue[0]
			c.queue[0] = nil
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return msg, nil
		}
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return nil, ErrClosed
		}

		select {
		case <-c.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Pending returns the number of queued messages.
func (c *LocalConnector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Close implements Connector. It closes both ends of the link.
func (c *LocalConnector) Close() error {
	c.close()
	if c.remote != nil {
		c.remote.close()
	}
	return nil
}

func (c *LocalConnector) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.signal()
}

func (c *LocalConnector) deliver(msg []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.queue = append(c.queue, msg)
	c.mu.Unlock()
	c.signal()
	return nil
}

func (c *LocalConnector) signal() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// LocalMesh connects every pair of the given trustee ids. The result maps a
// trustee id to its connectors, one per other trustee.
func LocalMesh(ids []int) map[int][]Connector {
	boxes := make(map[int]map[int]*LocalConnector, len(ids))
	for _, self := range ids {
		boxes[self] = make(map[int]*LocalConnector)
		for _, other := range ids {
			if other != self {
				boxes[self][other] = NewLocalConnector(other)
			}
		}
	}
	mesh := make(map[int][]Connector, len(ids))
	for _, self := range ids {
		for _, other := range ids {
			if other == self {
				continue
			}
			boxes[self][other].Connect(boxes[other][self])
			mesh[self] = append(mesh[self], boxes[self][other])
		}
	}
	return mesh
}
