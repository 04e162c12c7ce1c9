package network

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

// MaxPacketSize is the largest message accepted from a stream.
const MaxPacketSize = 1 << 24

// StreamConnector is a connector over a stream connection such as TCP.
// Every message is prefixed by its length as a big-endian uint32. Received
// messages are queued by a background reader, so Receive honours contexts.
type StreamConnector struct {
	peer  int
	conn  net.Conn
	inbox *LocalConnector

	sendMu  sync.Mutex
	closing int32
	done    chan struct{}
	err     error
}

// NewStreamConnector starts reading from conn. Messages received on conn
// are attributed to peer.
func NewStreamConnector(peer int, conn net.Conn) *StreamConnector {
	c := &StreamConnector{
		peer:  peer,
		conn:  conn,
		inbox: NewLocalConnector(peer),
		done:  make(chan struct{}),
	}
	go c.read()
	return c
}

// Peer implements Connector.
func (c *StreamConnector) Peer() int {
	return c.peer
}

// Send implements Connector.
func (c *StreamConnector) Send(ctx context.Context, msg []byte) error {
	if len(msg) > MaxPacketSize {
		return xerrors.Errorf("message of %d bytes is too big", len(msg))
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(msg)))
	if _, err := c.conn.Write(size[:]); err != nil {
		return xerrors.Errorf("writing size: %v", err)
	}
	if _, err := c.conn.Write(msg); err != nil {
		return xerrors.Errorf("writing message: %v", err)
	}
	return nil
}

// Receive implements Connector.
func (c *StreamConnector) Receive(ctx context.Context) ([]byte, error) {
	msg, err := c.inbox.Receive(ctx)
	if xerrors.Is(err, ErrClosed) {
		<-c.done
		if c.err != nil {
			return nil, xerrors.Errorf("stream of %d: %v: %w", c.peer, c.err, ErrClosed)
		}
	}
	return msg, err
}

// Close implements Connector. It waits for the reader to stop.
func (c *StreamConnector) Close() error {
	atomic.StoreInt32(&c.closing, 1)
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *StreamConnector) read() {
	defer close(c.done)
	defer c.inbox.close()
	var size [4]byte
	for {
		if _, err := io.ReadFull(c.conn, size[:]); err != nil {
			c.setErr(err)
			return
		}
		n := binary.BigEndian.Uint32(size[:])
		if n > MaxPacketSize {
			c.setErr(xerrors.Errorf("announced %d bytes", n))
			return
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(c.conn, buf); err != nil {
			c.setErr(err)
			return
		}
		if err := c.inbox.deliver(buf); err != nil {
			return
		}
	}
}

func (c *StreamConnector) setErr(err error) {
	if err == io.EOF || atomic.LoadInt32(&c.closing) == 1 {
		return
	}
	log.Lvlf3("stream of %d stopped: %v", c.peer, err)
	c.err = err
}
