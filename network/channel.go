package network

import (
	"context"
	"sort"
	"sync"

	"go.dedis.ch/onet/v3/log"
	onetnet "go.dedis.ch/onet/v3/network"
	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos"
)

// Message is any struct registered with onet's network package. Messages
// must be sent as pointers; received ones are always pointers.
type Message = onetnet.Message

// RegisterMessage registers msg so that it can be sent over a Channel.
func RegisterMessage(msg Message) {
	onetnet.RegisterMessage(msg)
}

// Envelope is the wire format of a channel message. Run and Seq place the
// payload in one round of one run, so that messages left over from an
// aborted run are never mistaken for current ones.
type Envelope struct {
	Run     string
	Seq     uint64
	Payload []byte
}

func init() {
	onetnet.RegisterMessage(&Envelope{})
}

type runKey struct{}

// WithRun tags ctx with a run id. Channels used under ctx stamp their
// messages with it and drop messages of other runs.
func WithRun(ctx context.Context, run string) context.Context {
	return context.WithValue(ctx, runKey{}, run)
}

// RunFrom returns the run id of ctx, or "" if there is none.
func RunFrom(ctx context.Context) string {
	run, _ := ctx.Value(runKey{}).(string)
	return run
}

// Reply is a message together with the id of its sender.
type Reply struct {
	From int
	Msg  Message
}

// Channel links one trustee to all the others.
type Channel struct {
	id         int
	connectors []Connector

	mu   sync.Mutex
	run  string
	sent uint64
	recv uint64
}

// NewChannel returns the channel of trustee id over the given connectors.
func NewChannel(id int, connectors []Connector) *Channel {
	cs := append([]Connector{}, connectors...)
	sort.Slice(cs, func(i, j int) bool { return cs[i].Peer() < cs[j].Peer() })
	return &Channel{id: id, connectors: cs}
}

// ID returns the id of the trustee owning the channel.
func (c *Channel) ID() int {
	return c.id
}

// Size returns the number of trustees including the owner.
func (c *Channel) Size() int {
	return len(c.connectors) + 1
}

// enter switches the sequence counters to the run of ctx.
func (c *Channel) enter(ctx context.Context) {
	if run := RunFrom(ctx); run != c.run {
		c.run = run
		c.sent = 0
		c.recv = 0
	}
}

// Broadcast sends msg to every peer.
func (c *Channel) Broadcast(ctx context.Context, msg Message) error {
	payload, err := onetnet.Marshal(msg)
	if err != nil {
		return xerrors.Errorf("marshalling %T: %v", msg, err)
	}
	c.mu.Lock()
	c.enter(ctx)
	env := &Envelope{Run: c.run, Seq: c.sent}
	c.sent++
	c.mu.Unlock()
	env.Payload = payload

	buf, err := onetnet.Marshal(env)
	if err != nil {
		return xerrors.Errorf("marshalling envelope: %v", err)
	}
	for _, conn := range c.connectors {
		if err := conn.Send(ctx, buf); err != nil {
			return xerrors.Errorf("sending to %d: %w", conn.Peer(), err)
		}
	}
	return nil
}

// Receive waits for one message of every peer belonging to the next round
// of the current run. Messages of other runs or earlier rounds are dropped.
func (c *Channel) Receive(ctx context.Context) ([]Reply, error) {
	c.mu.Lock()
	c.enter(ctx)
	run, seq := c.run, c.recv
	c.recv++
	c.mu.Unlock()

	replies := make([]Reply, 0, len(c.connectors)+1)
	for _, conn := range c.connectors {
		msg, err := c.receiveFrom(ctx, conn, run, seq)
		if err != nil {
			return nil, err
		}
		replies = append(replies, Reply{From: conn.Peer(), Msg: msg})
	}
	return replies, nil
}

func (c *Channel) receiveFrom(ctx context.Context, conn Connector, run string, seq uint64) (Message, error) {
	for {
		buf, err := conn.Receive(ctx)
		if err != nil {
			return nil, xerrors.Errorf("receiving from %d: %w", conn.Peer(), err)
		}
		_, msg, err := onetnet.Unmarshal(buf, ordinos.Suite)
		if err != nil {
			return nil, xerrors.Errorf("unmarshalling message of %d: %v", conn.Peer(), err)
		}
		env, ok := msg.(*Envelope)
		if !ok {
			return nil, xerrors.Errorf("got %T from %d instead of an envelope", msg, conn.Peer())
		}
		if env.Run != run || env.Seq < seq {
			log.Lvlf3("%d: dropping stale message of %d (run %q round %d)",
				c.id, conn.Peer(), env.Run, env.Seq)
			continue
		}
		if env.Seq > seq {
			return nil, xerrors.Errorf("%d is at round %d, expected %d", conn.Peer(), env.Seq, seq)
		}
		_, inner, err := onetnet.Unmarshal(env.Payload, ordinos.Suite)
		if err != nil {
			return nil, xerrors.Errorf("unmarshalling message of %d: %v", conn.Peer(), err)
		}
		return inner, nil
	}
}

// BroadcastAndReceive sends msg to all peers, collects one reply of each,
// adds the own message and returns all of them sorted by sender id.
func (c *Channel) BroadcastAndReceive(ctx context.Context, msg Message) ([]Reply, error) {
	if err := c.Broadcast(ctx, msg); err != nil {
		return nil, err
	}
	replies, err := c.Receive(ctx)
	if err != nil {
		return nil, err
	}
	replies = append(replies, Reply{From: c.id, Msg: msg})
	sort.SliceStable(replies, func(i, j int) bool { return replies[i].From < replies[j].From })
	log.Lvlf5("%d: collected %d replies", c.id, len(replies))
	return replies, nil
}

// Close closes all the connectors of the channel.
func (c *Channel) Close() error {
	var first error
	for _, conn := range c.connectors {
		if err := conn.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
