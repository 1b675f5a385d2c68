package transfer

import (
	"context"
	"sync"
)

// pipeLink is the state shared by both ends of a pipe
type pipeLink struct {
	done chan struct{}
	once sync.Once
}

func (l *pipeLink) close() {
	l.once.Do(func() { close(l.done) })
}

// pipeConn is one end of an in-memory channel. Frames are encoded on Send and
// decoded on Receive so both sides see exactly the wire contract.
type pipeConn struct {
	cfg  Config
	link *pipeLink
	in   <-chan []byte
	out  chan<- []byte
}

// NewPipe returns two connected ends of an in-memory channel.
// By convention the first end belongs to the requester, the second to the fetcher.
func NewPipe(cfg Config) (Conn, Conn) {
	cfg = cfg.withDefaults()
	link := &pipeLink{done: make(chan struct{})}
	aToB := make(chan []byte, cfg.Buffer)
	bToA := make(chan []byte, cfg.Buffer)

	a := &pipeConn{cfg: cfg, link: link, in: bToA, out: aToB}
	b := &pipeConn{cfg: cfg, link: link, in: aToB, out: bToA}
	return a, b
}

func (p *pipeConn) Name() string {
	return p.cfg.Name
}

func (p *pipeConn) MaxChunkSize() int {
	return p.cfg.MaxChunkSize
}

func (p *pipeConn) Send(ctx context.Context, msg Message) error {
	if err := p.cfg.checkSize(msg); err != nil {
		return err
	}
	frame, err := Encode(msg)
	if err != nil {
		return err
	}

	select {
	case <-p.link.done:
		return ErrDisconnected
	default:
	}

	select {
	case p.out <- frame:
		return nil
	case <-p.link.done:
		return ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeConn) Receive(ctx context.Context) (Message, error) {
	// Frames already queued by the peer are delivered before a disconnect
	select {
	case frame := <-p.in:
		return Decode(frame)
	default:
	}

	select {
	case frame := <-p.in:
		return Decode(frame)
	case <-p.link.done:
		select {
		case frame := <-p.in:
			return Decode(frame)
		default:
			return nil, ErrDisconnected
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeConn) Close() error {
	p.link.close()
	return nil
}
