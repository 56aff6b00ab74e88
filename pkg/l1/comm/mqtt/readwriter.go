package mqtt

import (
	"context"
	"io"

	"github.com/robotalks/biped.go/pkg/l1"
)

// Each controller owns three topics under TYPE/ID.
const (
	// TopicMeta holds the retained ControllerMeta, empty when offline.
	TopicMeta = "meta"
	// TopicCmd carries commands to the controller.
	TopicCmd = "cmd"
	// TopicMsg carries replies and events from the controller.
	TopicMsg = "msg"
)

// ControllerTopic is the topic of ref with suffix, without the prefix of
// the Queue.
func ControllerTopic(ref l1.ControllerRef, suffix string) string {
	return ref.Name() + "/" + suffix
}

// ReadWriter is a packet transport reading from one topic and writing to
// another. It must be Run to receive packets.
type ReadWriter struct {
	Queue *Queue
	// In is subscribed for incoming packets.
	In string
	// Out is where packets are published.
	Out string

	incoming chan []byte
	closed   chan struct{}
}

// NewPacketReadWriter creates a ReadWriter on q, the topics are chosen by
// ForController or ForConnector.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		incoming: make(chan []byte, 16),
		closed:   make(chan struct{}),
	}
}

// ForController reads commands and writes replies and events.
func (p *ReadWriter) ForController(ref l1.ControllerRef) *ReadWriter {
	p.In, p.Out = ControllerTopic(ref, TopicCmd), ControllerTopic(ref, TopicMsg)
	return p
}

// ForConnector reads replies and events and writes commands.
func (p *ReadWriter) ForConnector(ref l1.ControllerRef) *ReadWriter {
	p.In, p.Out = ControllerTopic(ref, TopicMsg), ControllerTopic(ref, TopicCmd)
	return p
}

// ReadPacket implements comm.PacketReader. It returns io.EOF after Run
// returns.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case <-p.closed:
		return nil, io.EOF
	case pkt := <-p.incoming:
		return pkt, nil
	}
}

// WritePacket implements comm.PacketWriter and waits for the delivery to
// the broker.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.Out, pkt)
	token.Wait()
	return token.Error()
}

// Run subscribes In until ctx is done.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.In, Handler(func(_ string, pkt []byte) {
		select {
		case p.incoming <- pkt:
		case <-p.closed:
		}
	}))
	<-ctx.Done()
	close(p.closed)
	sub.Close()
	return ctx.Err()
}
