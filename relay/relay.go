// Package relay mirrors transport state between peers over net/rpc. The
// engine itself does no networking: the surrounding application forwards an
// equivalent event on every start/stop, and optionally whole scene
// snapshots, so a remote peer can follow along.
package relay

import (
	"fmt"
	"log"
	"net"
	"net/rpc"

	"github.com/soluna-audio/soluna"
)

// DefaultPort is used when an address has no explicit port.
const DefaultPort = "31337"

// Action is a transport event mirrored to the peer.
type Action string

const (
	Play Action = "PLAY"
	Stop Action = "STOP"
)

// Event is the unit of peer synchronization: a transport action, a scene
// snapshot, or both.
type Event struct {
	Action Action
	Scene  *soluna.Scene
}

// RelayServer is the net/rpc service the sender calls into.
type RelayServer struct {
	channel chan Event
}

// Relay delivers one event. Events are dropped, not queued without bound,
// when the receiving side is slow.
func (s *RelayServer) Relay(event Event, reply *int) error {
	select {
	case s.channel <- event:
	default:
	}
	return nil
}

// Receiver listens for mirrored events from a peer.
type Receiver struct {
	Events   <-chan Event
	listener net.Listener
}

// NewReceiver starts listening on addr (e.g. ":31337"; an empty port picks
// the default). The returned receiver's Events channel yields peer events
// until Close.
func NewReceiver(addr string) (*Receiver, error) {
	c := make(chan Event, 16)
	server := rpc.NewServer()
	if err := server.Register(&RelayServer{channel: c}); err != nil {
		return nil, fmt.Errorf("rpc register failed: %v", err)
	}
	listener, err := net.Listen("tcp", withDefaultPort(addr))
	if err != nil {
		return nil, fmt.Errorf("net.Listen failed: %v", err)
	}
	go func() {
		defer close(c)
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go server.ServeConn(conn)
		}
	}()
	return &Receiver{Events: c, listener: listener}, nil
}

// Addr returns the address the receiver is listening on.
func (r *Receiver) Addr() net.Addr {
	return r.listener.Addr()
}

func (r *Receiver) Close() error {
	return r.listener.Close()
}

// Sender forwards events to a peer's receiver. Sends are asynchronous and
// non-blocking for the caller; errors are logged, not fatal, as a flaky
// peer must never stall the transport.
type Sender struct {
	channel chan Event
	client  *rpc.Client
}

// NewSender connects to the peer at serverAddress (port defaulted when
// missing).
func NewSender(serverAddress string) (*Sender, error) {
	client, err := rpc.Dial("tcp", withDefaultPort(serverAddress))
	if err != nil {
		return nil, fmt.Errorf("rpc.Dial failed: %v", err)
	}
	c := make(chan Event, 256)
	s := &Sender{channel: c, client: client}
	go func() {
		for event := range c {
			var reply int
			if err := client.Call("RelayServer.Relay", event, &reply); err != nil {
				log.Printf("relay: send failed: %v", err)
			}
		}
	}()
	return s, nil
}

// Send queues an event for delivery, dropping it if the queue is full.
func (s *Sender) Send(event Event) {
	select {
	case s.channel <- event:
	default:
	}
}

func (s *Sender) Close() error {
	close(s.channel)
	return s.client.Close()
}

func withDefaultPort(addr string) string {
	if addr == "" {
		return ":" + DefaultPort
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return net.JoinHostPort(addr, DefaultPort)
	}
	return addr
}
