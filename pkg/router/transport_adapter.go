package router

import (
	"github.com/gabrielmiguelok/intakewizard/pkg/core"
	"github.com/gabrielmiguelok/intakewizard/pkg/transport"
)

// TransportAdapter lets a core.Socket push through a transport.Transport.
type TransportAdapter struct {
	t transport.Transport
}

// NewTransportAdapter wraps t.
func NewTransportAdapter(t transport.Transport) *TransportAdapter {
	return &TransportAdapter{t: t}
}

// Send implements core.Transport.
func (a *TransportAdapter) Send(msg core.Message) error {
	return a.t.Send(transport.Message{
		Ref:     msg.Ref,
		Topic:   msg.Topic,
		Event:   msg.Event,
		Payload: msg.Payload,
	})
}

// Close implements core.Transport.
func (a *TransportAdapter) Close() error {
	return a.t.Close()
}

// IsConnected implements core.Transport.
func (a *TransportAdapter) IsConnected() bool {
	return a.t.IsConnected()
}
