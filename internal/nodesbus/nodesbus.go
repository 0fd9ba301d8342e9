// Package nodesbus defines the event envelopes exchanged with the
// out-of-process media-node fleet over the shared "nodes" pub/sub
// channel (spec.md §6). Every event is wrapped in an envelope carrying
// an id and an event kind/payload, msgpack-encoded the same way as the
// client-facing wire frames in package wire.
package nodesbus

import "github.com/vmihailenco/msgpack/v5"

// Event kind discriminators.
const (
	KindQuery       = "QUERY"
	KindDescription = "DESCRIPTION"
	KindPing        = "PING"
	KindDisconnect  = "DISCONNECT"
	KindUserConnect = "USER_CONNECT"
	KindUserCreate  = "USER_CREATE"
)

// Envelope is decoded first to read the event's kind before the full
// payload is decoded into its concrete Go type.
type Envelope struct {
	ID    string `msgpack:"id"`
	Event struct {
		Kind string `msgpack:"kind"`
	} `msgpack:"event"`
}

// Query is published by the server on startup to ask every live node to
// re-announce itself.
type Query struct {
	ID    string     `msgpack:"id"`
	Event queryInner `msgpack:"event"`
}

type queryInner struct {
	Kind string `msgpack:"kind"`
}

// NewQuery builds a Query announcement.
func NewQuery(id string) Query {
	return Query{ID: id, Event: queryInner{Kind: KindQuery}}
}

// Description is a node's self-introduction.
type Description struct {
	ID    string           `msgpack:"id"`
	Event descriptionInner `msgpack:"event"`
}

type descriptionInner struct {
	Kind   string `msgpack:"kind"`
	NodeID string `msgpack:"nodeId"`
	Region string `msgpack:"region"`
}

// NodeID returns the describing node's id.
func (d Description) NodeID() string { return d.Event.NodeID }

// Region returns the describing node's declared region.
func (d Description) Region() string { return d.Event.Region }

// Ping is a node's liveness heartbeat.
type Ping struct {
	ID    string    `msgpack:"id"`
	Event pingInner `msgpack:"event"`
}

type pingInner struct {
	Kind   string `msgpack:"kind"`
	NodeID string `msgpack:"nodeId"`
}

// NodeID returns the pinging node's id.
func (p Ping) NodeID() string { return p.Event.NodeID }

// Disconnect is a node's graceful-exit notice.
type Disconnect struct {
	ID    string          `msgpack:"id"`
	Event disconnectInner `msgpack:"event"`
}

type disconnectInner struct {
	Kind   string `msgpack:"kind"`
	NodeID string `msgpack:"nodeId"`
}

// NodeID returns the departing node's id.
func (d Disconnect) NodeID() string { return d.Event.NodeID }

// UserConnect is published by the server to ask a media node to answer
// an SDP offer for a rendezvous key (callId, sessionId).
type UserConnect struct {
	ID    string           `msgpack:"id"`
	Event userConnectInner `msgpack:"event"`
}

type userConnectInner struct {
	Kind      string `msgpack:"kind"`
	CallID    string `msgpack:"callId"`
	SessionID string `msgpack:"sessionId"`
	Offer     string `msgpack:"sdp"`
}

// NewUserConnect builds a UserConnect event for the given rendezvous key.
func NewUserConnect(id, callID, sessionID, offerSDP string) UserConnect {
	return UserConnect{
		ID: id,
		Event: userConnectInner{
			Kind:      KindUserConnect,
			CallID:    callID,
			SessionID: sessionID,
			Offer:     offerSDP,
		},
	}
}

// UserCreate is published by a media node resolving a prior UserConnect
// with its SDP answer.
type UserCreate struct {
	ID    string           `msgpack:"id"`
	Event userCreateInner `msgpack:"event"`
}

type userCreateInner struct {
	Kind      string `msgpack:"kind"`
	CallID    string `msgpack:"callId"`
	SessionID string `msgpack:"sessionId"`
	Answer    string `msgpack:"sdp"`
}

// CallID returns the resolving call id.
func (u UserCreate) CallID() string { return u.Event.CallID }

// SessionID returns the resolving rendezvous session id.
func (u UserCreate) SessionID() string { return u.Event.SessionID }

// Answer returns the resolving SDP answer.
func (u UserCreate) Answer() string { return u.Event.Answer }

// DecodeEnvelope sniffs a raw bus payload's event kind without decoding
// the full (kind-specific) body.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := msgpack.Unmarshal(payload, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Marshal encodes v for publication on the "nodes" channel.
func Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Unmarshal decodes a raw bus payload into v.
func Unmarshal(payload []byte, v any) error {
	return msgpack.Unmarshal(payload, v)
}
