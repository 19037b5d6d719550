package realtime

import (
	"time"

	"github.com/google/uuid"
)

// Message is an outbound frame. Every message is a JSON object with a
// "type" discriminator.
type Message interface {
	MessageType() string
}

// PingMessage is the heartbeat probe.
type PingMessage struct {
	Type       string `json:"type"`
	ClientTime int64  `json:"client_time"`
	Timestamp  string `json:"timestamp"`
}

// PongMessage answers a server ping.
type PongMessage struct {
	Type       string `json:"type"`
	ClientTime int64  `json:"client_time,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// ConnectMessage introduces the staff client after every open.
type ConnectMessage struct {
	Type      string `json:"type"`
	UserType  string `json:"user_type"`
	UserID    string `json:"user_id,omitempty"`
	ClientID  string `json:"client_id"`
	Timestamp string `json:"timestamp"`
}

// HandshakeMessage introduces a customer tracking client.
type HandshakeMessage struct {
	Type      string `json:"type"`
	OrderID   string `json:"order_id"`
	UserType  string `json:"user_type"`
	Timestamp string `json:"timestamp"`
}

// HeartbeatAck answers a customer channel heartbeat.
type HeartbeatAck struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

func (m PingMessage) MessageType() string      { return m.Type }
func (m PongMessage) MessageType() string      { return m.Type }
func (m ConnectMessage) MessageType() string   { return m.Type }
func (m HandshakeMessage) MessageType() string { return m.Type }
func (m HeartbeatAck) MessageType() string     { return m.Type }

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NewPing builds a heartbeat probe stamped with now.
func NewPing(now time.Time) PingMessage {
	return PingMessage{Type: TypePing, ClientTime: now.UnixMilli(), Timestamp: stamp(now)}
}

// NewPong answers ping.
func NewPong(ping Ping, now time.Time) PongMessage {
	return PongMessage{Type: TypePong, ClientTime: ping.ClientTime, Timestamp: stamp(now)}
}

// NewConnect builds the staff introduction frame with a fresh client id.
func NewConnect(userID string, now time.Time) ConnectMessage {
	return ConnectMessage{
		Type:      "connect",
		UserType:  "staff",
		UserID:    userID,
		ClientID:  uuid.NewString(),
		Timestamp: stamp(now),
	}
}

// NewHandshake builds the customer introduction frame for orderID.
func NewHandshake(orderID string, now time.Time) HandshakeMessage {
	return HandshakeMessage{Type: "handshake", OrderID: orderID, UserType: "customer", Timestamp: stamp(now)}
}

// NewHeartbeatAck answers a customer heartbeat.
func NewHeartbeatAck(now time.Time) HeartbeatAck {
	return HeartbeatAck{Type: "heartbeat_ack", Timestamp: stamp(now)}
}
