package realtime

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/betweencoffee/baristaboard/internal/eshop"
)

// ErrMalformedFrame is returned for payloads that are not a JSON object
// carrying a "type" string.
var ErrMalformedFrame = errors.New("malformed realtime frame")

// Frame is one inbound message. The set of implementations is closed.
type Frame interface {
	Type() string
	isFrame()
}

type frameBase struct {
	FrameType string `json:"type"`
}

func (f frameBase) Type() string { return f.FrameType }

func (frameBase) isFrame() {}

// Staff queue frames.
type (
	QueueUpdate struct {
		frameBase
		Action    string         `json:"action"`
		OrderID   eshop.OrderRef `json:"order_id"`
		Position  int            `json:"position"`
		QueueType string         `json:"queue_type"`
	}

	OrderUpdate struct {
		frameBase
		OrderID eshop.OrderRef `json:"order_id"`
		Status  string         `json:"status"`
	}

	NewOrder struct {
		frameBase
		OrderID      eshop.OrderRef `json:"order_id"`
		CustomerName string         `json:"customer_name"`
		ItemsCount   int            `json:"items_count"`
	}

	OrderReady struct {
		frameBase
		OrderID      eshop.OrderRef `json:"order_id"`
		PickupCode   string         `json:"pickup_code"`
		CustomerName string         `json:"customer_name"`
	}

	OrderCollected struct {
		frameBase
		OrderID eshop.OrderRef `json:"order_id"`
	}

	PaymentUpdate struct {
		frameBase
		OrderID       eshop.OrderRef `json:"order_id"`
		PaymentStatus string         `json:"payment_status"`
		PaymentMethod string         `json:"payment_method"`
		Message       string         `json:"message"`
	}

	SystemMessage struct {
		frameBase
		Message     string `json:"message"`
		MessageType string `json:"message_type"`
	}
)

// Heartbeat frames. ClientTime is the unix millisecond time the ping was
// sent; servers may leave it out of the pong.
type (
	Ping struct {
		frameBase
		ClientTime int64 `json:"client_time"`
	}

	Pong struct {
		frameBase
		ClientTime int64 `json:"client_time"`
	}
)

// Customer tracking frames.
type (
	OrderStatusUpdate struct {
		frameBase
		OrderID       eshop.OrderRef `json:"order_id"`
		Status        string         `json:"status"`
		StatusDisplay string         `json:"status_display"`
		Message       string         `json:"message"`
	}

	QueuePositionUpdate struct {
		frameBase
		OrderID       eshop.OrderRef `json:"order_id"`
		Position      int            `json:"position"`
		EstimatedTime string         `json:"estimated_time"`
	}

	PaymentStatusUpdate struct {
		frameBase
		OrderID       eshop.OrderRef `json:"order_id"`
		PaymentStatus string         `json:"payment_status"`
	}

	OrderReadyNotification struct {
		frameBase
		OrderID    eshop.OrderRef `json:"order_id"`
		PickupCode string         `json:"pickup_code"`
	}

	Heartbeat struct {
		frameBase
	}
)

// Unknown carries a frame whose type is not recognized.
type Unknown struct {
	frameBase
	Raw []byte
}

// Inbound type tags.
const (
	TypeQueueUpdate            = "queue_update"
	TypeOrderUpdate            = "order_update"
	TypeNewOrder               = "new_order"
	TypeOrderReady             = "order_ready"
	TypeOrderCollected         = "order_collected"
	TypePaymentUpdate          = "payment_update"
	TypeSystemMessage          = "system_message"
	TypePing                   = "ping"
	TypePong                   = "pong"
	TypeOrderStatusUpdate      = "order_status_update"
	TypeQueuePositionUpdate    = "queue_position_update"
	TypePaymentStatusUpdate    = "payment_status_update"
	TypeOrderReadyNotification = "order_ready_notification"
	TypeHeartbeat              = "heartbeat"
)

// The customer channel also uses the server's short names for the same
// updates.
var aliases = map[string]string{
	"order_status":   TypeOrderStatusUpdate,
	"queue_position": TypeQueuePositionUpdate,
	"payment_status": TypePaymentStatusUpdate,
	"system":         TypeSystemMessage,
}

// Decode parses one inbound payload.
func Decode(data []byte) (Frame, error) {
	var head frameBase
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if head.FrameType == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}

	typ := head.FrameType
	if canonical, ok := aliases[typ]; ok {
		typ = canonical
	}

	switch typ {
	case TypeQueueUpdate:
		return decodeAs[QueueUpdate](data)
	case TypeOrderUpdate:
		return decodeAs[OrderUpdate](data)
	case TypeNewOrder:
		return decodeAs[NewOrder](data)
	case TypeOrderReady:
		return decodeAs[OrderReady](data)
	case TypeOrderCollected:
		return decodeAs[OrderCollected](data)
	case TypePaymentUpdate:
		return decodeAs[PaymentUpdate](data)
	case TypeSystemMessage:
		return decodeAs[SystemMessage](data)
	case TypePing:
		return decodeAs[Ping](data)
	case TypePong:
		return decodeAs[Pong](data)
	case TypeOrderStatusUpdate:
		return decodeOrderStatus(data)
	case TypeQueuePositionUpdate:
		return decodeAs[QueuePositionUpdate](data)
	case TypePaymentStatusUpdate:
		return decodeAs[PaymentStatusUpdate](data)
	case TypeOrderReadyNotification:
		return decodeAs[OrderReadyNotification](data)
	case TypeHeartbeat:
		return decodeAs[Heartbeat](data)
	default:
		raw := make([]byte, len(data))
		copy(raw, data)
		return Unknown{frameBase: head, Raw: raw}, nil
	}
}

func decodeAs[T Frame](data []byte) (Frame, error) {
	var frame T
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return frame, nil
}

// The server nests order status fields under "data"; older senders put
// them at the top level.
func decodeOrderStatus(data []byte) (Frame, error) {
	var wrapped struct {
		Data *OrderStatusUpdate `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Data != nil {
		var head frameBase
		_ = json.Unmarshal(data, &head)
		frame := *wrapped.Data
		frame.frameBase = head
		return frame, nil
	}
	return decodeAs[OrderStatusUpdate](data)
}
