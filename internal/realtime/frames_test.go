package realtime

import (
	"errors"
	"testing"
)

func TestDecode_OrderReady(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"numeric id", `{"type":"order_ready","order_id":42,"pickup_code":"A1"}`},
		{"string id", `{"type":"order_ready","order_id":"42","pickup_code":"A1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Decode([]byte(tt.data))
			if err != nil {
				t.Fatalf("Decode returned error: %v", err)
			}
			ready, ok := frame.(OrderReady)
			if !ok {
				t.Fatalf("frame = %T, want OrderReady", frame)
			}
			if ready.OrderID != "42" || ready.PickupCode != "A1" {
				t.Fatalf("frame = %+v, want order 42 code A1", ready)
			}
			if ready.Type() != TypeOrderReady {
				t.Fatalf("Type() = %q", ready.Type())
			}
		})
	}
}

func TestDecode_KnownTypes(t *testing.T) {
	tests := []struct {
		data string
		want Frame
	}{
		{`{"type":"queue_update","action":"add","order_id":3}`, QueueUpdate{}},
		{`{"type":"order_update","order_id":3,"status":"ready"}`, OrderUpdate{}},
		{`{"type":"new_order","order_id":3}`, NewOrder{}},
		{`{"type":"order_collected","order_id":3}`, OrderCollected{}},
		{`{"type":"payment_update","order_id":3,"payment_status":"paid"}`, PaymentUpdate{}},
		{`{"type":"system_message","message":"hi","message_type":"warning"}`, SystemMessage{}},
		{`{"type":"system","message":"hi"}`, SystemMessage{}},
		{`{"type":"ping","client_time":5}`, Ping{}},
		{`{"type":"pong","client_time":5}`, Pong{}},
		{`{"type":"queue_position","position":2,"estimated_time":"10:30"}`, QueuePositionUpdate{}},
		{`{"type":"payment_status","payment_status":"paid"}`, PaymentStatusUpdate{}},
		{`{"type":"order_ready_notification","pickup_code":"Z9"}`, OrderReadyNotification{}},
		{`{"type":"heartbeat"}`, Heartbeat{}},
	}
	for _, tt := range tests {
		frame, err := Decode([]byte(tt.data))
		if err != nil {
			t.Fatalf("Decode(%s) returned error: %v", tt.data, err)
		}
		if got, want := typeName(frame), typeName(tt.want); got != want {
			t.Errorf("Decode(%s) = %s, want %s", tt.data, got, want)
		}
	}
}

func typeName(f Frame) string {
	switch f.(type) {
	case QueueUpdate:
		return "QueueUpdate"
	case OrderUpdate:
		return "OrderUpdate"
	case NewOrder:
		return "NewOrder"
	case OrderCollected:
		return "OrderCollected"
	case PaymentUpdate:
		return "PaymentUpdate"
	case SystemMessage:
		return "SystemMessage"
	case Ping:
		return "Ping"
	case Pong:
		return "Pong"
	case QueuePositionUpdate:
		return "QueuePositionUpdate"
	case PaymentStatusUpdate:
		return "PaymentStatusUpdate"
	case OrderReadyNotification:
		return "OrderReadyNotification"
	case Heartbeat:
		return "Heartbeat"
	default:
		return "other"
	}
}

func TestDecode_OrderStatusNested(t *testing.T) {
	frame, err := Decode([]byte(`{"type":"order_status","data":{"order_id":5,"status":"ready","status_display":"Ready"}}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	status, ok := frame.(OrderStatusUpdate)
	if !ok {
		t.Fatalf("frame = %T, want OrderStatusUpdate", frame)
	}
	if status.OrderID != "5" || status.Status != "ready" || status.StatusDisplay != "Ready" {
		t.Fatalf("frame = %+v", status)
	}
	if status.Type() != "order_status" {
		t.Fatalf("Type() = %q, want order_status", status.Type())
	}
}

func TestDecode_Unknown(t *testing.T) {
	data := []byte(`{"type":"mystery","x":1}`)
	frame, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	unknown, ok := frame.(Unknown)
	if !ok {
		t.Fatalf("frame = %T, want Unknown", frame)
	}
	if unknown.Type() != "mystery" || string(unknown.Raw) != string(data) {
		t.Fatalf("unknown = %+v", unknown)
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, data := range []string{`not json`, `{}`, `[1,2]`, `{"type":""}`, `{"type":"order_ready","order_id":{}}`} {
		if _, err := Decode([]byte(data)); !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("Decode(%s) error = %v, want ErrMalformedFrame", data, err)
		}
	}
}
