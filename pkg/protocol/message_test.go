package protocol

import (
	"errors"
	"testing"
	"time"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "event message",
			msgType: TypeEvent,
			data:    EventData{Event: "turn_ended", Action: "turn"},
		},
		{
			name:    "command message",
			msgType: TypeCommand,
			data:    CommandData{Action: "walk_forward", Direction: true, Value: 5},
		},
		{
			name:    "nil data",
			msgType: TypeStop,
			data:    nil,
		},
		{
			name:    "unmarshalable data",
			msgType: TypeStatus,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestEventMessage(t *testing.T) {
	msg, err := NewEventMessage("walking_blocked", "walk_forward", "abc")
	if err != nil {
		t.Fatalf("NewEventMessage() error = %v", err)
	}

	raw, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeEvent {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeEvent)
	}

	ev, err := parsed.GetEventData()
	if err != nil {
		t.Fatalf("GetEventData() error = %v", err)
	}
	if ev.Event != "walking_blocked" || ev.Action != "walk_forward" || ev.CommandID != "abc" {
		t.Errorf("event = %+v", ev)
	}
}

func TestCommandMessage(t *testing.T) {
	msg, err := NewCommandMessage("10", false, -90)
	if err != nil {
		t.Fatalf("NewCommandMessage() error = %v", err)
	}

	cmd, err := msg.GetCommandData()
	if err != nil {
		t.Fatalf("GetCommandData() error = %v", err)
	}
	if cmd.Action != "10" || cmd.Direction || cmd.Value != -90 {
		t.Errorf("command = %+v", cmd)
	}
}

func TestSensorMessage_PartialUpdate(t *testing.T) {
	yaw := 12.5
	msg, err := NewSensorMessage(&yaw, nil)
	if err != nil {
		t.Fatalf("NewSensorMessage() error = %v", err)
	}

	data, err := msg.GetSensorData()
	if err != nil {
		t.Fatalf("GetSensorData() error = %v", err)
	}
	if data.Yaw == nil || *data.Yaw != 12.5 {
		t.Errorf("Yaw = %v, want 12.5", data.Yaw)
	}
	if data.DistanceMM != nil {
		t.Errorf("DistanceMM = %v, want nil", *data.DistanceMM)
	}
}

func TestErrorMessage(t *testing.T) {
	msg, err := NewErrorMessage(errors.New("queue closed"))
	if err != nil {
		t.Fatalf("NewErrorMessage() error = %v", err)
	}
	var data ErrorData
	if err := msg.ParseData(&data); err != nil {
		t.Fatalf("ParseData() error = %v", err)
	}
	if data.Message != "queue closed" {
		t.Errorf("Message = %q", data.Message)
	}
}

func TestStopMessage_NoData(t *testing.T) {
	msg, err := NewStopMessage()
	if err != nil {
		t.Fatalf("NewStopMessage() error = %v", err)
	}
	if msg.Data != nil {
		t.Errorf("Data = %s, want nil", msg.Data)
	}
	var v struct{}
	if err := msg.ParseData(&v); err != nil {
		t.Errorf("ParseData() on empty message error = %v", err)
	}
}

func TestPingPongMessage(t *testing.T) {
	pingMsg, err := NewPingMessage("test-123")
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}

	pingData, err := pingMsg.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}
	if pingData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pingData.ID)
	}

	now := time.Now().UnixMilli()
	pongMsg, err := NewPongMessage("test-123", pingMsg.Timestamp, now)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}
	if pongMsg.Type != TypePong {
		t.Errorf("Type = %v, want %v", pongMsg.Type, TypePong)
	}

	var pong PongData
	if err := pongMsg.ParseData(&pong); err != nil {
		t.Fatalf("ParseData() error = %v", err)
	}
	if pong.LatencyMs < 0 {
		t.Errorf("LatencyMs = %v, should be >= 0", pong.LatencyMs)
	}
}

func TestParseMessage_Invalid(t *testing.T) {
	if _, err := ParseMessage([]byte("{not json")); err == nil {
		t.Error("ParseMessage() should fail on invalid JSON")
	}
}
