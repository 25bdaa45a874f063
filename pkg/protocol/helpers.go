package protocol

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewEventMessage creates a notification event message
func NewEventMessage(event, action, commandID string) (*Message, error) {
	return NewMessage(TypeEvent, EventData{
		Event:     event,
		Action:    action,
		CommandID: commandID,
	})
}

// NewStatusMessage wraps a dispatcher snapshot
func NewStatusMessage(status interface{}) (*Message, error) {
	return NewMessage(TypeStatus, status)
}

// NewErrorMessage creates an error message
func NewErrorMessage(err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: err.Error()})
}

// NewCommandMessage creates a motion command message
func NewCommandMessage(action string, direction bool, value int) (*Message, error) {
	return NewMessage(TypeCommand, CommandData{
		Action:    action,
		Direction: direction,
		Value:     value,
	})
}

// NewStopMessage creates a stop message
func NewStopMessage() (*Message, error) {
	return NewMessage(TypeStop, nil)
}

// NewSensorMessage creates a sensor push message
func NewSensorMessage(yaw, distanceMM *float64) (*Message, error) {
	return NewMessage(TypeSensors, SensorData{
		Yaw:        yaw,
		DistanceMM: distanceMM,
	})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: 0, // Will be set by NewMessage
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetEventData extracts event data from a message
func (m *Message) GetEventData() (*EventData, error) {
	var data EventData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCommandData extracts a motion command from a message
func (m *Message) GetCommandData() (*CommandData, error) {
	var data CommandData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSensorData extracts sensor readings from a message
func (m *Message) GetSensorData() (*SensorData, error) {
	var data SensorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
