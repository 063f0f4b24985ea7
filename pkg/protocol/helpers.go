package protocol

import (
	"encoding/base64"
	"encoding/json"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewLoadStreamMessage creates a load_stream command for a file or URL
func NewLoadStreamMessage(url string) (*Message, error) {
	return NewMessage(TypeLoadStream, LoadStreamCommand{URL: url})
}

// NewInlineStreamMessage creates a load_stream command carrying the stream document
func NewInlineStreamMessage(stream []byte) (*Message, error) {
	return NewMessage(TypeLoadStream, LoadStreamCommand{Stream: json.RawMessage(stream)})
}

// NewPlayMessage creates a play command
func NewPlayMessage(playing bool) (*Message, error) {
	return NewMessage(TypePlay, PlayCommand{Playing: &playing})
}

// NewToggleMessage creates a play command that toggles playback
func NewToggleMessage() (*Message, error) {
	return NewMessage(TypePlay, PlayCommand{})
}

// NewSpeedMessage creates a speed command
func NewSpeedMessage(speed float64) (*Message, error) {
	return NewMessage(TypeSpeed, SpeedCommand{Speed: speed})
}

// NewSeekMessage creates a seek command
func NewSeekMessage(position float64) (*Message, error) {
	return NewMessage(TypeSeek, SeekCommand{Position: position})
}

// NewLoopMessage creates a loop command
func NewLoopMessage(loop bool) (*Message, error) {
	return NewMessage(TypeLoop, LoopCommand{Loop: loop})
}

// NewSwapRigMessage creates a swap_rig command
func NewSwapRigMessage(url string) (*Message, error) {
	return NewMessage(TypeSwapRig, SwapRigCommand{URL: url})
}

// NewFrameMessage creates an overlay frame message from raw JPEG data
func NewFrameMessage(width, height int, jpegData []byte, frameID uint64, index int) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{
		Width:   width,
		Height:  height,
		Format:  "jpeg",
		Data:    base64.StdEncoding.EncodeToString(jpegData),
		FrameID: frameID,
		Index:   index,
	})
}

// NewErrorMessage creates an error message for a failed command
func NewErrorMessage(command MessageType, err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{
		Command: command,
		Message: err.Error(),
	})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	msg, err := NewMessage(TypePing, nil)
	if err != nil {
		return nil, err
	}
	msg.Data, err = json.Marshal(PingData{ID: id, Timestamp: msg.Timestamp})
	return msg, err
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

// GetLoadStreamCommand extracts a load_stream command from a message
func (m *Message) GetLoadStreamCommand() (*LoadStreamCommand, error) {
	var data LoadStreamCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPlayCommand extracts a play command from a message
func (m *Message) GetPlayCommand() (*PlayCommand, error) {
	var data PlayCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSpeedCommand extracts a speed command from a message
func (m *Message) GetSpeedCommand() (*SpeedCommand, error) {
	var data SpeedCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSeekCommand extracts a seek command from a message
func (m *Message) GetSeekCommand() (*SeekCommand, error) {
	var data SeekCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetLoopCommand extracts a loop command from a message
func (m *Message) GetLoopCommand() (*LoopCommand, error) {
	var data LoopCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSwapRigCommand extracts a swap_rig command from a message
func (m *Message) GetSwapRigCommand() (*SwapRigCommand, error) {
	var data SwapRigCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeFrameData decodes the base64 image data
func (f *FrameData) DecodeFrameData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
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

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
