package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-mocap/pkg/animator"
	"github.com/teslashibe/go-mocap/pkg/protocol"
)

// Session is the part of animator.Session driven by control messages.
type Session interface {
	LoadStreamData(data []byte) error
	LoadStreamFrom(ctx context.Context, location string) error
	SetPlaying(playing bool) error
	TogglePlaying() bool
	SetSpeed(speed float64) error
	Seek(normalized float64)
	SetLoop(loop bool)
	SwapRig(ctx context.Context, location string) <-chan error
	Status() animator.Status
}

var _ Session = (*animator.Session)(nil)

// ErrUnknownCommand is returned for message types that are not commands.
var ErrUnknownCommand = errors.New("control: unknown command")

// Dispatch applies one command to s and returns the reply: a status
// message on success, an error message otherwise. Rig swaps reply once
// the swap has started; onRig, when set, receives the outcome.
func Dispatch(ctx context.Context, s Session, msg *protocol.Message, onRig func(error)) *protocol.Message {
	reply, err := dispatch(ctx, s, msg, onRig)
	if err != nil {
		reply, err = newErrorMessage(msg.Type, err)
	}
	if err != nil || reply == nil {
		reply = &protocol.Message{
			Type:      protocol.TypeError,
			Timestamp: time.Now().UnixMilli(),
			Data:      json.RawMessage(internalError),
		}
	}
	return reply.Reply(msg)
}

// internalError is sent when an error reply cannot be encoded.
const internalError = `{"message":"internal error"}`

var newErrorMessage = protocol.NewErrorMessage

func dispatch(ctx context.Context, s Session, msg *protocol.Message, onRig func(error)) (*protocol.Message, error) {
	switch msg.Type {
	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return nil, err
		}
		return protocol.NewPongMessage(ping.ID, msg.Timestamp, time.Now().UnixMilli())

	case protocol.TypeGetStatus:

	case protocol.TypeLoadStream:
		cmd, err := msg.GetLoadStreamCommand()
		if err != nil {
			return nil, err
		}
		switch {
		case len(cmd.Stream) > 0:
			err = s.LoadStreamData(cmd.Stream)
		case cmd.URL != "":
			err = s.LoadStreamFrom(ctx, cmd.URL)
		default:
			err = errors.New("load_stream needs url or stream")
		}
		if err != nil {
			return nil, err
		}

	case protocol.TypePlay:
		cmd, err := msg.GetPlayCommand()
		if err != nil {
			return nil, err
		}
		if cmd.Playing == nil {
			s.TogglePlaying()
		} else if err := s.SetPlaying(*cmd.Playing); err != nil {
			return nil, err
		}

	case protocol.TypeSpeed:
		cmd, err := msg.GetSpeedCommand()
		if err != nil {
			return nil, err
		}
		if err := s.SetSpeed(cmd.Speed); err != nil {
			return nil, err
		}

	case protocol.TypeSeek:
		cmd, err := msg.GetSeekCommand()
		if err != nil {
			return nil, err
		}
		s.Seek(cmd.Position)

	case protocol.TypeLoop:
		cmd, err := msg.GetLoopCommand()
		if err != nil {
			return nil, err
		}
		s.SetLoop(cmd.Loop)

	case protocol.TypeSwapRig:
		cmd, err := msg.GetSwapRigCommand()
		if err != nil {
			return nil, err
		}
		// The swap outlives the request.
		done := s.SwapRig(context.WithoutCancel(ctx), cmd.URL)
		if onRig != nil {
			go func() { onRig(<-done) }()
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, msg.Type)
	}
	return protocol.NewMessage(protocol.TypeStatus, s.Status())
}
