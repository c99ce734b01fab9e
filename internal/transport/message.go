package transport

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/ugorji/go/codec"

	"github.com/pixil98/go-manhunt/internal/game"
)

// Kind tags what a Message carries. Only KindEvent and KindStart travel over
// the wire; the rest are produced locally by the transport.
type Kind uint8

const (
	KindEvent Kind = iota + 1
	KindStart
	KindPeerConnect
	KindPeerDisconnect
	KindIDAssigned
	KindDisconnected
	KindError

	// kindGoodbye is sent to each peer by a participant that is leaving.
	kindGoodbye Kind = 255
)

func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindStart:
		return "start"
	case KindPeerConnect:
		return "peer-connect"
	case KindPeerDisconnect:
		return "peer-disconnect"
	case KindIDAssigned:
		return "id-assigned"
	case KindDisconnected:
		return "disconnected"
	case KindError:
		return "error"
	case kindGoodbye:
		return "goodbye"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Message is one entry of the transport inbox.
type Message struct {
	Kind Kind
	// Event is set for KindEvent.
	Event game.Event
	// Start is set for KindStart.
	Start *game.StartInfo
	// Peer is the participant a connect, disconnect or id assignment is about.
	Peer uuid.UUID
	// Err describes a KindError.
	Err string
}

// EventMessage wraps a game event for sending.
func EventMessage(ev game.Event) Message {
	return Message{Kind: KindEvent, Event: ev}
}

// Envelope pairs a message with who sent it. From is uuid.Nil for messages
// the transport made up itself.
type Envelope struct {
	From    uuid.UUID
	Message Message
}

var mh = newHandle()

func newHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.WriteExt = true
	return h
}

type wireMessage struct {
	Kind      Kind           `codec:"k"`
	EventKind game.EventKind `codec:"e,omitempty"`
	Body      []byte         `codec:"b,omitempty"`
	Start     *wireStart     `codec:"s,omitempty"`
}

type wireStart struct {
	Settings game.Settings `codec:"settings"`
	Roster   []rosterEntry `codec:"roster"`
}

type rosterEntry struct {
	ID     uuid.UUID `codec:"id"`
	Seeker bool      `codec:"seeker"`
}

// Encode serializes a message for the wire.
func Encode(msg Message) ([]byte, error) {
	w := wireMessage{Kind: msg.Kind}

	switch msg.Kind {
	case KindEvent:
		if msg.Event == nil {
			return nil, fmt.Errorf("event message without an event")
		}
		var body []byte
		if err := codec.NewEncoderBytes(&body, mh).Encode(msg.Event); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", msg.Event.Kind(), err)
		}
		w.EventKind = msg.Event.Kind()
		w.Body = body
	case KindStart:
		if msg.Start == nil {
			return nil, fmt.Errorf("start message without start info")
		}
		ws := &wireStart{Settings: msg.Start.Settings}
		for id, seeker := range msg.Start.InitialCaught {
			ws.Roster = append(ws.Roster, rosterEntry{ID: id, Seeker: seeker})
		}
		w.Start = ws
	case kindGoodbye:
	default:
		return nil, fmt.Errorf("%s messages are not sent over the wire", msg.Kind)
	}

	var out []byte
	if err := codec.NewEncoderBytes(&out, mh).Encode(w); err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}
	return out, nil
}

// Decode is the inverse of Encode.
func Decode(data []byte) (Message, error) {
	var w wireMessage
	if err := codec.NewDecoderBytes(data, mh).Decode(&w); err != nil {
		return Message{}, fmt.Errorf("decoding message: %w", err)
	}

	switch w.Kind {
	case KindEvent:
		ev, err := game.DecodeEvent(w.EventKind, func(v any) error {
			return codec.NewDecoderBytes(w.Body, mh).Decode(v)
		})
		if err != nil {
			return Message{}, err
		}
		return EventMessage(ev), nil
	case KindStart:
		if w.Start == nil {
			return Message{}, fmt.Errorf("start message without start info")
		}
		info := &game.StartInfo{
			Settings:      w.Start.Settings,
			InitialCaught: make(map[uuid.UUID]bool, len(w.Start.Roster)),
		}
		for _, r := range w.Start.Roster {
			info.InitialCaught[r.ID] = r.Seeker
		}
		return Message{Kind: KindStart, Start: info}, nil
	case kindGoodbye:
		return Message{Kind: kindGoodbye}, nil
	default:
		return Message{}, fmt.Errorf("unexpected %s message on the wire", w.Kind)
	}
}
