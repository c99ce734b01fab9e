package transport

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ugorji/go/codec"
)

// presenceOp is what a presence announcement says about its sender.
type presenceOp uint8

const (
	opJoin presenceOp = iota + 1
	opHere
	opBeat
)

type presence struct {
	Op   presenceOp `codec:"op"`
	From uuid.UUID  `codec:"from"`
}

func encodePresence(p presence) ([]byte, error) {
	var out []byte
	if err := codec.NewEncoderBytes(&out, mh).Encode(p); err != nil {
		return nil, fmt.Errorf("encoding presence: %w", err)
	}
	return out, nil
}

func decodePresence(data []byte) (presence, error) {
	var p presence
	if err := codec.NewDecoderBytes(data, mh).Decode(&p); err != nil {
		return presence{}, fmt.Errorf("decoding presence: %w", err)
	}
	return p, nil
}

const subjectPrefix = "manhunt"

func presenceSubject(room string) string {
	return fmt.Sprintf("%s.%s.presence", subjectPrefix, room)
}

// peerSubject is where from publishes packets meant for to.
func peerSubject(room string, to, from uuid.UUID) string {
	return fmt.Sprintf("%s.%s.peer.%s.%s", subjectPrefix, room, to, from)
}

func inboxSubject(room string, self uuid.UUID) string {
	return fmt.Sprintf("%s.%s.peer.%s.*", subjectPrefix, room, self)
}

// senderOf pulls the sending participant out of a peer subject.
func senderOf(subject string) (uuid.UUID, error) {
	i := strings.LastIndexByte(subject, '.')
	if i < 0 {
		return uuid.Nil, fmt.Errorf("subject %q has no sender", subject)
	}
	return uuid.Parse(subject[i+1:])
}
