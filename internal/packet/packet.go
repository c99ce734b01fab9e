// Package packet splits messages into size-capped packets and reassembles them.
//
// Every packet starts with a little-endian uint64 holding the number of packets
// still to come after it. A header of 0 marks the last packet of a message, so
// a receiver needs no separate length field to know a message is complete.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// HeaderSize is the width of the remaining-packets header in bytes.
const HeaderSize = 8

// DefaultCeiling is the hard packet size limit of a reliable WebRTC data channel.
const DefaultCeiling = 65535

var (
	ErrEmptyMessage    = errors.New("packet: message is empty")
	ErrMessageTooLarge = errors.New("packet: message needs more packets than the header can express")
	ErrShortPacket     = errors.New("packet: packet not longer than header")
	ErrCeilingTooSmall = errors.New("packet: ceiling leaves no room for payload")
)

// Limits constrains packet sizes.
type Limits struct {
	// Ceiling is the largest packet, header included, the channel will carry.
	Ceiling int
	// MaxPackets is the largest number of packets one message may be split into.
	MaxPackets uint64
}

func DefaultLimits() Limits {
	return Limits{
		Ceiling:    DefaultCeiling,
		MaxPackets: math.MaxUint64,
	}
}

// PayloadSize is the number of message bytes carried per packet.
func (l Limits) PayloadSize() int {
	return l.Ceiling - HeaderSize
}

func (l Limits) packetsNeeded(n int) (uint64, error) {
	if n == 0 {
		return 0, ErrEmptyMessage
	}
	size := l.PayloadSize()
	if size <= 0 {
		return 0, ErrCeilingTooSmall
	}
	needed := uint64(n+size-1) / uint64(size)
	if needed > l.MaxPackets {
		return 0, fmt.Errorf("%w: %d bytes need %d packets", ErrMessageTooLarge, n, needed)
	}
	return needed, nil
}

// Split cuts data into packets no larger than l.Ceiling. The returned packets
// do not alias data.
func Split(data []byte, l Limits) ([][]byte, error) {
	needed, err := l.packetsNeeded(len(data))
	if err != nil {
		return nil, err
	}

	size := l.PayloadSize()
	packets := make([][]byte, 0, needed)
	for i := uint64(1); i <= needed; i++ {
		chunk := data[:min(size, len(data))]
		data = data[len(chunk):]
		packets = append(packets, encode(needed-i, chunk))
	}

	if len(data) != 0 {
		return nil, fmt.Errorf("packet: %d bytes left after split", len(data))
	}

	return packets, nil
}

// Parse returns the remaining-packets header and payload of a single packet.
// The payload aliases pkt.
func Parse(pkt []byte) (uint64, []byte, error) {
	if len(pkt) <= HeaderSize {
		return 0, nil, ErrShortPacket
	}
	return binary.LittleEndian.Uint64(pkt[:HeaderSize]), pkt[HeaderSize:], nil
}

func encode(remaining uint64, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint64(buf[:HeaderSize], remaining)
	copy(buf[HeaderSize:], payload)
	return buf
}
