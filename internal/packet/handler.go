package packet

import (
	"fmt"
	"slices"
	"sync"
)

// Decoder turns a fully reassembled message back into its value.
type Decoder[T any] func([]byte) (T, error)

// Handler reassembles packets into messages, keeping one pending buffer per
// sender. Packets from one sender must arrive in the order they were split.
type Handler[K comparable, T any] struct {
	decode   Decoder[T]
	partials map[K][][]byte

	mu sync.Mutex
}

func NewHandler[K comparable, T any](decode Decoder[T]) *Handler[K, T] {
	return &Handler[K, T]{
		decode:   decode,
		partials: map[K][][]byte{},
	}
}

// Consume feeds one packet from sender. It returns the decoded message and
// true once the final packet of a message arrives. Any error discards the
// sender's pending buffer since the rest of that sequence can no longer line up.
func (h *Handler[K, T]) Consume(sender K, pkt []byte) (T, bool, error) {
	var zero T

	h.mu.Lock()
	defer h.mu.Unlock()

	remaining, payload, err := Parse(pkt)
	if err != nil {
		delete(h.partials, sender)
		return zero, false, fmt.Errorf("decoding packet: %w", err)
	}

	if remaining > 0 {
		partial, ok := h.partials[sender]
		if !ok {
			partial = make([][]byte, 0, min(remaining+1, 64))
		}
		h.partials[sender] = append(partial, slices.Clone(payload))
		return zero, false, nil
	}

	data := payload
	if partial, ok := h.partials[sender]; ok {
		delete(h.partials, sender)
		data = slices.Concat(append(partial, payload)...)
	}

	msg, err := h.decode(data)
	if err != nil {
		return zero, false, fmt.Errorf("decoding message: %w", err)
	}

	return msg, true, nil
}

// Drop forgets any partial message from sender.
func (h *Handler[K, T]) Drop(sender K) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.partials, sender)
}

// Pending reports whether a partial message from sender is buffered.
func (h *Handler[K, T]) Pending(sender K) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.partials[sender]
	return ok
}
