package packet

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/pixil98/go-testutil"
)

func identity(b []byte) ([]byte, error) {
	return b, nil
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("reading random bytes: %v", err)
	}
	return b
}

func TestLimits_packetsNeeded(t *testing.T) {
	l := DefaultLimits()

	tests := map[string]struct {
		n      int
		exp    uint64
		expErr error
	}{
		"small message": {
			n:   5,
			exp: 1,
		},
		"exactly one payload": {
			n:   l.PayloadSize(),
			exp: 1,
		},
		"one byte over": {
			n:   l.PayloadSize() + 1,
			exp: 2,
		},
		"ceiling plus a bit": {
			n:   DefaultCeiling + 12,
			exp: 2,
		},
		"empty": {
			n:      0,
			expErr: ErrEmptyMessage,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := l.packetsNeeded(tt.n)
			if tt.expErr != nil {
				if !errors.Is(err, tt.expErr) {
					t.Fatalf("expected %v, got %v", tt.expErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "packets", got, tt.exp)
		})
	}
}

func TestSplit_TooManyPackets(t *testing.T) {
	l := Limits{Ceiling: HeaderSize + 4, MaxPackets: 2}

	_, err := Split(randomBytes(t, 9), l)
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}

	packets, err := Split(randomBytes(t, 8), l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "packet count", len(packets), 2)
}

func TestSplit_CeilingTooSmall(t *testing.T) {
	_, err := Split([]byte("x"), Limits{Ceiling: HeaderSize, MaxPackets: 10})
	if !errors.Is(err, ErrCeilingTooSmall) {
		t.Fatalf("expected ErrCeilingTooSmall, got %v", err)
	}
}

func TestSplit_Headers(t *testing.T) {
	l := Limits{Ceiling: HeaderSize + 3, MaxPackets: 100}

	packets, err := Split([]byte("abcdefgh"), l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "packet count", len(packets), 3)

	for i, pkt := range packets {
		if len(pkt) > l.Ceiling {
			t.Errorf("packet %d is %d bytes, over ceiling %d", i, len(pkt), l.Ceiling)
		}
		remaining, _, err := Parse(pkt)
		if err != nil {
			t.Fatalf("parsing packet %d: %v", i, err)
		}
		testutil.AssertEqual(t, "remaining", remaining, uint64(len(packets)-i-1))
	}

	_, last, _ := Parse(packets[2])
	testutil.AssertEqual(t, "last payload", string(last), "gh")
}

func TestParse_Short(t *testing.T) {
	_, _, err := Parse(make([]byte, HeaderSize))
	if !errors.Is(err, ErrShortPacket) {
		t.Fatalf("expected ErrShortPacket, got %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	l := DefaultLimits()

	tests := map[string]struct {
		limits Limits
		size   int
	}{
		"single byte":             {limits: l, size: 1},
		"exactly one packet":      {limits: l, size: l.PayloadSize()},
		"one byte into second":    {limits: l, size: l.PayloadSize() + 1},
		"several packets":         {limits: l, size: DefaultCeiling*5 + 35},
		"200KB over 64KB ceiling": {limits: Limits{Ceiling: 64 * 1024, MaxPackets: 1 << 20}, size: 200 * 1024},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			in := randomBytes(t, tt.size)

			packets, err := Split(in, tt.limits)
			if err != nil {
				t.Fatalf("split: %v", err)
			}

			h := NewHandler[string, []byte](identity)
			var out []byte
			for i, pkt := range packets {
				if len(pkt) > tt.limits.Ceiling {
					t.Fatalf("packet %d too large: %d > %d", i, len(pkt), tt.limits.Ceiling)
				}
				msg, done, err := h.Consume("peer", pkt)
				if err != nil {
					t.Fatalf("consume packet %d: %v", i, err)
				}
				testutil.AssertEqual(t, "done", done, i == len(packets)-1)
				if done {
					out = msg
				}
			}

			if !bytes.Equal(in, out) {
				t.Fatalf("reassembled message differs from input (%d vs %d bytes)", len(out), len(in))
			}
			testutil.AssertEqual(t, "pending", h.Pending("peer"), false)
		})
	}
}

func TestHandler_InterleavedSenders(t *testing.T) {
	l := Limits{Ceiling: HeaderSize + 2, MaxPackets: 100}

	a, err := Split([]byte("alpha!"), l)
	if err != nil {
		t.Fatalf("split a: %v", err)
	}
	b, err := Split([]byte("bravo!"), l)
	if err != nil {
		t.Fatalf("split b: %v", err)
	}

	h := NewHandler[string, []byte](identity)
	got := map[string]string{}
	for i := range a {
		for sender, pkt := range map[string][]byte{"a": a[i], "b": b[i]} {
			msg, done, err := h.Consume(sender, pkt)
			if err != nil {
				t.Fatalf("consume %s: %v", sender, err)
			}
			if done {
				got[sender] = string(msg)
			}
		}
	}

	testutil.AssertEqual(t, "a", got["a"], "alpha!")
	testutil.AssertEqual(t, "b", got["b"], "bravo!")
}

func TestHandler_DecodeFailureIsolated(t *testing.T) {
	l := Limits{Ceiling: HeaderSize + 2, MaxPackets: 100}
	failing := errors.New("bad message")

	h := NewHandler[string, string](func(b []byte) (string, error) {
		if bytes.HasPrefix(b, []byte("bad")) {
			return "", failing
		}
		return string(b), nil
	})

	bad, _ := Split([]byte("bad-data"), l)
	good, _ := Split([]byte("good"), l)

	// Start a good message, then break the other sender's stream entirely.
	if _, _, err := h.Consume("good", good[0]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, pkt := range bad {
		_, _, err := h.Consume("bad", pkt)
		if err != nil && !errors.Is(err, failing) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	testutil.AssertEqual(t, "bad pending", h.Pending("bad"), false)

	msg, done, err := h.Consume("good", good[1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "done", done, true)
	testutil.AssertEqual(t, "message", msg, "good")
}

func TestHandler_ShortPacketDropsPartial(t *testing.T) {
	l := Limits{Ceiling: HeaderSize + 2, MaxPackets: 100}
	packets, _ := Split([]byte("abcdef"), l)

	h := NewHandler[string, []byte](identity)
	if _, _, err := h.Consume("p", packets[0]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "pending", h.Pending("p"), true)

	_, _, err := h.Consume("p", []byte{1, 2})
	if !errors.Is(err, ErrShortPacket) {
		t.Fatalf("expected ErrShortPacket, got %v", err)
	}
	testutil.AssertEqual(t, "pending", h.Pending("p"), false)
}
