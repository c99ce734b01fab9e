package messaging

import (
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

func TestTokensMatch(t *testing.T) {
	tests := map[string]struct {
		pattern string
		subject string
		exp     bool
	}{
		"exact":          {pattern: "a.b.c", subject: "a.b.c", exp: true},
		"wildcard":       {pattern: "a.*.c", subject: "a.x.c", exp: true},
		"trailing":       {pattern: "a.b.*", subject: "a.b.c", exp: true},
		"too short":      {pattern: "a.b.*", subject: "a.b", exp: false},
		"different":      {pattern: "a.b.c", subject: "a.b.d", exp: false},
		"partial tokens": {pattern: "a.b", subject: "a.bc", exp: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := tokensMatch(splitSubject(tt.pattern), splitSubject(tt.subject))
			testutil.AssertEqual(t, "match", got, tt.exp)
		})
	}
}

func TestMemoryBus_Delivery(t *testing.T) {
	bus := NewMemoryBus()

	got := make(chan string, 2)
	unsub, err := bus.Subscribe("room.*", func(subject string, data []byte) {
		got <- subject + "=" + string(data)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := bus.Publish("room.one", []byte("1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bus.Publish("other.one", []byte("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bus.Publish("room.two", []byte("2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, exp := range []string{"room.one=1", "room.two=2"} {
		select {
		case msg := <-got:
			testutil.AssertEqual(t, "message", msg, exp)
		case <-time.After(time.Second):
			t.Fatalf("never received %s", exp)
		}
	}

	unsub()
	unsub()
	if err := bus.Publish("room.three", []byte("3")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case msg := <-got:
		t.Fatalf("received %s after unsubscribing", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBus_FailPublish(t *testing.T) {
	bus := NewMemoryBus()

	bus.FailPublish(errors.New("cable cut"))
	testutil.AssertErrorContains(t, bus.Publish("a", nil), "cable cut")

	bus.FailPublish(nil)
	testutil.AssertEqual(t, "healed", bus.Publish("a", nil) == nil, true)
}
