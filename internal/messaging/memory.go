package messaging

import (
	"strings"
	"sync"
)

// MemoryBus is an in-process bus for participants sharing one process.
// Like NATS, each subscription gets its own delivery goroutine, so ordering
// only holds per subscription. Subjects match on whole tokens with "*".
type MemoryBus struct {
	mu   sync.Mutex
	subs map[int]*memSub
	next int

	publishErr error
}

type memMsg struct {
	subject string
	data    []byte
}

type memSub struct {
	pattern []string
	ch      chan memMsg
	quit    chan struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: map[int]*memSub{}}
}

func (b *MemoryBus) Subscribe(subject string, handler func(subject string, data []byte)) (func(), error) {
	sub := &memSub{
		pattern: splitSubject(subject),
		ch:      make(chan memMsg, 4096),
		quit:    make(chan struct{}),
	}

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.quit:
				return
			case m := <-sub.ch:
				handler(m.subject, m.data)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.quit)
		})
	}, nil
}

func (b *MemoryBus) Publish(subject string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.publishErr != nil {
		return b.publishErr
	}

	tokens := splitSubject(subject)
	for _, sub := range b.subs {
		if !tokensMatch(sub.pattern, tokens) {
			continue
		}
		msg := memMsg{subject: subject, data: append([]byte(nil), data...)}
		select {
		case sub.ch <- msg:
		case <-sub.quit:
		}
	}
	return nil
}

// FailPublish makes every later Publish return err. A nil err heals the bus.
func (b *MemoryBus) FailPublish(err error) {
	b.mu.Lock()
	b.publishErr = err
	b.mu.Unlock()
}

// Ready is closed from the start; there is nothing to connect to.
func (b *MemoryBus) Ready() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func splitSubject(s string) []string {
	return strings.Split(s, ".")
}

func tokensMatch(pattern, subject []string) bool {
	if len(pattern) != len(subject) {
		return false
	}
	for i := range pattern {
		if pattern[i] != "*" && pattern[i] != subject[i] {
			return false
		}
	}
	return true
}
