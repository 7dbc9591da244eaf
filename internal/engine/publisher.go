package engine

import "sync"

// DefaultBufferSize is the per-subscriber channel buffer.
const DefaultBufferSize = 16

// Publisher fans values out to subscribers over buffered channels.
// Publish never blocks: a subscriber whose buffer is full misses the value.
type Publisher[T any] struct {
	mu         sync.RWMutex
	subs       []chan T
	bufferSize int
	closed     bool
}

// NewPublisher creates a publisher with the given per-subscriber buffer.
func NewPublisher[T any](bufferSize int) *Publisher[T] {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Publisher[T]{bufferSize: bufferSize}
}

// Publish sends v to every subscriber.
func (p *Publisher[T]) Publish(v T) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}
	for _, ch := range p.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Subscribe returns a channel of future values and a func that
// unsubscribes and closes the channel. The func is safe to call twice.
func (p *Publisher[T]) Subscribe() (<-chan T, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan T, p.bufferSize)
	if p.closed {
		close(ch)
		return ch, func() {}
	}
	p.subs = append(p.subs, ch)

	var once sync.Once
	return ch, func() {
		once.Do(func() { p.unsubscribe(ch) })
	}
}

func (p *Publisher[T]) unsubscribe(ch chan T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, sub := range p.subs {
		if sub == ch {
			p.subs = append(p.subs[:i], p.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close closes every subscription. Later Publish calls are dropped.
func (p *Publisher[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for _, ch := range p.subs {
		close(ch)
	}
	p.subs = nil
}
