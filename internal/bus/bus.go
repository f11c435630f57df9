/*
Package bus implements the in-memory message bus the actors talk through.

The bus owns one broadcast channel per message type. Channels are created on
the first Subscribe for that type and live until the bus is closed. Publishing
a type nobody subscribed to is a no-op.
*/
package bus

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Observer receives bus events for metrics. Implementations must be safe for concurrent use.
type Observer interface {
	ChannelCreated(topic string)
	Published(topic string, delivered int)
	Lagged(topic string, skipped uint64)
}

// Option configures a Bus.
type Option func(*Bus)

// WithObserver attaches an observer to the bus and every channel it creates.
func WithObserver(o Observer) Option {
	return func(b *Bus) {
		b.observer = o
	}
}

// Bus is the registry of typed broadcast channels. A *Bus is shared by reference.
type Bus struct {
	capacity int
	observer Observer

	mu       sync.RWMutex
	channels map[reflect.Type]anyChannel
	closed   bool
}

// New creates an empty bus. capacity is the ring buffer size of every channel.
func New(capacity int, opts ...Option) *Bus {
	if capacity <= 0 {
		capacity = 1
	}
	b := &Bus{
		capacity: capacity,
		channels: make(map[reflect.Type]anyChannel),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish broadcasts msg to every live subscriber of M and returns the delivered count.
//
// It never waits on subscribers. A type without a channel yields (0, nil).
// A non-nil error is either ErrClosed or a wrapped ErrTypeMismatch.
func Publish[M Message](b *Bus, msg M) (int, error) {
	key := typeKey[M]()

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return 0, ErrClosed
	}
	ch, ok := b.channels[key]
	b.mu.RUnlock()

	if !ok {
		if b.observer != nil {
			b.observer.Published(key.String(), 0)
		}
		return 0, nil
	}

	delivered, err := ch.sendAny(msg)
	if err != nil {
		return 0, fmt.Errorf("publish %s: %w", key, err)
	}
	if b.observer != nil {
		b.observer.Published(ch.topic(), delivered)
	}
	return delivered, nil
}

// Subscribe returns a new receiver for M, creating M's channel on first use.
//
// Subscribing on a closed bus returns a receiver that reports ErrClosed.
// It panics with ErrTypeMismatch if the registry holds a channel of the wrong
// type under M's key, which only an internal bug can cause.
func Subscribe[M Message](b *Bus) *Receiver[M] {
	key := typeKey[M]()

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return closedReceiver[M](key.String())
	}
	if ch, ok := b.channels[key]; ok {
		erased := ch.subscribeAny()
		b.mu.RUnlock()
		return recoverReceiver[M](key, erased)
	}
	b.mu.RUnlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return closedReceiver[M](key.String())
	}
	ch, ok := b.channels[key]
	if !ok {
		ch = newSender[M](key.String(), b.capacity, b.observer)
		b.channels[key] = ch
	}
	erased := ch.subscribeAny()
	b.mu.Unlock()

	if !ok && b.observer != nil {
		b.observer.ChannelCreated(key.String())
	}
	return recoverReceiver[M](key, erased)
}

// HasChannel reports whether a channel for M exists.
func HasChannel[M Message](b *Bus) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.channels[typeKey[M]()]
	return ok
}

// ReceiverCount returns the number of live receivers of M.
func ReceiverCount[M Message](b *Bus) int {
	b.mu.RLock()
	ch, ok := b.channels[typeKey[M]()]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	return ch.receiverCount()
}

// Close tears the bus down. Every receiver's next receive reports ErrClosed
// and later publishes return ErrClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	// no channel is inserted once closed is set
	for _, ch := range b.channels {
		ch.close()
	}
}

// Len returns the number of channels.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.channels)
}

// Topics returns the sorted labels of every channel.
func (b *Bus) Topics() []string {
	b.mu.RLock()
	topics := make([]string, 0, len(b.channels))
	for _, ch := range b.channels {
		topics = append(topics, ch.topic())
	}
	b.mu.RUnlock()
	sort.Strings(topics)
	return topics
}

// Capacity returns the ring buffer size shared by every channel.
func (b *Bus) Capacity() int {
	return b.capacity
}

func recoverReceiver[M Message](key reflect.Type, erased any) *Receiver[M] {
	rx, ok := erased.(*Receiver[M])
	if !ok {
		panic(fmt.Errorf("subscribe %s: got %T: %w", key, erased, ErrTypeMismatch))
	}
	return rx
}

func closedReceiver[M Message](name string) *Receiver[M] {
	s := newSender[M](name, 1, nil)
	s.Close()
	return s.Subscribe()
}
