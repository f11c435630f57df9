package bus

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// Sender is a bounded broadcast channel for a single message type.
//
// Every live Receiver observes every value sent after it subscribed, in send
// order. The buffer overwrites its oldest entry when full; receivers that fall
// behind by more than the capacity get a LaggedError instead of blocking Send.
type Sender[M any] struct {
	name     string
	observer Observer

	mu        sync.Mutex
	buf       []M
	tail      uint64
	receivers int
	closed    bool
	waiting   bool
	signal    chan struct{}
}

func newSender[M any](name string, capacity int, observer Observer) *Sender[M] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Sender[M]{
		name:     name,
		observer: observer,
		buf:      make([]M, capacity),
		signal:   make(chan struct{}),
	}
}

// Send broadcasts msg and returns the number of live receivers it was delivered to.
// Without receivers nothing is buffered and 0 is returned.
func (s *Sender[M]) Send(msg M) int {
	if !s.routable() {
		return 0
	}
	msg = duplicate(msg)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.receivers == 0 {
		return 0
	}
	s.buf[s.tail%uint64(len(s.buf))] = msg
	s.tail++
	if s.waiting {
		close(s.signal)
		s.signal = make(chan struct{})
		s.waiting = false
	}
	return s.receivers
}

func (s *Sender[M]) routable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.receivers > 0
}

// Subscribe creates a receiver positioned after the latest sent value.
func (s *Sender[M]) Subscribe() *Receiver[M] {
	s.mu.Lock()
	next := s.tail
	s.receivers++
	s.mu.Unlock()

	rel := &releaser{fn: s.release}
	r := &Receiver[M]{sender: s, next: next, rel: rel}
	runtime.AddCleanup(r, func(rel *releaser) { rel.do() }, rel)
	return r
}

// Close wakes every waiting receiver; all later receives report ErrClosed.
func (s *Sender[M]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.signal)
}

// ReceiverCount returns the number of live receivers.
func (s *Sender[M]) ReceiverCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.receivers
}

// Capacity returns the ring buffer size.
func (s *Sender[M]) Capacity() int {
	return len(s.buf)
}

func (s *Sender[M]) release() {
	s.mu.Lock()
	s.receivers--
	s.mu.Unlock()
}

type releaser struct {
	once sync.Once
	fn   func()
}

func (r *releaser) do() {
	r.once.Do(r.fn)
}

// Receiver is a subscription handle: a cursor over one channel's ring buffer.
// A Receiver must not be shared between goroutines.
type Receiver[M any] struct {
	sender  *Sender[M]
	next    uint64
	rel     *releaser
	dropped atomic.Bool
}

// Recv waits for the next value.
//
// It returns *LaggedError when values were overwritten before they could be
// read, ErrClosed once the channel is torn down and ctx.Err() on cancellation.
func (r *Receiver[M]) Recv(ctx context.Context) (M, error) {
	for {
		msg, signal, err := r.poll()
		if signal == nil {
			return r.deliver(msg, err)
		}
		select {
		case <-signal:
		case <-ctx.Done():
			var zero M
			return zero, ctx.Err()
		}
	}
}

// TryRecv returns the next value without waiting, or ErrEmpty.
func (r *Receiver[M]) TryRecv() (M, error) {
	msg, signal, err := r.poll()
	if signal != nil {
		var zero M
		return zero, ErrEmpty
	}
	return r.deliver(msg, err)
}

// Run consumes values until the channel closes or ctx is done.
// Lag is reported through onLag and consumption continues.
func (r *Receiver[M]) Run(ctx context.Context, handler func(M), onLag func(skipped uint64)) error {
	for {
		msg, err := r.Recv(ctx)
		if err == nil {
			handler(msg)
			continue
		}
		if skipped, ok := IsLagged(err); ok {
			if onLag != nil {
				onLag(skipped)
			}
			continue
		}
		if errors.Is(err, ErrClosed) {
			return nil
		}
		return err
	}
}

// Close drops the handle. Further receives report ErrClosed.
func (r *Receiver[M]) Close() {
	if r.dropped.CompareAndSwap(false, true) {
		r.rel.do()
	}
}

// poll returns a non-nil signal when the caller has to wait for it before retrying.
func (r *Receiver[M]) poll() (M, <-chan struct{}, error) {
	var zero M
	if r.dropped.Load() {
		return zero, nil, ErrClosed
	}

	s := r.sender
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return zero, nil, ErrClosed
	}
	if r.next == s.tail {
		s.waiting = true
		return zero, s.signal, nil
	}

	capacity := uint64(len(s.buf))
	if s.tail-r.next > capacity {
		oldest := s.tail - capacity
		skipped := oldest - r.next
		r.next = oldest
		return zero, nil, &LaggedError{Skipped: skipped}
	}
	msg := s.buf[r.next%capacity]
	r.next++
	return msg, nil, nil
}

func (r *Receiver[M]) deliver(msg M, err error) (M, error) {
	if err != nil {
		if skipped, ok := IsLagged(err); ok && r.sender.observer != nil {
			r.sender.observer.Lagged(r.sender.name, skipped)
		}
		return msg, err
	}
	return duplicate(msg), nil
}
