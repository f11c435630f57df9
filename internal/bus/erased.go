package bus

// anyChannel is a Sender with its message type erased so that channels of
// different types can share one registry.
type anyChannel interface {
	sendAny(v any) (int, error)
	subscribeAny() any
	receiverCount() int
	topic() string
	close()
}

var _ anyChannel = (*Sender[struct{}])(nil)

func (s *Sender[M]) sendAny(v any) (int, error) {
	msg, ok := v.(M)
	if !ok {
		return 0, ErrTypeMismatch
	}
	return s.Send(msg), nil
}

func (s *Sender[M]) subscribeAny() any {
	return s.Subscribe()
}

func (s *Sender[M]) receiverCount() int {
	return s.ReceiverCount()
}

func (s *Sender[M]) topic() string {
	return s.name
}

func (s *Sender[M]) close() {
	s.Close()
}
