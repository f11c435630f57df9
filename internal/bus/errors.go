package bus

import (
	"errors"
	"strconv"
)

var (
	// ErrClosed is returned once the bus, and with it every channel, is torn down.
	ErrClosed = errors.New("bus closed")
	// ErrEmpty is returned by TryRecv when no value is buffered.
	ErrEmpty = errors.New("channel empty")
	// ErrTypeMismatch means the registry recovered the wrong concrete type for a key.
	// It is never caused by callers.
	ErrTypeMismatch = errors.New("bus internal type corruption")
)

// LaggedError reports that a receiver fell behind and Skipped values were dropped.
type LaggedError struct {
	Skipped uint64
}

func (e *LaggedError) Error() string {
	return "receiver lagged by " + strconv.FormatUint(e.Skipped, 10)
}

// IsLagged reports whether err is a lag notification and how many values were skipped.
func IsLagged(err error) (uint64, bool) {
	var lagged *LaggedError
	if errors.As(err, &lagged) {
		return lagged.Skipped, true
	}
	return 0, false
}
