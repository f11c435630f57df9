package bus

import (
	"fmt"
	"reflect"
)

// Message is the contract every value travelling through the bus satisfies.
//
// Messages are delivered by value. A message that owns reference data (slices,
// maps, pointers) should implement Cloner so each subscriber gets its own copy.
type Message interface {
	fmt.Stringer
}

// Cloner is implemented by messages that need a deep copy per delivery.
type Cloner[M any] interface {
	Clone() M
}

// TopicOf returns the label of M's type identity.
func TopicOf[M Message]() string {
	return typeKey[M]().String()
}

func typeKey[M Message]() reflect.Type {
	return reflect.TypeFor[M]()
}

func duplicate[M any](msg M) M {
	if c, ok := any(msg).(Cloner[M]); ok {
		return c.Clone()
	}
	return msg
}
