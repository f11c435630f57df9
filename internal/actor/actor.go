/*
Package actor defines the lifecycle contract of the components wired around the bus.

An actor subscribes to every message type it depends on inside Start, before
returning, then consumes and publishes from the tasks it spawns. Publishing is
fire-and-forget.
*/
package actor

import (
	"context"
	"errors"

	"github.com/yanun0323/logs"

	"msgbus/internal/bus"
)

// Actor starts background work against the bus.
type Actor interface {
	Name() string
	Start(ctx context.Context) []*Task
}

// StartAll starts every actor in order and collects their tasks.
func StartAll(ctx context.Context, actors ...Actor) []*Task {
	var tasks []*Task
	for _, a := range actors {
		started := a.Start(ctx)
		logs.Infof("[%s] started, tasks: %d", a.Name(), len(started))
		tasks = append(tasks, started...)
	}
	return tasks
}

// Consume runs rx until the bus closes or ctx is done, logging lag.
// The receiver is closed on return.
func Consume[M bus.Message](ctx context.Context, tag string, rx *bus.Receiver[M], handle func(M)) {
	defer rx.Close()

	topic := bus.TopicOf[M]()
	err := rx.Run(ctx, handle, func(skipped uint64) {
		logs.Warnf("[%s] lagged by %d %s", tag, skipped, topic)
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logs.Errorf("[%s] consume %s, err: %+v", tag, topic, err)
		return
	}
	logs.Debugf("[%s] stop consuming %s", tag, topic)
}
