package actor

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"msgbus/internal/bus"
)

type ping int

func (p ping) String() string { return fmt.Sprintf("ping(%d)", int(p)) }

type pingActor struct {
	bus      *bus.Bus
	received atomic.Int64
}

func (a *pingActor) Name() string { return "PING" }

func (a *pingActor) Start(ctx context.Context) []*Task {
	rx := bus.Subscribe[ping](a.bus)
	return []*Task{
		Go(ctx, "ping-consumer", func(ctx context.Context) {
			Consume(ctx, a.Name(), rx, func(ping) {
				a.received.Add(1)
			})
		}),
	}
}

func TestTaskAbortAndWait(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	task := Go(t.Context(), "sleeper", func(ctx context.Context) {
		<-ctx.Done()
	})
	assert.Equal(t, "sleeper", task.Name())

	select {
	case <-task.Done():
		t.Fatal("task finished before abort")
	default:
	}

	task.Abort()
	task.Wait()
}

func TestWaitAllReportsPending(t *testing.T) {
	release := make(chan struct{})
	stuck := Go(t.Context(), "stuck", func(context.Context) {
		<-release
	})
	finished := Go(t.Context(), "finished", func(context.Context) {})
	finished.Wait()

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, []string{"stuck"}, WaitAll(ctx, []*Task{finished, stuck}))

	close(release)
	assert.Empty(t, WaitAll(t.Context(), []*Task{finished, stuck}))
}

func TestStartAllAndConsume(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := bus.New(8)
	a := &pingActor{bus: b}
	tasks := StartAll(t.Context(), a)
	require.Len(t, tasks, 1)
	require.Equal(t, 1, bus.ReceiverCount[ping](b))

	for i := range 3 {
		n, err := bus.Publish(b, ping(i))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
	require.Eventually(t, func() bool { return a.received.Load() == 3 }, time.Second, 5*time.Millisecond)

	AbortAll(tasks)
	assert.Empty(t, WaitAll(t.Context(), tasks))
	assert.Equal(t, 0, bus.ReceiverCount[ping](b), "consumer releases its receiver")
}

func TestConsumeStopsOnBusClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := bus.New(8)
	tasks := StartAll(t.Context(), &pingActor{bus: b})

	b.Close()
	assert.Empty(t, WaitAll(t.Context(), tasks))
}
