package music

import (
	"context"
	"sync"
)

// subscription runs a producer goroutine feeding a channel.
type subscription struct {
	events  chan Event
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	cleanup func() error
	err     error
}

// startSubscription runs produce until ctx is done or Close is called.
// produce must return once its context is done. cleanup, if set, runs after
// produce returns.
func startSubscription(ctx context.Context, buffer int, produce func(ctx context.Context, emit func(Event) bool), cleanup func() error) *subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &subscription{
		events:  make(chan Event, buffer),
		cancel:  cancel,
		done:    make(chan struct{}),
		cleanup: cleanup,
	}

	emit := func(ev Event) bool {
		select {
		case s.events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(s.done)
		defer close(s.events)
		produce(ctx, emit)
	}()

	return s
}

func (s *subscription) Events() <-chan Event {
	return s.events
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		if s.cleanup != nil {
			s.err = s.cleanup()
		}
	})
	return s.err
}
