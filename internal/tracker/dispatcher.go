package tracker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/NamanBalaji/dltrack/internal/errors"
)

// ErrDispatcherStopped is returned by a Dispatcher's listener after Stop.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

// Dispatcher moves delivery of events to a dedicated goroutine so a slow
// listener does not hold up the manager. Events are delivered in the order
// they were queued. When the queue holds size events non-terminal events are
// dropped; terminal events are always queued. Enqueueing never blocks, so the
// wrapped listener may call back into the Manager.
type Dispatcher struct {
	id       string
	size     int
	listener Listener
	log      Logger

	mu      sync.Mutex
	queue   []Event
	stopped bool

	wake    chan struct{}
	dropped atomic.Int64
	started atomic.Bool

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher queueing up to size non-terminal events for l.
func NewDispatcher(id string, size int, l Listener, log Logger) *Dispatcher {
	if size < 1 {
		size = 1
	}

	if log == nil {
		log = defaultLogger()
	}

	return &Dispatcher{
		id:       id,
		size:     size,
		listener: l,
		log:      log,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Listener returns the enqueueing listener to hand to Manager.AddListener.
func (d *Dispatcher) Listener() Listener {
	return func(ev Event) error {
		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return ErrDispatcherStopped
		}

		if !ev.Type.IsTerminal() && len(d.queue) >= d.size {
			d.mu.Unlock()
			d.dropped.Add(1)
			d.log.Debugf("dispatcher %s queue full, dropped %s event for %s", d.id, ev.Type, ev.RequestID)

			return nil
		}

		d.queue = append(d.queue, ev)
		d.mu.Unlock()

		select {
		case d.wake <- struct{}{}:
		default:
		}

		return nil
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Start begins delivering queued events until ctx is done or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	if !d.started.CompareAndSwap(false, true) {
		return
	}

	d.wg.Add(1)
	go d.run(ctx)
}

// Stop refuses new events, delivers what is already queued and waits for the
// goroutine to exit.
func (d *Dispatcher) Stop() {
	d.shutdown()
	d.wg.Wait()
}

func (d *Dispatcher) shutdown() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()

		close(d.done)
	})
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-d.wake:
			d.drain()
		case <-d.done:
			d.drain()
			return
		case <-ctx.Done():
			d.shutdown()
			d.drain()
			return
		}
	}
}

// drain delivers everything queued so far. Once stopped is set nothing else
// can be queued, so a drain after shutdown is final.
func (d *Dispatcher) drain() {
	for {
		d.mu.Lock()
		batch := d.queue
		d.queue = nil
		d.mu.Unlock()

		if len(batch) == 0 {
			return
		}

		for _, ev := range batch {
			d.deliver(ev)
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("error in dispatched listener: %v",
				errors.NewListenerError(fmt.Errorf("panic: %v", r), d.id))
		}
	}()

	if err := d.listener(ev); err != nil {
		d.log.Errorf("error in dispatched listener: %v", errors.NewListenerError(err, d.id))
	}
}
