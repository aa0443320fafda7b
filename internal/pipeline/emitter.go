package pipeline

import "sync"

// DefaultEventBuffer is the emitter capacity used when none is configured.
const DefaultEventBuffer = 256

// Emitter is the ordered output queue of one run. It never blocks the
// producer on partials: when the queue is full the oldest queued partial is
// dropped to make room. Finals and errors are never dropped; if the queue
// holds only those, Emit waits for the consumer.
//
// Consumers must drain Events until it is closed.
type Emitter struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	queue    []Event
	capacity int
	closed   bool

	out   chan Event
	stats *Stats
}

// NewEmitter starts an emitter holding at most capacity queued events.
// capacity <= 0 selects DefaultEventBuffer. stats may be nil.
func NewEmitter(capacity int, stats *Stats) *Emitter {
	if capacity <= 0 {
		capacity = DefaultEventBuffer
	}
	if stats == nil {
		stats = &Stats{}
	}
	e := &Emitter{
		capacity: capacity,
		out:      make(chan Event),
		stats:    stats,
	}
	e.notEmpty = sync.NewCond(&e.mu)
	e.notFull = sync.NewCond(&e.mu)
	go e.forward()
	return e
}

// Events returns the consumer side. It is closed after Close once every
// queued event has been delivered.
func (e *Emitter) Events() <-chan Event {
	return e.out
}

// Emit queues ev. Emits after Close are ignored.
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	for len(e.queue) >= e.capacity {
		if e.dropOldestPartial() {
			break
		}
		if ev.Kind == EventPartial {
			// Nothing droppable queued; the incoming partial is the oldest
			// drop-eligible event.
			e.stats.DroppedPartials.Add(1)
			return
		}
		e.notFull.Wait()
		if e.closed {
			return
		}
	}

	e.queue = append(e.queue, ev)
	e.stats.count(ev)
	e.notEmpty.Signal()
}

func (e *Emitter) dropOldestPartial() bool {
	for i, q := range e.queue {
		if q.Kind != EventPartial {
			continue
		}
		copy(e.queue[i:], e.queue[i+1:])
		e.queue[len(e.queue)-1] = Event{}
		e.queue = e.queue[:len(e.queue)-1]
		e.stats.DroppedPartials.Add(1)
		return true
	}
	return false
}

// Close stops accepting events. Queued events are still delivered.
func (e *Emitter) Close() {
	e.mu.Lock()
	e.closed = true
	e.notEmpty.Broadcast()
	e.notFull.Broadcast()
	e.mu.Unlock()
}

func (e *Emitter) forward() {
	defer close(e.out)
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.closed {
			e.notEmpty.Wait()
		}
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return
		}
		ev := e.queue[0]
		e.queue[0] = Event{}
		e.queue = e.queue[1:]
		e.notFull.Signal()
		e.mu.Unlock()

		e.out <- ev
	}
}
