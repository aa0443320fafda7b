package pipeline

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out after %d events", len(out))
		}
	}
}

func TestEmitterPreservesOrder(t *testing.T) {
	em := NewEmitter(64, nil)
	for i := 0; i < 10; i++ {
		em.Emit(Partial(fmt.Sprint(i), 0))
	}
	em.Emit(Final("done", time.Second))
	em.Close()

	events := collect(t, em.Events())
	require.Len(t, events, 11)
	for i := 0; i < 10; i++ {
		assert.Equal(t, fmt.Sprint(i), events[i].Text)
	}
	assert.Equal(t, EventFinal, events[10].Kind)
}

func TestEmitterDropsOldestPartialUnderBackpressure(t *testing.T) {
	stats := &Stats{}
	em := NewEmitter(4, stats)

	em.Emit(Final("first", 0))
	for i := 1; i <= 50; i++ {
		em.Emit(Partial(fmt.Sprintf("p%02d", i), 0))
	}
	em.Emit(Final("second", 0))
	em.Close()

	events := collect(t, em.Events())
	require.NotEmpty(t, events)
	assert.Equal(t, Final("first", 0), events[0])
	assert.Equal(t, Final("second", 0), events[len(events)-1])

	var partials []string
	for _, ev := range events[1 : len(events)-1] {
		require.Equal(t, EventPartial, ev.Kind)
		partials = append(partials, ev.Text)
	}
	assert.Contains(t, partials, "p50", "newest partial must survive")
	assert.IsIncreasing(t, partials)
	assert.Equal(t, int64(50-len(partials)), stats.DroppedPartials.Load())
	assert.Equal(t, int64(2), stats.Finals.Load())
}

func TestEmitterNeverDropsFinals(t *testing.T) {
	em := NewEmitter(1, nil)
	go func() {
		for i := 0; i < 20; i++ {
			em.Emit(Final(fmt.Sprint(i), 0))
		}
		em.Emit(Failure(errors.New("boom")))
		em.Close()
	}()

	events := collect(t, em.Events())
	require.Len(t, events, 21)
	for i := 0; i < 20; i++ {
		assert.Equal(t, fmt.Sprint(i), events[i].Text)
	}
	assert.Equal(t, EventError, events[20].Kind)
	assert.Equal(t, "boom", events[20].Text)
}

func TestEmitterIgnoresEmitAfterClose(t *testing.T) {
	em := NewEmitter(0, nil)
	em.Emit(Final("kept", 0))
	em.Close()
	em.Emit(Final("ignored", 0))

	events := collect(t, em.Events())
	require.Len(t, events, 1)
	assert.Equal(t, "kept", events[0].Text)
}

func TestEventString(t *testing.T) {
	assert.Equal(t, `final@1.5s: "hi"`, Final("hi", 1500*time.Millisecond).String())
	assert.Equal(t, "error: bad", Failure(errors.New("bad")).String())
	assert.Equal(t, "EventKind(7)", EventKind(7).String())
}
