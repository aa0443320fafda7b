package vad

// sileroWindow is the Silero model's input size at 16 kHz.
const sileroWindow = 512

// windower realigns arbitrary frames onto whole model windows. The
// detector only scores windows that are followed by at least one more
// sample, so each batch handed out carries one trailing pad sample that
// is never scored.
type windower struct {
	size  int
	carry []float32
}

func newWindower(size int) *windower {
	return &windower{size: size}
}

// push appends frame and returns the whole windows now available plus the
// pad sample, or nil when less than one window is buffered. The returned
// slice is only valid until the next call.
func (w *windower) push(frame []float32) []float32 {
	w.carry = append(w.carry, frame...)
	n := len(w.carry) / w.size * w.size
	if n == 0 {
		return nil
	}
	batch := make([]float32, n+1)
	copy(batch, w.carry[:n])
	w.carry = append(w.carry[:0], w.carry[n:]...)
	return batch
}

// windows reports how many windows a batch from push holds.
func (w *windower) windows(batch []float32) int {
	if len(batch) == 0 {
		return 0
	}
	return (len(batch) - 1) / w.size
}

// pending returns the buffered sample count not yet handed out.
func (w *windower) pending() int { return len(w.carry) }

func (w *windower) reset() { w.carry = w.carry[:0] }
