//go:build !silero

package vad

// SileroClassifier is unavailable without the silero build tag.
type SileroClassifier struct{}

// NewSileroClassifier returns ErrClassifierUnavailable in builds without the
// silero tag.
func NewSileroClassifier(string, float32, int) (*SileroClassifier, error) {
	return nil, ErrClassifierUnavailable
}

// Probability implements Classifier.
func (*SileroClassifier) Probability([]float32) (float32, error) {
	return 0, ErrClassifierUnavailable
}

// Reset implements Classifier.
func (*SileroClassifier) Reset() {}

// Close implements Classifier.
func (*SileroClassifier) Close() error { return nil }
