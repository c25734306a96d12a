// Package preview computes the downsampled mono RMS amplitude summary used
// to draw a waveform overview of a decoded file.
package preview

import "math"

// WindowFrames returns the preview window length in frames (~20ms of audio).
func WindowFrames(sampleRate int) int {
	w := int(math.Round(float64(sampleRate) / 50.0))
	if w < 1 {
		w = 1
	}
	return w
}

// Accumulator computes one RMS value per fixed-size window of mono-averaged
// frames. Accumulation carries across packet boundaries, so window
// boundaries are independent of packet size; Flush emits the trailing
// partial window at end of stream.
type Accumulator struct {
	window int
	sumSq  float64
	count  int
	values []float32
}

// NewAccumulator creates an accumulator with the ~20ms window for sampleRate.
func NewAccumulator(sampleRate int) *Accumulator {
	return &Accumulator{window: WindowFrames(sampleRate)}
}

// Push consumes one packet of interleaved PCM. Each frame is averaged to
// mono before entering the running sum of squares.
func (a *Accumulator) Push(pcm []float32, channels int) {
	if channels <= 0 {
		return
	}
	frames := len(pcm) / channels
	for f := 0; f < frames; f++ {
		base := f * channels
		var sum float32
		for c := 0; c < channels; c++ {
			sum += pcm[base+c]
		}
		mono := float64(sum) / float64(channels)

		a.sumSq += mono * mono
		a.count++

		if a.count == a.window {
			a.emit()
		}
	}
}

// Flush emits the trailing partial window, if any. Call once at end of
// stream; calling it with an empty accumulator is a no-op.
func (a *Accumulator) Flush() {
	if a.count > 0 {
		a.emit()
	}
}

// Values returns the preview computed so far, in time order.
func (a *Accumulator) Values() []float32 {
	return a.values
}

func (a *Accumulator) emit() {
	rms := math.Sqrt(a.sumSq / float64(a.count))
	a.values = append(a.values, float32(rms))
	a.sumSq = 0
	a.count = 0
}
