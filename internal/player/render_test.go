package player

import (
	"math"
	"testing"

	"github.com/drgolem/loopah/pkg/looprange"
	"github.com/drgolem/loopah/pkg/types"
)

// rampAudio builds a mono buffer where frame i holds the value i, handy
// for checking playhead math in output samples.
func rampAudio(sampleRate int, frames int64) *types.MemoryAudio {
	data := make([]float32, frames)
	for i := range data {
		data[i] = float32(i)
	}
	return &types.MemoryAudio{
		SampleRate: sampleRate,
		Channels:   1,
		Frames:     frames,
		Data:       data,
	}
}

func TestMemoryRenderAdvancesPlayhead(t *testing.T) {
	src := rampAudio(1000, 1000)
	m := newMemoryState(src, 1000) // ratio 1

	out := make([]float32, 16)
	renderMemory(m, true, 1, out)

	for i, v := range out {
		if v != float32(i) {
			t.Errorf("sample %d: got %v, want %v", i, v, float32(i))
		}
	}
	if m.posFrame != 16 {
		t.Errorf("posFrame: got %v, want 16", m.posFrame)
	}
}

func TestMemoryInterpolation(t *testing.T) {
	// Source at half the device rate: every other output sample falls
	// between two source frames.
	src := rampAudio(500, 500)
	m := newMemoryState(src, 1000) // ratio 0.5

	out := make([]float32, 8)
	renderMemory(m, true, 1, out)

	want := []float32{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5}
	for i, v := range out {
		if math.Abs(float64(v-want[i])) > 1e-6 {
			t.Errorf("sample %d: got %v, want %v", i, v, want[i])
		}
	}
}

func TestMemoryPauseHoldsPosition(t *testing.T) {
	src := rampAudio(1000, 1000)
	m := newMemoryState(src, 1000)
	m.posFrame = 123

	out := make([]float32, 16)
	for i := range out {
		out[i] = 99 // stale data must be overwritten
	}
	renderMemory(m, false, 1, out)

	for i, v := range out {
		if v != 0 {
			t.Errorf("sample %d: got %v, want silence", i, v)
		}
	}
	if m.posFrame != 123 {
		t.Errorf("posFrame moved while paused: got %v, want 123", m.posFrame)
	}
}

func TestMemoryVolume(t *testing.T) {
	src := rampAudio(1000, 1000)
	m := newMemoryState(src, 1000)
	m.posFrame = 10

	out := make([]float32, 4)
	renderMemory(m, true, 0.5, out)

	want := []float32{5, 5.5, 6, 6.5}
	for i, v := range out {
		if math.Abs(float64(v-want[i])) > 1e-6 {
			t.Errorf("sample %d: got %v, want %v", i, v, want[i])
		}
	}
}

func TestMemoryEndOfBufferZeroFill(t *testing.T) {
	src := rampAudio(1000, 100)
	m := newMemoryState(src, 1000)

	out := make([]float32, 256)
	renderMemory(m, true, 1, out)

	// The last source frame has no successor to interpolate toward, so
	// frames 0..98 render and the rest is silence.
	for i := 0; i < 99; i++ {
		if out[i] != float32(i) {
			t.Errorf("sample %d: got %v, want %v", i, out[i], float32(i))
		}
	}
	for i := 99; i < len(out); i++ {
		if out[i] != 0 {
			t.Errorf("tail sample %d: got %v, want 0", i, out[i])
		}
	}
	if !m.finished() {
		t.Error("finished: got false, want true at end of buffer")
	}
}

func TestMemoryLoopStaysInBounds(t *testing.T) {
	src := rampAudio(1000, 13000)
	m := newMemoryState(src, 1000)

	r := looprange.Ordered(10, 12)
	m.setLoop(&r)
	if !m.hasLoop {
		t.Fatal("setLoop did not install a loop")
	}
	m.posFrame = 9000 // before the loop; first render pulls it inside

	out := make([]float32, 256)
	for pass := 0; pass < 40; pass++ {
		renderMemory(m, true, 1, out)
		if m.posFrame < m.loopStart || m.posFrame >= m.loopEnd {
			t.Fatalf("pass %d: posFrame %v outside [%v, %v)",
				pass, m.posFrame, m.loopStart, m.loopEnd)
		}
	}
	if m.finished() {
		t.Error("looping source reported finished")
	}
}

func TestMemoryLoopWrapPreservesOvershoot(t *testing.T) {
	src := rampAudio(1000, 13000)
	m := newMemoryState(src, 1000)

	r := looprange.Ordered(10, 12)
	m.setLoop(&r) // frames [10000, 12000)

	// Overshoot larger than the loop span wraps modulo the span.
	m.posFrame = 12000 + 2*2000 + 500.25
	m.enforceLoopBounds()
	if math.Abs(m.posFrame-10500.25) > 1e-9 {
		t.Errorf("posFrame: got %v, want 10500.25", m.posFrame)
	}

	// A playhead before the loop snaps to the loop start.
	m.posFrame = 9999
	m.enforceLoopBounds()
	if m.posFrame != m.loopStart {
		t.Errorf("posFrame: got %v, want loop start %v", m.posFrame, m.loopStart)
	}
}

func TestMemoryLoopAtBufferEdge(t *testing.T) {
	// A loop window reaching the end of the buffer must still render a
	// frame in every output slot; a skipped slot would leak whatever the
	// scratch buffer held from the previous callback.
	src := rampAudio(1000, 100)
	m := newMemoryState(src, 1000)

	r := looprange.Ordered(0.09, 0.2) // clamps to [0.09, 0.1], frames [90, 99)
	m.setLoop(&r)
	if !m.hasLoop {
		t.Fatal("setLoop did not install a loop")
	}
	if m.loopEnd != 99 {
		t.Fatalf("loopEnd: got %v, want 99 (last interpolable frame)", m.loopEnd)
	}
	m.posFrame = 90

	out := make([]float32, 32)
	for i := range out {
		out[i] = 999 // sentinel for unwritten slots
	}
	renderMemory(m, true, 1, out)

	for i, v := range out {
		want := float32(90 + i%9)
		if v != want {
			t.Errorf("sample %d: got %v, want %v", i, v, want)
		}
	}
	if m.posFrame < m.loopStart || m.posFrame >= m.loopEnd {
		t.Errorf("posFrame %v outside [%v, %v)", m.posFrame, m.loopStart, m.loopEnd)
	}
}

func TestMemorySetLoopDegenerate(t *testing.T) {
	src := rampAudio(1000, 1000)
	m := newMemoryState(src, 1000)

	// Equal endpoints collapse to nothing.
	r := looprange.Range{Start: 0.5, End: 0.5}
	m.setLoop(&r)
	if m.hasLoop {
		t.Error("zero-length loop was installed")
	}

	// A window entirely past the buffer clamps to a point at the end.
	r = looprange.Range{Start: 20, End: 30}
	m.setLoop(&r)
	if m.hasLoop {
		t.Error("out-of-range loop was installed")
	}

	// Clearing an installed loop.
	r = looprange.Ordered(0.1, 0.5)
	m.setLoop(&r)
	if !m.hasLoop {
		t.Fatal("valid loop was not installed")
	}
	m.setLoop(nil)
	if m.hasLoop {
		t.Error("setLoop(nil) did not clear the loop")
	}
}

func TestMemorySeekClamps(t *testing.T) {
	src := rampAudio(1000, 1000)
	m := newMemoryState(src, 1000)

	m.setPositionSeconds(-5)
	if m.posFrame != 0 {
		t.Errorf("seek below zero: got %v, want 0", m.posFrame)
	}

	m.setPositionSeconds(1e9)
	if m.posFrame != 1000 {
		t.Errorf("seek past end: got %v, want 1000", m.posFrame)
	}

	m.setPositionSeconds(0.25)
	if m.posFrame != 250 {
		t.Errorf("seek: got %v, want 250", m.posFrame)
	}
}

func chunkChannel(chunks ...[]float32) chan []float32 {
	ch := make(chan []float32, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	return ch
}

func TestStreamRendersChunksInOrder(t *testing.T) {
	first := make([]float32, 10)
	second := make([]float32, 10)
	for i := range first {
		first[i] = float32(i)
		second[i] = float32(10 + i)
	}
	ch := chunkChannel(first, second)
	close(ch)

	s := newStreamState(1000, 1, ch, 1000) // ratio 1
	out := make([]float32, 32)
	renderStream(s, true, 1, out)

	// The interpolation window holds one frame of lookahead, so the last
	// source frame is never emitted.
	for i := 0; i < 19; i++ {
		if out[i] != float32(i) {
			t.Errorf("sample %d: got %v, want %v", i, out[i], float32(i))
		}
	}
	for i := 19; i < len(out); i++ {
		if out[i] != 0 {
			t.Errorf("tail sample %d: got %v, want 0", i, out[i])
		}
	}
	if !s.finished {
		t.Error("finished: got false, want true after channel drained")
	}
}

func TestStreamUnderrunThenResume(t *testing.T) {
	ch := make(chan []float32, 4)
	ch <- []float32{0, 1, 2}

	s := newStreamState(1000, 1, ch, 1000)
	out := make([]float32, 8)
	renderStream(s, true, 1, out)

	if out[0] != 0 || out[1] != 1 {
		t.Errorf("first quantum: got %v, %v, want 0, 1", out[0], out[1])
	}
	for i := 2; i < len(out); i++ {
		if out[i] != 0 {
			t.Errorf("underrun sample %d: got %v, want silence", i, out[i])
		}
	}
	if s.finished {
		t.Error("finished during underrun with channel still open")
	}

	// More data arrives and the stream ends.
	ch <- []float32{3, 4, 5}
	close(ch)

	renderStream(s, true, 1, out)
	if out[0] != 3 || out[1] != 4 {
		t.Errorf("second quantum: got %v, %v, want 3, 4", out[0], out[1])
	}
	if !s.finished {
		t.Error("finished: got false, want true after close")
	}
}

func TestStreamPausedRendersSilence(t *testing.T) {
	ch := chunkChannel([]float32{1, 2, 3, 4})

	s := newStreamState(1000, 1, ch, 1000)
	out := make([]float32, 8)
	for i := range out {
		out[i] = 99
	}
	renderStream(s, false, 1, out)

	for i, v := range out {
		if v != 0 {
			t.Errorf("sample %d: got %v, want silence", i, v)
		}
	}
	if s.initialized {
		t.Error("paused render consumed frames")
	}
}

func TestStreamEmptyClosedChannelFinishes(t *testing.T) {
	ch := make(chan []float32)
	close(ch)

	s := newStreamState(1000, 2, ch, 1000)
	out := make([]float32, 16)
	renderStream(s, true, 1, out)

	for i, v := range out {
		if v != 0 {
			t.Errorf("sample %d: got %v, want 0", i, v)
		}
	}
	if !s.finished {
		t.Error("finished: got false, want true for empty stream")
	}
}

func TestStreamStereoInterleaving(t *testing.T) {
	// Two stereo frames per chunk; channels must stay paired.
	ch := chunkChannel(
		[]float32{0, 100, 1, 101},
		[]float32{2, 102, 3, 103},
	)
	close(ch)

	s := newStreamState(1000, 2, ch, 1000)
	out := make([]float32, 8)
	renderStream(s, true, 1, out)

	want := []float32{0, 100, 1, 101, 2, 102, 0, 0}
	for i, v := range out {
		if v != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, v, want[i])
		}
	}
}

func TestStreamResetClearsFinished(t *testing.T) {
	ch := chunkChannel([]float32{0, 1, 2})
	close(ch)

	s := newStreamState(1000, 1, ch, 1000)
	out := make([]float32, 8)
	renderStream(s, true, 1, out)
	if !s.finished {
		t.Fatal("stream did not finish after channel drained")
	}

	// Stop/Play after end-of-stream starts from a clean slate rather than
	// staying latched finished.
	s.reset()
	if s.finished {
		t.Error("finished still set after reset")
	}

	// With the channel closed and nothing pending, the next render
	// re-finishes with silence.
	renderStream(s, true, 1, out)
	for i, v := range out {
		if v != 0 {
			t.Errorf("sample %d: got %v, want 0", i, v)
		}
	}
	if !s.finished {
		t.Error("finished: got false, want true on re-render")
	}
}

func TestStreamReset(t *testing.T) {
	ch := chunkChannel([]float32{0, 1, 2, 3})

	s := newStreamState(1000, 1, ch, 1000)
	out := make([]float32, 2)
	renderStream(s, true, 1, out)

	s.reset()
	if s.initialized || s.posFrame != 0 || s.phase != 0 {
		t.Error("reset did not clear render state")
	}
	if s.pending.Len() != 0 {
		t.Errorf("pending after reset: got %d chunks, want 0", s.pending.Len())
	}
}
