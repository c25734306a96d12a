package player

import (
	"math"

	"github.com/drgolem/loopah/pkg/chunkring"
	"github.com/drgolem/loopah/pkg/looprange"
	"github.com/drgolem/loopah/pkg/types"
)

// memoryState is the render state for a fully decoded buffer. The playhead
// is a fractional source-frame position advanced by ratio (source frames
// per output frame), with linear interpolation between adjacent frames.
type memoryState struct {
	src      *types.MemoryAudio
	posFrame float64
	ratio    float64

	loopStart float64 // in source frames
	loopEnd   float64
	hasLoop   bool
}

func newMemoryState(src *types.MemoryAudio, outputRate float64) *memoryState {
	return &memoryState{
		src:   src,
		ratio: float64(src.SampleRate) / outputRate,
	}
}

// setLoop installs a loop window given in seconds. Bounds are snapped
// outward to whole frames (floor start, ceil end); the end is capped at
// the last frame with an interpolation successor, so a wrapped playhead
// always has two source frames to render from. A window shorter than one
// frame clears the loop instead.
func (m *memoryState) setLoop(r *looprange.Range) {
	if r == nil {
		m.hasLoop = false
		return
	}

	c := r.Clamp(m.src.DurationSeconds())
	start := math.Floor(c.Start * float64(m.src.SampleRate))
	end := math.Ceil(c.End * float64(m.src.SampleRate))
	if end > float64(m.src.Frames-1) {
		end = float64(m.src.Frames - 1)
	}
	if end-start < 1 {
		m.hasLoop = false
		return
	}

	m.loopStart = start
	m.loopEnd = end
	m.hasLoop = true
}

func (m *memoryState) setPositionSeconds(sec float64) {
	pos := sec * float64(m.src.SampleRate)
	if pos < 0 {
		pos = 0
	}
	if max := float64(m.src.Frames); pos > max {
		pos = max
	}
	m.posFrame = pos
}

func (m *memoryState) resetToLoopStart() {
	if m.hasLoop {
		m.posFrame = m.loopStart
	} else {
		m.posFrame = 0
	}
}

// enforceLoopBounds wraps the playhead back into [loopStart, loopEnd),
// preserving the overshoot so loop timing stays sample accurate even when
// a render quantum jumps past the loop end. A playhead before the window,
// from a seek, snaps to the loop start instead.
func (m *memoryState) enforceLoopBounds() {
	if !m.hasLoop {
		return
	}
	if m.posFrame < m.loopStart {
		m.posFrame = m.loopStart
		return
	}
	if m.posFrame < m.loopEnd {
		return
	}

	span := m.loopEnd - m.loopStart
	off := math.Mod(m.posFrame-m.loopStart, span)
	m.posFrame = m.loopStart + off
}

func (m *memoryState) finished() bool {
	if m.hasLoop {
		return false
	}
	return m.posFrame >= float64(m.src.Frames-1)
}

// renderMemory fills out with interleaved output frames resampled from the
// in-memory buffer. Paused state and exhausted buffers render silence; the
// playhead only advances for frames actually rendered.
func renderMemory(m *memoryState, playing bool, volume float32, out []float32) {
	channels := m.src.Channels
	frames := len(out) / channels

	if !playing || channels == 0 {
		clear(out)
		return
	}

	data := m.src.Data
	total := m.src.Frames
	rendered := 0

	for f := 0; f < frames; f++ {
		m.enforceLoopBounds()

		// With a loop active the playhead was just wrapped below
		// loopEnd <= total-1, so this only triggers at end of data.
		i0 := int64(m.posFrame)
		if i0 >= total-1 {
			break
		}
		frac := float32(m.posFrame - float64(i0))

		b0 := i0 * int64(channels)
		b1 := b0 + int64(channels)
		base := f * channels
		for c := 0; c < channels; c++ {
			s0 := data[b0+int64(c)]
			s1 := data[b1+int64(c)]
			out[base+c] = (s0 + (s1-s0)*frac) * volume
		}

		m.posFrame += m.ratio
		rendered++
	}

	clear(out[rendered*channels:])

	// Keep the reported position in bounds between quanta.
	m.enforceLoopBounds()
	if !m.hasLoop && m.posFrame > float64(total) {
		m.posFrame = float64(total)
	}
}

// streamState renders PCM while it is still being decoded. Chunks arrive on
// a channel, queue in an SPSC ring, and are consumed one source frame at a
// time through a two-frame interpolation window driven by a phase
// accumulator.
type streamState struct {
	chunks  <-chan []float32
	pending *chunkring.Ring

	sampleRate int
	channels   int
	ratio      float64

	chunkOffset int // frames consumed from the head chunk
	prev        []float32
	next        []float32
	initialized bool
	phase       float64
	posFrame    float64

	closed   bool
	finished bool
}

// pendingChunks is the ring capacity for buffered decode chunks. Chunks
// beyond this stay queued in the channel until the ring drains.
const pendingChunks = 64

func newStreamState(sampleRate, channels int, chunks <-chan []float32, outputRate float64) *streamState {
	return &streamState{
		chunks:     chunks,
		pending:    chunkring.New(pendingChunks),
		sampleRate: sampleRate,
		channels:   channels,
		ratio:      float64(sampleRate) / outputRate,
	}
}

// drainChunks moves decoded chunks from the channel into the ring without
// blocking, stopping when the ring is full or the channel is empty.
func (s *streamState) drainChunks() {
	for !s.closed && s.pending.Free() > 0 {
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				s.closed = true
				return
			}
			if len(chunk) > 0 {
				s.pending.Push(chunk)
			}
		default:
			return
		}
	}
}

// readFrame returns the next source frame from the pending queue, or false
// if none is available yet. The returned slice aliases the chunk, which is
// immutable once decoded.
func (s *streamState) readFrame() ([]float32, bool) {
	if s.pending.Len() == 0 {
		s.drainChunks()
	}

	chunk, ok := s.pending.Peek()
	if !ok {
		return nil, false
	}

	base := s.chunkOffset * s.channels
	frame := chunk[base : base+s.channels]

	s.chunkOffset++
	if s.chunkOffset*s.channels >= len(chunk) {
		s.pending.Pop()
		s.chunkOffset = 0
	}
	return frame, true
}

func (s *streamState) reset() {
	s.pending.Reset()
	s.chunkOffset = 0
	s.prev = nil
	s.next = nil
	s.initialized = false
	s.phase = 0
	s.posFrame = 0
	// A restart after end-of-stream re-evaluates the channel instead of
	// staying latched finished.
	s.finished = false
}

// renderStream fills out with interpolated output frames pulled from the
// pending decode chunks. An underrun renders silence for the rest of the
// quantum without losing phase; a closed channel with an empty queue marks
// the stream finished.
func renderStream(s *streamState, playing bool, volume float32, out []float32) {
	channels := s.channels
	frames := len(out) / channels

	if !playing || channels == 0 || s.finished {
		clear(out)
		return
	}

	s.drainChunks()
	rendered := 0

	for f := 0; f < frames; f++ {
		if !s.initialized {
			prev, ok := s.readFrame()
			if !ok {
				if s.closed && s.pending.Len() == 0 {
					s.finished = true
				}
				break
			}
			next, ok := s.readFrame()
			if !ok {
				next = prev
			}
			s.prev = prev
			s.next = next
			s.phase = 0
			s.initialized = true
		}

		frac := float32(s.phase)
		base := f * channels
		for c := 0; c < channels; c++ {
			s0 := s.prev[c]
			s1 := s.next[c]
			out[base+c] = (s0 + (s1-s0)*frac) * volume
		}
		rendered++

		s.phase += s.ratio
		s.posFrame += s.ratio

		underrun := false
		for s.phase >= 1 {
			s.phase--
			frame, ok := s.readFrame()
			if !ok {
				if s.closed && s.pending.Len() == 0 {
					s.finished = true
				} else {
					// Decoder has not caught up. Drop the window and
					// rebuild it once data arrives.
					s.initialized = false
					underrun = true
				}
				break
			}
			s.prev = s.next
			s.next = frame
		}
		if s.finished || underrun {
			break
		}
	}

	clear(out[rendered*channels:])
}
