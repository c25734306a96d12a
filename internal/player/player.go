// Package player renders decoded PCM to an output device through a
// PortAudio callback stream.
//
// Thread safety model:
//   - The render state lives behind a mutex shared by the control methods
//     and the audio callback.
//   - The callback runs on PortAudio's C thread and must never block, so
//     it uses TryLock and renders silence when a control call holds the
//     lock.
//   - Decoded chunks flow producer -> channel -> SPSC ring -> callback,
//     so the callback never touches the channel directly.
package player

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sync"

	"github.com/drgolem/go-portaudio/portaudio"

	"github.com/drgolem/loopah/pkg/looprange"
	"github.com/drgolem/loopah/pkg/types"
)

// Config holds player configuration.
type Config struct {
	DeviceIndex     int     // Audio output device index
	OutputRate      float64 // Device sample rate in Hz
	FramesPerBuffer int     // Portaudio buffer size in frames
}

// DefaultConfig returns default player configuration.
func DefaultConfig() Config {
	return Config{
		DeviceIndex:     1,
		OutputRate:      48000,
		FramesPerBuffer: 512,
	}
}

// state is the render state guarded by Player.mu. Exactly one of memory
// and stream is non-nil.
type state struct {
	memory  *memoryState
	stream  *streamState
	playing bool
	volume  float32
}

// Player plays one audio source, either a fully decoded buffer or a live
// decode stream, on a PortAudio callback stream. Playback is resampled by
// linear interpolation when the source rate differs from the device rate.
type Player struct {
	cfg      Config
	channels int
	fileName string
	stream   *portaudio.PaStream
	scratch  []float32

	mu sync.Mutex
	st *state
}

// FromMemory creates a player over a fully decoded buffer and starts the
// output stream paused.
func FromMemory(src *types.MemoryAudio, fileName string, cfg Config) (*Player, error) {
	p := &Player{
		cfg:      cfg,
		channels: src.Channels,
		fileName: filepath.Base(fileName),
		st: &state{
			memory: newMemoryState(src, cfg.OutputRate),
			volume: 1,
		},
	}
	if err := p.openStream(); err != nil {
		return nil, err
	}
	return p, nil
}

// FromStream creates a player that renders chunks as they arrive from a
// decode job, and starts the output stream paused. The chunk channel must
// be closed by the producer at end of stream.
func FromStream(sampleRate, channels int, chunks <-chan []float32, fileName string, cfg Config) (*Player, error) {
	p := &Player{
		cfg:      cfg,
		channels: channels,
		fileName: filepath.Base(fileName),
		st: &state{
			stream: newStreamState(sampleRate, channels, chunks, cfg.OutputRate),
			volume: 1,
		},
	}
	if err := p.openStream(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Player) openStream() error {
	p.scratch = make([]float32, p.cfg.FramesPerBuffer*p.channels)

	p.stream = &portaudio.PaStream{
		OutputParameters: &portaudio.PaStreamParameters{
			DeviceIndex:  p.cfg.DeviceIndex,
			ChannelCount: p.channels,
			SampleFormat: portaudio.SampleFmtInt16,
		},
		SampleRate: p.cfg.OutputRate,
	}

	if err := p.stream.OpenCallback(p.cfg.FramesPerBuffer, p.audioCallback); err != nil {
		return fmt.Errorf("%w: open stream: %v", types.ErrDevice, err)
	}
	if err := p.stream.StartStream(); err != nil {
		p.stream.CloseCallback()
		return fmt.Errorf("%w: start stream: %v", types.ErrDevice, err)
	}

	slog.Debug("Output stream started",
		"device", p.cfg.DeviceIndex,
		"rate", p.cfg.OutputRate,
		"channels", p.channels)
	return nil
}

// audioCallback runs on PortAudio's C thread. It must not block, so a
// contended lock renders one quantum of silence instead of waiting.
func (p *Player) audioCallback(
	input, output []byte,
	frameCount uint,
	timeInfo *portaudio.StreamCallbackTimeInfo,
	statusFlags portaudio.StreamCallbackFlags,
) portaudio.StreamCallbackResult {

	samples := int(frameCount) * p.channels
	if samples > len(p.scratch) {
		p.scratch = make([]float32, samples)
	}
	buf := p.scratch[:samples]

	if !p.mu.TryLock() {
		clear(output)
		return portaudio.Continue
	}
	st := p.st
	if st.memory != nil {
		renderMemory(st.memory, st.playing, st.volume, buf)
	} else {
		renderStream(st.stream, st.playing, st.volume, buf)
	}
	p.mu.Unlock()

	floatToInt16LE(buf, output)
	return portaudio.Continue
}

// floatToInt16LE converts [-1, 1] samples to interleaved little-endian
// int16 bytes, clamping out-of-range values.
func floatToInt16LE(in []float32, out []byte) {
	for i, s := range in {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		out[2*i] = byte(v)
		out[2*i+1] = byte(uint16(v) >> 8)
	}
}

// Play starts or resumes playback.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.st.playing = true
}

// Pause stops the playhead without moving it.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.st.playing = false
}

// Stop halts playback and rewinds: a memory source returns to the loop
// start (or the beginning without a loop), a streaming source drops its
// buffered chunks and interpolation window entirely.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.st.playing = false
	if p.st.memory != nil {
		p.st.memory.resetToLoopStart()
	} else {
		p.st.stream.reset()
	}
}

// IsPlaying reports whether the playhead is advancing.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.playing
}

// PositionSeconds returns the playhead position in source-time seconds.
func (p *Player) PositionSeconds() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m := p.st.memory; m != nil {
		return m.posFrame / float64(m.src.SampleRate)
	}
	s := p.st.stream
	return s.posFrame / float64(s.sampleRate)
}

// SetPositionSeconds seeks a memory source. Streaming sources cannot seek
// since consumed chunks are gone, so the call is ignored for them.
func (p *Player) SetPositionSeconds(sec float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.st.memory != nil {
		p.st.memory.setPositionSeconds(sec)
	}
}

// SetLoop installs or clears (r == nil) the loop window on a memory
// source. Streaming sources ignore loops.
func (p *Player) SetLoop(r *looprange.Range) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.st.memory != nil {
		p.st.memory.setLoop(r)
	}
}

// SetVolume sets the linear volume factor, by convention in [0, 1]. The
// value is not clamped here; the output conversion clamps samples anyway.
func (p *Player) SetVolume(v float32) {
	if math.IsNaN(float64(v)) {
		v = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.st.volume = v
}

// Finished reports whether the source has been fully rendered. A looping
// memory source never finishes on its own.
func (p *Player) Finished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m := p.st.memory; m != nil {
		return m.finished()
	}
	return p.st.stream.finished
}

// Close stops and closes the output stream. Safe to call once playback is
// no longer needed.
func (p *Player) Close() {
	if p.stream == nil {
		return
	}
	if err := p.stream.StopStream(); err != nil {
		slog.Warn("Failed to stop stream", "error", err)
	}
	if err := p.stream.CloseCallback(); err != nil {
		slog.Warn("Failed to close stream", "error", err)
	}
	p.stream = nil
}

// GetPlaybackStatus returns current playback metrics. Implements
// types.PlaybackMonitor.
func (p *Player) GetPlaybackStatus() types.PlaybackStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := types.PlaybackStatus{
		FileName: p.fileName,
		Channels: p.channels,
		Playing:  p.st.playing,
		Volume:   p.st.volume,
	}
	if m := p.st.memory; m != nil {
		st.Mode = "memory"
		st.SampleRate = m.src.SampleRate
		st.PositionSec = m.posFrame / float64(m.src.SampleRate)
	} else {
		s := p.st.stream
		st.Mode = "stream"
		st.SampleRate = s.sampleRate
		st.PositionSec = s.posFrame / float64(s.sampleRate)
	}
	return st
}
