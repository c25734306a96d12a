package types

// AudioDecoder is the common interface for all audio decoders (MP3, FLAC,
// Ogg Vorbis, WAV). All decoders must implement these methods to provide a
// consistent API for decoding audio files into interleaved float32 PCM.
type AudioDecoder interface {
	// Open opens an audio file for decoding
	Open(fileName string) error

	// Close closes the decoder and releases resources
	Close() error

	// GetFormat returns the audio format information
	// Returns: sample rate (Hz), channels (1=mono, 2=stereo)
	GetFormat() (rate, channels int)

	// DecodeFrames decodes up to the requested number of interleaved frames
	// into pcm, which must hold at least frames*channels float32 values in
	// [-1, 1]. Returns the number of frames actually decoded; io.EOF once
	// the stream is exhausted. A decode error wrapping ErrCorruptPacket is
	// recoverable: the caller may skip the packet and keep decoding.
	DecodeFrames(frames int, pcm []float32) (int, error)
}

// DecodedInfo is the lightweight metadata + amplitude preview for an audio
// file, produced once per decode pass and immutable afterwards.
type DecodedInfo struct {
	SampleRate  int       // Sample rate in Hz
	Channels    int       // Number of audio channels
	TotalFrames int64     // Interleaved frames actually decoded
	RMSPreview  []float32 // Mono RMS values, one per ~20ms window, in time order
}

// DurationSeconds returns the decoded length in source-time seconds.
func (i DecodedInfo) DurationSeconds() float64 {
	if i.SampleRate <= 0 {
		return 0
	}
	return float64(i.TotalFrames) / float64(i.SampleRate)
}

// MemoryAudio is a fully decoded file held in memory.
// Data is flat interleaved PCM (frame-major, channel-minor), so
// len(Data) == Frames * Channels.
type MemoryAudio struct {
	SampleRate int
	Channels   int
	Frames     int64
	Data       []float32
}

// DurationSeconds returns the buffer length in source-time seconds.
func (m *MemoryAudio) DurationSeconds() float64 {
	if m.SampleRate <= 0 {
		return 0
	}
	return float64(m.Frames) / float64(m.SampleRate)
}

// PlaybackStatus holds unified playback information for the player.
// This struct provides real-time metrics for monitoring audio playback.
type PlaybackStatus struct {
	FileName    string  // Name of the currently playing file
	SampleRate  int     // Source sample rate in Hz
	Channels    int     // Number of audio channels
	Mode        string  // "memory" or "stream"
	Playing     bool    // Whether the playhead is advancing
	PositionSec float64 // Playhead position in source-time seconds
	Volume      float32 // Linear volume factor
}

// PlaybackMonitor is an interface for types that can report playback status.
type PlaybackMonitor interface {
	GetPlaybackStatus() PlaybackStatus
}
