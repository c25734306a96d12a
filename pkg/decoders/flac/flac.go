package flac

import (
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"

	"github.com/drgolem/loopah/pkg/types"
)

// Decoder wraps mewkiz/flac for decoding FLAC audio files into float32 PCM.
// Implements types.AudioDecoder.
type Decoder struct {
	file     *os.File
	stream   *flac.Stream
	rate     int
	channels int

	// Interleaved samples left over from the last parsed FLAC frame.
	rem []float32
}

// NewDecoder creates a new FLAC decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open opens a FLAC file for decoding
func (d *Decoder) Open(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}

	stream, err := flac.New(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("%w: %v", types.ErrProbe, err)
	}

	info := stream.Info
	if info == nil {
		stream.Close()
		file.Close()
		return types.ErrNoTrack
	}
	if info.SampleRate == 0 || info.NChannels == 0 {
		stream.Close()
		file.Close()
		return types.ErrUnknownFormat
	}

	d.file = file
	d.stream = stream
	d.rate = int(info.SampleRate)
	d.channels = int(info.NChannels)

	return nil
}

// Close closes the decoder and releases resources
func (d *Decoder) Close() error {
	if d.stream != nil {
		d.stream.Close()
		d.stream = nil
	}
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// GetFormat returns the audio format (sample rate, channels)
func (d *Decoder) GetFormat() (rate, channels int) {
	return d.rate, d.channels
}

// DecodeFrames decodes up to frames interleaved frames into pcm. FLAC
// frames rarely align with the requested size, so leftover samples are
// carried between calls. A frame that fails to parse is reported as a
// corrupt packet; the caller may continue with the next frame.
func (d *Decoder) DecodeFrames(frames int, pcm []float32) (int, error) {
	if d.stream == nil {
		return 0, fmt.Errorf("decoder not initialized")
	}

	want := frames * d.channels
	got := copy(pcm[:want], d.rem)
	d.rem = d.rem[got:]

	for got < want {
		frame, err := d.stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				if got == 0 {
					return 0, io.EOF
				}
				break
			}
			return got / d.channels, fmt.Errorf("%w: %v", types.ErrCorruptPacket, err)
		}

		scale := float32(int64(1) << (frame.BitsPerSample - 1))
		nsamples := len(frame.Subframes[0].Samples)
		for i := 0; i < nsamples; i++ {
			for c := 0; c < d.channels; c++ {
				v := float32(frame.Subframes[c].Samples[i]) / scale
				if got < want {
					pcm[got] = v
					got++
				} else {
					d.rem = append(d.rem, v)
				}
			}
		}
	}

	return got / d.channels, nil
}
