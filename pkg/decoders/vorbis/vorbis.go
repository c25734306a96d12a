package vorbis

import (
	"fmt"
	"os"

	"github.com/jfreymuth/oggvorbis"

	"github.com/drgolem/loopah/pkg/types"
)

// Decoder wraps jfreymuth/oggvorbis for decoding Ogg Vorbis files into
// float32 PCM. Implements types.AudioDecoder.
type Decoder struct {
	file     *os.File
	reader   *oggvorbis.Reader
	rate     int
	channels int
}

// NewDecoder creates a new Ogg Vorbis decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open opens an Ogg Vorbis file for decoding
func (d *Decoder) Open(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}

	reader, err := oggvorbis.NewReader(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("%w: %v", types.ErrProbe, err)
	}
	if reader.SampleRate() <= 0 || reader.Channels() <= 0 {
		file.Close()
		return types.ErrUnknownFormat
	}

	d.file = file
	d.reader = reader
	d.rate = reader.SampleRate()
	d.channels = reader.Channels()

	return nil
}

// Close closes the decoder and releases resources
func (d *Decoder) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// GetFormat returns the audio format (sample rate, channels)
func (d *Decoder) GetFormat() (rate, channels int) {
	return d.rate, d.channels
}

// DecodeFrames decodes up to frames interleaved frames into pcm.
// The vorbis reader only returns whole frames, so the sample count is
// always a multiple of the channel count.
func (d *Decoder) DecodeFrames(frames int, pcm []float32) (int, error) {
	if d.reader == nil {
		return 0, fmt.Errorf("decoder not initialized")
	}

	n, err := d.reader.Read(pcm[:frames*d.channels])
	if n == 0 && err != nil {
		return 0, err
	}

	return n / d.channels, err
}
