package mp3

import (
	"fmt"
	"io"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/drgolem/loopah/pkg/types"
)

// go-mp3 always outputs interleaved 16-bit stereo.
const (
	channels       = 2
	bytesPerSample = 2
	bytesPerFrame  = channels * bytesPerSample
)

// Decoder wraps go-mp3 for decoding MP3 audio files into float32 PCM.
// Implements types.AudioDecoder.
type Decoder struct {
	file *os.File
	dec  *mp3.Decoder
	rate int
	buf  []byte
}

// NewDecoder creates a new MP3 decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open opens an MP3 file for decoding
func (d *Decoder) Open(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}

	dec, err := mp3.NewDecoder(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("%w: %v", types.ErrProbe, err)
	}
	if dec.SampleRate() <= 0 {
		file.Close()
		return types.ErrUnknownFormat
	}

	d.file = file
	d.dec = dec
	d.rate = dec.SampleRate()

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
func (d *Decoder) GetFormat() (rate, chans int) {
	return d.rate, channels
}

// DecodeFrames decodes up to frames stereo frames into pcm, converting the
// decoder's 16-bit little-endian output to float32.
func (d *Decoder) DecodeFrames(frames int, pcm []float32) (int, error) {
	if d.dec == nil {
		return 0, fmt.Errorf("decoder not initialized")
	}

	bytesNeeded := frames * bytesPerFrame
	if cap(d.buf) < bytesNeeded {
		d.buf = make([]byte, bytesNeeded)
	}
	d.buf = d.buf[:bytesNeeded]

	n, err := io.ReadFull(d.dec, d.buf)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, nil
	}

	framesRead := n / bytesPerFrame
	for i := 0; i < framesRead*channels; i++ {
		v := int16(uint16(d.buf[2*i]) | uint16(d.buf[2*i+1])<<8)
		pcm[i] = float32(v) / 32768.0
	}

	return framesRead, err
}
