package wav

import (
	"fmt"
	"os"

	"github.com/youpy/go-wav"

	"github.com/drgolem/loopah/pkg/types"
)

// Decoder wraps go-wav for decoding WAV audio files into float32 PCM.
// Implements types.AudioDecoder.
type Decoder struct {
	file     *os.File
	reader   *wav.Reader
	rate     int
	channels int
	bps      int
}

// NewDecoder creates a new WAV decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open opens a WAV file for decoding
func (d *Decoder) Open(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}

	reader := wav.NewReader(file)
	format, err := reader.Format()
	if err != nil {
		file.Close()
		return fmt.Errorf("%w: %v", types.ErrProbe, err)
	}

	if format.AudioFormat != wav.AudioFormatPCM {
		file.Close()
		return fmt.Errorf("%w: WAV format %d (only PCM supported)", types.ErrUnsupportedCodec, format.AudioFormat)
	}
	if format.SampleRate == 0 || format.NumChannels == 0 {
		file.Close()
		return types.ErrUnknownFormat
	}
	if format.NumChannels > 2 {
		file.Close()
		return fmt.Errorf("%w: %d channels", types.ErrUnsupportedCodec, format.NumChannels)
	}

	d.file = file
	d.reader = reader
	d.rate = int(format.SampleRate)
	d.channels = int(format.NumChannels)
	d.bps = int(format.BitsPerSample)

	return nil
}

// Close closes the WAV file
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

// DecodeFrames decodes up to frames interleaved frames into pcm,
// normalizing integer samples to float32 in [-1, 1].
func (d *Decoder) DecodeFrames(frames int, pcm []float32) (int, error) {
	if d.reader == nil {
		return 0, fmt.Errorf("decoder not initialized")
	}

	samples, err := d.reader.ReadSamples(uint32(frames))
	if len(samples) == 0 {
		return 0, err
	}

	for i, sample := range samples {
		for c := 0; c < d.channels; c++ {
			pcm[i*d.channels+c] = normalize(sample.Values[c], d.bps)
		}
	}

	return len(samples), err
}

// normalize converts one PCM integer sample to float32 in [-1, 1].
// 8-bit WAV samples are unsigned, everything wider is signed.
func normalize(value int, bps int) float32 {
	if bps == 8 {
		return (float32(value) - 128) / 128
	}
	return float32(value) / float32(int64(1)<<(bps-1))
}
