package loader

import (
	"errors"

	"github.com/drgolem/loopah/pkg/decoders"
	"github.com/drgolem/loopah/pkg/preview"
	"github.com/drgolem/loopah/pkg/types"
)

// chunkFrames is the decode granularity in frames per packet.
const chunkFrames = 4096

// maxConsecutiveCorrupt bounds the skip-and-continue policy so a badly
// truncated file cannot spin the decode loop forever.
const maxConsecutiveCorrupt = 64

// DecodeWithPreview fully decodes fileName into memory, computing the RMS
// preview in the same pass. TotalFrames is derived from the decoded sample
// count, never from container metadata.
func DecodeWithPreview(fileName string) (types.DecodedInfo, *types.MemoryAudio, error) {
	dec, err := decoders.NewDecoder(fileName)
	if err != nil {
		return types.DecodedInfo{}, nil, err
	}
	defer dec.Close()

	info, data := runDecode(dec, true, nil)
	audio := &types.MemoryAudio{
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
		Frames:     info.TotalFrames,
		Data:       data,
	}
	return info, audio, nil
}

// ProbePreview decodes fileName for metadata and preview only, discarding
// the PCM. The decode pass is the same as DecodeWithPreview, so both
// produce identical DecodedInfo for the same file.
func ProbePreview(fileName string) (types.DecodedInfo, error) {
	dec, err := decoders.NewDecoder(fileName)
	if err != nil {
		return types.DecodedInfo{}, err
	}
	defer dec.Close()

	info, _ := runDecode(dec, false, nil)
	return info, nil
}

// runDecode drives the shared packet loop over an opened decoder: decode a
// packet, feed the RMS accumulator, optionally retain the PCM and hand each
// chunk to emit. Corrupt packets are skipped; any other decode error is a
// graceful end of stream, yielding whatever was decoded so far.
func runDecode(dec types.AudioDecoder, keep bool, emit func(chunk []float32)) (types.DecodedInfo, []float32) {
	rate, channels := dec.GetFormat()
	acc := preview.NewAccumulator(rate)

	var (
		out     []float32
		total   int64
		corrupt int
		buf     []float32
	)

	for {
		// Chunks handed to emit escape to the consumer, so those get a
		// fresh buffer; otherwise one scratch buffer is reused.
		if buf == nil || emit != nil {
			buf = make([]float32, chunkFrames*channels)
		}

		n, err := dec.DecodeFrames(chunkFrames, buf)
		if n > 0 {
			corrupt = 0
			chunk := buf[:n*channels]
			acc.Push(chunk, channels)
			total += int64(n)
			if keep {
				out = append(out, chunk...)
			}
			if emit != nil {
				emit(chunk)
			}
		}

		if err != nil {
			if errors.Is(err, types.ErrCorruptPacket) {
				corrupt++
				if corrupt >= maxConsecutiveCorrupt {
					break
				}
				continue
			}
			// io.EOF or any other failure: stop decoding, keep what we have.
			break
		}
		if n == 0 {
			break
		}
	}

	acc.Flush()

	info := types.DecodedInfo{
		SampleRate:  rate,
		Channels:    channels,
		TotalFrames: total,
		RMSPreview:  acc.Values(),
	}
	return info, out
}
