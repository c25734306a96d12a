// Package loader runs decode jobs on background workers and reports their
// lifecycle through one-way channels, so the calling thread never blocks on
// file I/O or decode work.
package loader

import (
	"log/slog"

	"github.com/drgolem/loopah/pkg/decoders"
	"github.com/drgolem/loopah/pkg/types"
)

// Event is a lifecycle notification from a decode job.
type Event interface {
	loadEvent()
}

// StreamReady reports codec parameters as soon as they are known, before
// any PCM has been decoded. Emitted at most once, always before the
// terminal event.
type StreamReady struct {
	SampleRate int
	Channels   int
}

// PreviewReady is the terminal success event, carrying the complete
// metadata/preview and the assembled contiguous buffer.
type PreviewReady struct {
	Info  types.DecodedInfo
	Audio *types.MemoryAudio
}

// LoadFailed is the terminal failure event. The message is user-visible.
type LoadFailed struct {
	Message string
}

func (StreamReady) loadEvent()  {}
func (PreviewReady) loadEvent() {}
func (LoadFailed) loadEvent()   {}

// SpawnDecodeJob decodes fileName on a background worker. It returns an
// event channel and a PCM chunk channel:
//
//   - events: at most one StreamReady, then exactly one terminal event
//     (PreviewReady or LoadFailed), after which the channel is closed.
//   - chunks: decoded packets of interleaved float32 PCM in decode order;
//     each chunk is immutable and shared with the assembled buffer. The
//     channel is closed when the worker is done.
//
// The event channel must be polled; once the terminal event is observed
// both channels may be discarded. The worker never blocks on a slow
// consumer and runs to completion even if both channels are abandoned.
func SpawnDecodeJob(fileName string) (<-chan Event, <-chan []float32) {
	events := make(chan Event, 2)
	feed := make(chan []float32)
	chunks := make(chan []float32)

	go pumpChunks(feed, chunks)

	go func() {
		defer close(events)
		defer close(feed)

		dec, err := decoders.NewDecoder(fileName)
		if err != nil {
			slog.Debug("Decode job failed", "file", fileName, "error", err)
			events <- LoadFailed{Message: err.Error()}
			return
		}
		defer dec.Close()

		rate, channels := dec.GetFormat()
		events <- StreamReady{SampleRate: rate, Channels: channels}

		info, data := runDecode(dec, true, func(chunk []float32) {
			feed <- chunk
		})

		events <- PreviewReady{
			Info: info,
			Audio: &types.MemoryAudio{
				SampleRate: info.SampleRate,
				Channels:   info.Channels,
				Frames:     info.TotalFrames,
				Data:       data,
			},
		}
	}()

	return events, chunks
}

// pumpChunks forwards chunks from the worker to the consumer in order,
// buffering without bound in between so the worker never blocks. Queued
// memory is bounded in practice by the file's decoded size.
func pumpChunks(in <-chan []float32, out chan<- []float32) {
	defer close(out)

	var queue [][]float32
	for in != nil || len(queue) > 0 {
		if len(queue) == 0 {
			chunk, ok := <-in
			if !ok {
				in = nil
				continue
			}
			queue = append(queue, chunk)
			continue
		}

		select {
		case chunk, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			queue = append(queue, chunk)
		case out <- queue[0]:
			queue[0] = nil
			queue = queue[1:]
		}
	}
}
