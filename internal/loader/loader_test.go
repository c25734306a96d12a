package loader

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	wav "github.com/youpy/go-wav"
)

// writeWavFixture writes 16-bit PCM to a temp WAV file and returns its path.
func writeWavFixture(t *testing.T, name string, sampleRate int, channels int, pcm []int16) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer f.Close()

	data := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		data[2*i] = byte(s)
		data[2*i+1] = byte(uint16(s) >> 8)
	}

	numSamples := uint32(len(pcm) / channels)
	w := wav.NewWriter(f, numSamples, uint16(channels), uint32(sampleRate), 16)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func sinePCM(frames int, channels int) []int16 {
	pcm := make([]int16, frames*channels)
	for f := 0; f < frames; f++ {
		v := int16(10000 * math.Sin(2*math.Pi*float64(f)*440/8000))
		for c := 0; c < channels; c++ {
			pcm[f*channels+c] = v
		}
	}
	return pcm
}

func TestDecodeWithPreviewSilence(t *testing.T) {
	// One second of mono silence at 8kHz: 8000 frames, 50 preview windows.
	path := writeWavFixture(t, "silence.wav", 8000, 1, make([]int16, 8000))

	info, audio, err := DecodeWithPreview(path)
	if err != nil {
		t.Fatalf("DecodeWithPreview failed: %v", err)
	}

	if info.SampleRate != 8000 {
		t.Errorf("SampleRate: got %d, want 8000", info.SampleRate)
	}
	if info.Channels != 1 {
		t.Errorf("Channels: got %d, want 1", info.Channels)
	}
	if info.TotalFrames != 8000 {
		t.Errorf("TotalFrames: got %d, want 8000", info.TotalFrames)
	}
	if got := info.DurationSeconds(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("DurationSeconds: got %v, want 1.0", got)
	}
	if len(info.RMSPreview) != 50 {
		t.Errorf("preview windows: got %d, want 50", len(info.RMSPreview))
	}
	for i, v := range info.RMSPreview {
		if v != 0 {
			t.Errorf("preview %d: got %v, want 0", i, v)
		}
	}

	if audio.Frames != info.TotalFrames {
		t.Errorf("audio frames %d != info frames %d", audio.Frames, info.TotalFrames)
	}
	if int64(len(audio.Data)) != audio.Frames*int64(audio.Channels) {
		t.Errorf("Data length %d != Frames*Channels %d",
			len(audio.Data), audio.Frames*int64(audio.Channels))
	}
}

func TestProbeMatchesFullDecode(t *testing.T) {
	path := writeWavFixture(t, "tone.wav", 8000, 2, sinePCM(12345, 2))

	probed, err := ProbePreview(path)
	if err != nil {
		t.Fatalf("ProbePreview failed: %v", err)
	}
	full, _, err := DecodeWithPreview(path)
	if err != nil {
		t.Fatalf("DecodeWithPreview failed: %v", err)
	}

	if probed.SampleRate != full.SampleRate ||
		probed.Channels != full.Channels ||
		probed.TotalFrames != full.TotalFrames {
		t.Errorf("metadata mismatch: probe %+v, full %+v", probed, full)
	}
	if len(probed.RMSPreview) != len(full.RMSPreview) {
		t.Fatalf("preview length mismatch: %d vs %d",
			len(probed.RMSPreview), len(full.RMSPreview))
	}
	for i := range probed.RMSPreview {
		if probed.RMSPreview[i] != full.RMSPreview[i] {
			t.Errorf("preview %d: probe %v, full %v",
				i, probed.RMSPreview[i], full.RMSPreview[i])
		}
	}

	// 12345 frames at 8kHz: 77 full windows of 160 frames plus a partial.
	if len(full.RMSPreview) != 78 {
		t.Errorf("preview windows: got %d, want 78", len(full.RMSPreview))
	}
}

func TestSpawnDecodeJobEventOrder(t *testing.T) {
	const frames = 10000
	path := writeWavFixture(t, "tone.wav", 8000, 1, sinePCM(frames, 1))

	events, chunks := SpawnDecodeJob(path)

	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}

	ready, ok := got[0].(StreamReady)
	if !ok {
		t.Fatalf("first event: got %T, want StreamReady", got[0])
	}
	if ready.SampleRate != 8000 || ready.Channels != 1 {
		t.Errorf("StreamReady: got %d Hz %d ch, want 8000 Hz 1 ch",
			ready.SampleRate, ready.Channels)
	}

	preview, ok := got[1].(PreviewReady)
	if !ok {
		t.Fatalf("terminal event: got %T, want PreviewReady", got[1])
	}
	if preview.Info.TotalFrames != frames {
		t.Errorf("TotalFrames: got %d, want %d", preview.Info.TotalFrames, frames)
	}

	// The chunk stream carries exactly the assembled buffer, in order.
	var streamed []float32
	for chunk := range chunks {
		streamed = append(streamed, chunk...)
	}
	if len(streamed) != len(preview.Audio.Data) {
		t.Fatalf("streamed %d samples, buffer has %d",
			len(streamed), len(preview.Audio.Data))
	}
	for i := range streamed {
		if streamed[i] != preview.Audio.Data[i] {
			t.Fatalf("sample %d: streamed %v, buffer %v",
				i, streamed[i], preview.Audio.Data[i])
		}
	}
}

func TestSpawnDecodeJobMissingFile(t *testing.T) {
	events, chunks := SpawnDecodeJob(filepath.Join(t.TempDir(), "no_such_file.wav"))

	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	failed, ok := got[0].(LoadFailed)
	if !ok {
		t.Fatalf("event: got %T, want LoadFailed", got[0])
	}
	if failed.Message == "" {
		t.Error("LoadFailed carries no message")
	}

	for range chunks {
		t.Error("chunk received for a failed load")
	}
}
