package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	wav "github.com/youpy/go-wav"
	soxr "github.com/zaf/resample"

	"github.com/drgolem/loopah/internal/loader"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <input_file>",
	Short: "Decode a file and write it as a resampled 16-bit WAV",
	Long: `Decode an audio file and export it as 16-bit PCM WAV, optionally
resampling and downmixing to mono.

Examples:
  # Export an MP3 as 48kHz WAV
  loopah export input.mp3 --samplerate 48000 --out output.wav

  # Export a FLAC as 44.1kHz mono WAV
  loopah export input.flac --samplerate 44100 --mono --out output.wav

  # Export with default settings (48kHz)
  loopah export input.ogg

Supported Input Formats:
  - MP3 (.mp3)
  - FLAC (.flac, .fla)
  - Ogg Vorbis (.ogg, .oga)
  - WAV (.wav)

Output Format:
  - WAV (16-bit PCM)

Sample Rate Options:
  Common rates: 8000, 16000, 22050, 44100, 48000, 96000, 192000 Hz`,
	Args: cobra.ExactArgs(1),
	Run:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().Int("samplerate", 48000, "Target sample rate in Hz")
	exportCmd.Flags().String("out", "out_export.wav", "Output WAV file path")
	exportCmd.Flags().Bool("mono", false, "Downmix output to mono (average channels)")
	exportCmd.Flags().BoolP("verbose", "v", false, "Verbose output (debug logging)")
}

func runExport(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	setupLogging(verbose)

	inFileName := args[0]
	if _, err := os.Stat(inFileName); os.IsNotExist(err) {
		slog.Error("Input file not found", "path", inFileName)
		os.Exit(1)
	}

	newSampleRate, err := cmd.Flags().GetInt("samplerate")
	if err != nil {
		slog.Error("Failed to get samplerate flag", "error", err)
		os.Exit(1)
	}

	outFileName, err := cmd.Flags().GetString("out")
	if err != nil {
		slog.Error("Failed to get out flag", "error", err)
		os.Exit(1)
	}

	downmixMono, err := cmd.Flags().GetBool("mono")
	if err != nil {
		slog.Error("Failed to get mono flag", "error", err)
		os.Exit(1)
	}

	if newSampleRate <= 0 || newSampleRate > 384000 {
		slog.Error("Invalid sample rate", "rate", newSampleRate, "valid_range", "1-384000")
		os.Exit(1)
	}

	slog.Info("Decoding audio data", "input_file", inFileName)

	info, audio, err := loader.DecodeWithPreview(inFileName)
	if err != nil {
		slog.Error("Failed to decode audio", "error", err)
		os.Exit(1)
	}

	slog.Info("Decoding complete",
		"input_sample_rate", info.SampleRate,
		"input_channels", info.Channels,
		"input_frames", info.TotalFrames,
		"duration_sec", fmt.Sprintf("%.3f", info.DurationSeconds()))

	pcm := audio.Data
	channels := audio.Channels

	if downmixMono && channels > 1 {
		slog.Info("Downmixing to mono", "input_channels", channels)
		pcm = downmixToMono(pcm, channels)
		channels = 1
	}

	audioData := pcmToInt16LE(pcm)

	if newSampleRate != audio.SampleRate {
		slog.Info("Resampling audio",
			"from_rate", audio.SampleRate,
			"to_rate", newSampleRate)
		audioData, err = resampleAudio(audioData, audio.SampleRate, newSampleRate, channels)
		if err != nil {
			slog.Error("Failed to resample audio", "error", err)
			os.Exit(1)
		}
	}

	outFrames := len(audioData) / (channels * 2)

	slog.Info("Writing output WAV file", "path", outFileName, "frames", outFrames)
	if err := writeWAVFile(outFileName, audioData, uint32(outFrames), uint16(channels), uint32(newSampleRate)); err != nil {
		slog.Error("Failed to write WAV file", "error", err)
		os.Exit(1)
	}

	slog.Info("Export complete",
		"input_frames", info.TotalFrames,
		"output_frames", outFrames,
		"sample_rate_ratio", fmt.Sprintf("%.3f", float64(newSampleRate)/float64(audio.SampleRate)))
}

// downmixToMono averages interleaved channels into a single channel.
func downmixToMono(pcm []float32, channels int) []float32 {
	frames := len(pcm) / channels
	mono := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		base := f * channels
		for c := 0; c < channels; c++ {
			sum += pcm[base+c]
		}
		mono[f] = sum / float32(channels)
	}
	return mono
}

// pcmToInt16LE converts [-1, 1] samples to little-endian 16-bit PCM bytes,
// clamping out-of-range values.
func pcmToInt16LE(pcm []float32) []byte {
	out := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		out[2*i] = byte(v)
		out[2*i+1] = byte(uint16(v) >> 8)
	}
	return out
}

// resampleAudio resamples 16-bit audio data using SoXR (high-quality resampler)
func resampleAudio(audioData []byte, fromRate, toRate, channels int) ([]byte, error) {
	var bufResampled bytes.Buffer
	bufWriter := bufio.NewWriter(&bufResampled)

	resampler, err := soxr.New(
		bufWriter,
		float64(fromRate),
		float64(toRate),
		channels,
		soxr.I16,
		soxr.HighQ,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	_, err = resampler.Write(audioData)
	if err != nil {
		resampler.Close()
		return nil, fmt.Errorf("failed to resample: %w", err)
	}

	if err := resampler.Close(); err != nil {
		return nil, fmt.Errorf("failed to close resampler: %w", err)
	}

	if err := bufWriter.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush buffer: %w", err)
	}

	return bufResampled.Bytes(), nil
}

// writeWAVFile writes 16-bit PCM audio data to a WAV file
func writeWAVFile(fileName string, audioData []byte, numSamples uint32, numChannels uint16, sampleRate uint32) error {
	fOut, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer fOut.Close()

	wavWriter := wav.NewWriter(fOut, numSamples, numChannels, sampleRate, 16)

	if _, err := wavWriter.Write(audioData); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}

	return nil
}
