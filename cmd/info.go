package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/drgolem/loopah/internal/loader"
)

var infoVerbose bool

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <audio_file>",
	Short: "Decode a file and print format, duration and preview summary",
	Long: `Decode an audio file and report its actual format and duration.

The file is decoded in full, so the reported frame count and duration come
from the decoded samples rather than container metadata, and the amplitude
preview covers exactly what a player would hear.

Examples:
  loopah info song.flac
  loopah info -v song.mp3`,
	Args: cobra.ExactArgs(1),
	Run:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().BoolVarP(&infoVerbose, "verbose", "v", false, "Verbose output (debug logging)")
}

func runInfo(cmd *cobra.Command, args []string) {
	setupLogging(infoVerbose)

	fileName := args[0]
	if _, err := os.Stat(fileName); os.IsNotExist(err) {
		slog.Error("Input file not found", "path", fileName)
		os.Exit(1)
	}

	info, err := loader.ProbePreview(fileName)
	if err != nil {
		slog.Error("Failed to decode file", "file", fileName, "error", err)
		os.Exit(1)
	}

	var peak float32
	for _, v := range info.RMSPreview {
		if v > peak {
			peak = v
		}
	}

	slog.Info("Audio file info",
		"file", fileName,
		"sample_rate", info.SampleRate,
		"channels", info.Channels,
		"frames", info.TotalFrames,
		"duration_sec", fmt.Sprintf("%.3f", info.DurationSeconds()),
		"preview_windows", len(info.RMSPreview),
		"preview_peak_rms", fmt.Sprintf("%.4f", peak))
}
