package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "loopah",
	Short: "Loop-oriented audio player and inspector",
	Long: `loopah - An audio player built around seamless loop playback.

Files are decoded fully into memory with a mono RMS amplitude preview, or
streamed to the output device while the decode is still running. Playback
resamples to the device rate by linear interpolation, and a loop window in
seconds keeps the playhead inside a sample-accurate region.

Commands:
  - play:   Play a file, optionally looping a region or streaming during decode
  - info:   Decode a file and print its format, duration and preview summary
  - export: Decode a file and write it out as a resampled 16-bit WAV`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// setupLogging installs the default text logger at the requested level.
func setupLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}
