package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drgolem/go-portaudio/portaudio"
	"github.com/spf13/cobra"

	"github.com/drgolem/loopah/internal/loader"
	"github.com/drgolem/loopah/internal/player"
	"github.com/drgolem/loopah/pkg/looprange"
	"github.com/drgolem/loopah/pkg/types"
)

var (
	// Flags for play command
	playDeviceIdx  int
	playDeviceRate float64
	playPAFrames   int
	playStream     bool
	playLoopStart  float64
	playLoopEnd    float64
	playSeek       float64
	playVolume     float64
	playDuration   float64
	playVerbose    bool
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play <audio_file>",
	Short: "Play an audio file with optional loop region",
	Long: `Play an audio file through PortAudio callback mode.

By default the file is fully decoded into memory first, then played with
sample-accurate looping and seeking. With --stream, playback starts while
the decode is still running; streaming playback cannot loop or seek.

Examples:
  # Play a file start to finish
  loopah play song.flac

  # Loop the region between 12.5s and 20s
  loopah play song.mp3 --loop-start 12.5 --loop-end 20

  # Start playing immediately while decoding
  loopah play long_recording.ogg --stream

  # Seek to 30s at half volume on device 0
  loopah play song.wav -d 0 --seek 30 --volume 0.5

Supported Formats:
  MP3:  .mp3
  FLAC: .flac, .fla
  Ogg:  .ogg, .oga
  WAV:  .wav (8/16/24/32-bit PCM)`,
	Args: cobra.ExactArgs(1),
	Run:  runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().IntVarP(&playDeviceIdx, "device", "d", 1, "Audio output device index")
	playCmd.Flags().Float64Var(&playDeviceRate, "device-rate", 48000, "Output device sample rate in Hz")
	playCmd.Flags().IntVarP(&playPAFrames, "frames", "p", 512, "PortAudio frames per buffer")
	playCmd.Flags().BoolVar(&playStream, "stream", false, "Start playback while the file is still decoding")
	playCmd.Flags().Float64Var(&playLoopStart, "loop-start", -1, "Loop region start in seconds")
	playCmd.Flags().Float64Var(&playLoopEnd, "loop-end", -1, "Loop region end in seconds")
	playCmd.Flags().Float64Var(&playSeek, "seek", 0, "Start position in seconds")
	playCmd.Flags().Float64Var(&playVolume, "volume", 1.0, "Linear volume factor, 1.0 is unity gain")
	playCmd.Flags().Float64Var(&playDuration, "duration", 0, "Stop after this many seconds (0 plays to the end)")
	playCmd.Flags().BoolVarP(&playVerbose, "verbose", "v", false, "Verbose output (debug logging)")
}

func runPlay(cmd *cobra.Command, args []string) {
	setupLogging(playVerbose)

	fileName := args[0]
	if _, err := os.Stat(fileName); os.IsNotExist(err) {
		slog.Error("Input file not found", "path", fileName)
		os.Exit(1)
	}

	slog.Info("Initializing PortAudio")
	if err := portaudio.Initialize(); err != nil {
		slog.Error("Failed to initialize PortAudio", "error", err)
		os.Exit(1)
	}
	defer portaudio.Terminate()
	slog.Info("PortAudio initialized", "version", portaudio.GetVersion())

	cfg := player.Config{
		DeviceIndex:     playDeviceIdx,
		OutputRate:      playDeviceRate,
		FramesPerBuffer: playPAFrames,
	}

	events, chunks := loader.SpawnDecodeJob(fileName)

	var p *player.Player
	defer func() {
		if p != nil {
			p.Close()
		}
	}()

	// The decode job reports StreamReady first, then a terminal event. In
	// stream mode playback starts on StreamReady; in memory mode it waits
	// for the full buffer.
	for p == nil || playStream {
		ev, ok := <-events
		if !ok {
			break
		}

		switch e := ev.(type) {
		case loader.StreamReady:
			slog.Info("Audio file opened",
				"file", fileName,
				"sample_rate", e.SampleRate,
				"channels", e.Channels)
			if !playStream {
				continue
			}
			sp, err := player.FromStream(e.SampleRate, e.Channels, chunks, fileName, cfg)
			if err != nil {
				slog.Error("Failed to open output stream", "error", err)
				os.Exit(1)
			}
			sp.SetVolume(float32(playVolume))
			sp.Play()
			p = sp

		case loader.PreviewReady:
			slog.Info("Decode complete",
				"frames", e.Info.TotalFrames,
				"duration_sec", fmt.Sprintf("%.3f", e.Info.DurationSeconds()),
				"preview_windows", len(e.Info.RMSPreview))
			if playStream {
				continue
			}
			mp, err := player.FromMemory(e.Audio, fileName, cfg)
			if err != nil {
				slog.Error("Failed to open output stream", "error", err)
				os.Exit(1)
			}
			if playLoopStart >= 0 && playLoopEnd >= 0 {
				r := looprange.Ordered(playLoopStart, playLoopEnd).Clamp(e.Audio.DurationSeconds())
				mp.SetLoop(&r)
				slog.Info("Loop region set",
					"start_sec", r.Start,
					"end_sec", r.End,
					"length_sec", r.Duration())
			}
			if playSeek > 0 {
				mp.SetPositionSeconds(playSeek)
			}
			mp.SetVolume(float32(playVolume))
			mp.Play()
			p = mp

		case loader.LoadFailed:
			slog.Error("Failed to load file", "file", fileName, "error", e.Message)
			os.Exit(1)
		}

		if playStream && p != nil {
			break
		}
	}

	if p == nil {
		slog.Error("Decode job ended without a playable source")
		os.Exit(1)
	}

	slog.Info("Playback started", "mode", p.GetPlaybackStatus().Mode)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	statusDone := make(chan struct{})
	go monitorPlayback(p, statusDone)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if playDuration > 0 {
		deadline = time.After(time.Duration(playDuration * float64(time.Second)))
	}

	// Drain the remaining loader events in stream mode so the terminal
	// event is still observed and logged.
	go func() {
		for ev := range events {
			if e, ok := ev.(loader.PreviewReady); ok {
				slog.Debug("Decode complete",
					"frames", e.Info.TotalFrames,
					"preview_windows", len(e.Info.RMSPreview))
			}
		}
	}()

	for {
		select {
		case <-ticker.C:
			if p.Finished() {
				slog.Info("Playback finished")
				close(statusDone)
				return
			}
		case <-deadline:
			slog.Info("Requested duration reached", "duration_sec", playDuration)
			p.Stop()
			close(statusDone)
			return
		case sig := <-sigChan:
			slog.Info("Signal received, stopping", "signal", sig)
			p.Stop()
			close(statusDone)
			return
		}
	}
}

// monitorPlayback logs playback status every 2 seconds for any PlaybackMonitor
func monitorPlayback(monitor types.PlaybackMonitor, done chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status := monitor.GetPlaybackStatus()

			posMilliseconds := int64(status.PositionSec * 1000)
			hours := posMilliseconds / 3600000
			minutes := (posMilliseconds % 3600000) / 60000
			seconds := (posMilliseconds % 60000) / 1000
			milliseconds := posMilliseconds % 1000
			positionStr := fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, milliseconds)

			formatStr := fmt.Sprintf("%dHz:%dch", status.SampleRate, status.Channels)

			slog.Info("Playback status",
				"file", status.FileName,
				"mode", status.Mode,
				"format", formatStr,
				"position", positionStr,
				"playing", status.Playing,
				"volume", fmt.Sprintf("%.2f", status.Volume))
		case <-done:
			return
		}
	}
}
