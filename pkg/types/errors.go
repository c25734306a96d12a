package types

import "errors"

// Decode and playback error taxonomy, shared by the decoder packages, the
// loader and the player. Open failures are reported through the wrapped
// *fs.PathError from os.Open and carry no sentinel of their own.
var (
	// ErrProbe indicates the container format could not be recognized
	ErrProbe = errors.New("unrecognized container format")

	// ErrNoTrack indicates the container holds no decodable audio track
	ErrNoTrack = errors.New("no audio track found")

	// ErrUnknownFormat indicates the sample rate or channel count could not
	// be determined from the stream
	ErrUnknownFormat = errors.New("unknown sample rate or channel count")

	// ErrUnsupportedCodec indicates the container was recognized but no
	// decoder is available for the codec it carries
	ErrUnsupportedCodec = errors.New("unsupported codec")

	// ErrCorruptPacket marks a recoverable per-packet decode failure; the
	// decode loop skips the packet and continues
	ErrCorruptPacket = errors.New("corrupt packet")

	// ErrDevice indicates no output device exists or it could not be
	// configured
	ErrDevice = errors.New("audio output device unavailable")
)
