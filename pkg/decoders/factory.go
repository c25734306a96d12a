package decoders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/drgolem/loopah/pkg/decoders/flac"
	"github.com/drgolem/loopah/pkg/decoders/mp3"
	"github.com/drgolem/loopah/pkg/decoders/vorbis"
	"github.com/drgolem/loopah/pkg/decoders/wav"
	"github.com/drgolem/loopah/pkg/types"
)

// NewDecoder creates and opens the appropriate decoder for fileName.
// The file extension is used as a format hint; when the extension is not
// recognized the file content is sniffed for a known magic number.
// Supports .mp3, .flac, .fla, .ogg/.oga and .wav.
// Returns an opened decoder ready for use, or an error if the format is
// unrecognized or the file cannot be opened.
func NewDecoder(fileName string) (types.AudioDecoder, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	decoder := decoderForExtension(ext)
	if decoder == nil {
		sniffed, err := sniffFormat(fileName)
		if err != nil {
			return nil, err
		}
		decoder = decoderForExtension(sniffed)
	}
	if decoder == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrProbe, fileName)
	}

	if err := decoder.Open(fileName); err != nil {
		return nil, fmt.Errorf("open %s: %w", fileName, err)
	}

	return decoder, nil
}

func decoderForExtension(ext string) types.AudioDecoder {
	switch ext {
	case ".mp3":
		return mp3.NewDecoder()
	case ".flac", ".fla":
		return flac.NewDecoder()
	case ".ogg", ".oga":
		return vorbis.NewDecoder()
	case ".wav":
		return wav.NewDecoder()
	}
	return nil
}

// sniffFormat reads the first bytes of the file and maps a known magic
// number to the matching extension key.
func sniffFormat(fileName string) (string, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", fileName, err)
	}
	defer f.Close()

	magic := make([]byte, 12)
	n, _ := f.Read(magic)
	magic = magic[:n]

	switch {
	case len(magic) >= 12 && string(magic[0:4]) == "RIFF" && string(magic[8:12]) == "WAVE":
		return ".wav", nil
	case len(magic) >= 4 && string(magic[0:4]) == "fLaC":
		return ".flac", nil
	case len(magic) >= 4 && string(magic[0:4]) == "OggS":
		return ".ogg", nil
	case len(magic) >= 3 && string(magic[0:3]) == "ID3":
		return ".mp3", nil
	case len(magic) >= 2 && magic[0] == 0xFF && magic[1]&0xE0 == 0xE0:
		// MPEG audio frame sync
		return ".mp3", nil
	}
	return "", fmt.Errorf("%w: %s", types.ErrProbe, fileName)
}
