package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const WAVHeaderSize = 44

var (
	ErrInvalidWAV          = errors.New("audio: invalid wav data")
	ErrUnsupportedChannels = errors.New("audio: unsupported channel count")
)

type WAVFormat struct {
	AudioFormat   uint16
	Channels      int
	SampleRate    int
	BitsPerSample int
}

// BuildWAVHeader returns the canonical 44-byte PCM header for dataLength bytes of audio.
func BuildWAVHeader(dataLength, sampleRate, channels, bitsPerSample int) []byte {
	h := make([]byte, WAVHeaderSize)
	blockAlign := channels * bitsPerSample / 8

	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+dataLength))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1)
	binary.LittleEndian.PutUint16(h[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(h[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:36], uint16(bitsPerSample))
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(dataLength))
	return h
}

// ParseWAV walks the RIFF chunk list and returns the format and the data chunk.
// Streaming encoders that leave the data length at zero get everything after the
// chunk header.
func ParseWAV(data []byte) (WAVFormat, []byte, error) {
	var format WAVFormat
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return format, nil, ErrInvalidWAV
	}

	haveFmt := false
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return format, nil, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
			}
			format.AudioFormat = binary.LittleEndian.Uint16(data[body:])
			format.Channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			format.SampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			format.BitsPerSample = int(binary.LittleEndian.Uint16(data[body+14:]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return format, nil, fmt.Errorf("%w: data before fmt", ErrInvalidWAV)
			}
			end := body + size
			if size == 0 || end > len(data) {
				end = len(data)
			}
			return format, data[body:end], nil
		}

		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	return format, nil, fmt.Errorf("%w: no data chunk", ErrInvalidWAV)
}

// ValidateChannels accepts mono and stereo only.
func ValidateChannels(n int) error {
	if n != 1 && n != 2 {
		return fmt.Errorf("%w: %d", ErrUnsupportedChannels, n)
	}
	return nil
}
