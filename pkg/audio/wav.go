// Package audio provides the small amount of audio plumbing narration needs:
// WAV encoding for raw PCM produced by generative backends, WAV header
// parsing, and the Player capability interface the fallback chain plays
// finished clips through.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Info describes a parsed WAV payload.
type Info struct {
	// SampleRate is samples per second (e.g., 24000).
	SampleRate int

	// Channels is the channel count (1 = mono).
	Channels int

	// DataOffset is the byte offset of the PCM data chunk within the file.
	DataOffset int
}

const wavHeaderSize = 44

// EncodeWAV wraps 16-bit little-endian PCM in a minimal RIFF/WAVE header.
// pcm must contain complete int16 samples.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	byteRate := sampleRate * channels * 2
	out := make([]byte, wavHeaderSize+len(pcm))

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(channels*2)) // block align
	binary.LittleEndian.PutUint16(out[34:36], 16)                 // bits per sample

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[wavHeaderSize:], pcm)

	return out
}

// ParseWAV walks the RIFF chunk list and returns the format and the offset of
// the data chunk. Chunks other than "fmt " and "data" are skipped.
func ParseWAV(wav []byte) (Info, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return Info{}, errors.New("audio: not a RIFF/WAVE payload")
	}

	var info Info
	haveFmt := false
	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if body+16 > len(wav) {
				return Info{}, errors.New("audio: truncated fmt chunk")
			}
			info.Channels = int(binary.LittleEndian.Uint16(wav[body+2 : body+4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(wav[body+4 : body+8]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return Info{}, errors.New("audio: data chunk before fmt chunk")
			}
			info.DataOffset = body
			return info, nil
		}

		// Chunks are word-aligned.
		offset = body + chunkSize + chunkSize%2
	}

	return Info{}, fmt.Errorf("audio: no data chunk in %d-byte payload", len(wav))
}
