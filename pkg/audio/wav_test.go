package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
)

func TestEncodeWAV_ParseWAV_Roundtrip(t *testing.T) {
	t.Parallel()

	pcm := make([]byte, 480)
	for i := range pcm {
		pcm[i] = byte(i)
	}

	wav := EncodeWAV(pcm, 24000, 1)

	info, err := ParseWAV(wav)
	if err != nil {
		t.Fatalf("ParseWAV: %v", err)
	}
	if info.SampleRate != 24000 {
		t.Errorf("SampleRate = %d, want 24000", info.SampleRate)
	}
	if info.Channels != 1 {
		t.Errorf("Channels = %d, want 1", info.Channels)
	}
	if got := wav[info.DataOffset:]; !bytes.Equal(got, pcm) {
		t.Errorf("data chunk does not match source PCM")
	}
}

func TestEncodeWAV_Header(t *testing.T) {
	t.Parallel()

	wav := EncodeWAV(make([]byte, 100), 22050, 2)

	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("bad magic: % x", wav[:12])
	}
	if got := binary.LittleEndian.Uint32(wav[28:32]); got != 22050*2*2 {
		t.Errorf("byte rate = %d, want %d", got, 22050*2*2)
	}
	if got := binary.LittleEndian.Uint16(wav[32:34]); got != 4 {
		t.Errorf("block align = %d, want 4", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != 100 {
		t.Errorf("data size = %d, want 100", got)
	}
}

func TestParseWAV_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		wav  []byte
	}{
		{"empty", nil},
		{"truncated header", []byte("RIFF")},
		{"wrong magic", []byte("OGGS----WAVE")},
		{"no data chunk", EncodeWAV(nil, 24000, 1)[:36]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseWAV(tt.wav); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestBuffer_Play(t *testing.T) {
	t.Parallel()

	var b Buffer
	if err := b.Play(context.Background(), []byte("clip")); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if got := b.Bytes(); !bytes.Equal(got, []byte("clip")) {
		t.Errorf("Bytes() = %q", got)
	}
}

func TestBuffer_PlayCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var b Buffer
	if err := b.Play(ctx, []byte("clip")); err == nil {
		t.Error("expected a context error")
	}
	if b.Bytes() != nil {
		t.Errorf("cancelled play stored data: %q", b.Bytes())
	}
}
