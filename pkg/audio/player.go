package audio

import (
	"context"
	"sync"
)

// Player is the capability the narration chain plays finished clips through.
// Play blocks until playback has completed (or failed), which is what gives
// the chain its "completion signal after audible output" ordering.
//
// The server's implementation is [Buffer] — the browser does the actual
// playback, so "playing" server-side means handing the clip to the response.
type Player interface {
	Play(ctx context.Context, wav []byte) error
}

// Buffer is a Player that captures the clip instead of playing it.
// Safe for concurrent use; the last played clip wins.
type Buffer struct {
	mu  sync.Mutex
	wav []byte
}

// Play implements Player. It stores wav and completes immediately, unless
// ctx is already cancelled.
func (b *Buffer) Play(ctx context.Context, wav []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.wav = wav
	b.mu.Unlock()
	return nil
}

// Bytes returns the most recently played clip, or nil.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.wav
}
