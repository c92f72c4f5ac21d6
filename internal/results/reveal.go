package results

import (
	"context"
	"time"
)

// DefaultRevealInterval is the per-character delay of the typing effect.
const DefaultRevealInterval = 30 * time.Millisecond

// Reveal emits text one character at a time, interval apart. A zero or
// negative interval emits the whole text at once. It returns ctx.Err() if
// ctx ends first; nothing is emitted after that.
func Reveal(ctx context.Context, text string, interval time.Duration, emit func(chunk string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if interval <= 0 {
		if text != "" {
			emit(text)
		}
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for _, r := range text {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		emit(string(r))
	}
	return nil
}
