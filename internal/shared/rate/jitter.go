package rate

import (
	"context"

	"go.uber.org/ratelimit"
)

// Jitter emits at most perSec ticks per second on a buffered channel.
// The buffer absorbs up to a tenth of a second of ticks while the reader is busy.
type Jitter struct {
	ch     chan struct{}
	l      ratelimit.Limiter
	perSec int
}

func NewJitter(ctx context.Context, perSec int) *Jitter {
	if perSec < 1 {
		perSec = 1
	}
	burst := max(perSec/10, 1)

	jitter := &Jitter{
		perSec: perSec,
		ch:     make(chan struct{}, burst),
		l:      ratelimit.New(perSec, ratelimit.WithoutSlack),
	}
	go jitter.provider(ctx)
	return jitter
}

func (l *Jitter) provider(ctx context.Context) {
	defer close(l.ch)
	for {
		l.l.Take()
		select {
		case <-ctx.Done():
			return
		case l.ch <- struct{}{}:
		}
	}
}

func (l *Jitter) Rate() int {
	return l.perSec
}

// Chan is closed once the context is done.
func (l *Jitter) Chan() <-chan struct{} {
	return l.ch
}
