package internal

import (
	"context"
	"time"
)

// DefaultRequestTimeout bounds one API request when none is configured.
const DefaultRequestTimeout = 10 * time.Second

// WithTimeout bounds ctx by d, falling back to DefaultRequestTimeout when d is
// zero or negative. An earlier deadline already on ctx still applies.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultRequestTimeout
	}
	return context.WithTimeout(ctx, d)
}
