package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock is the time source for record timestamps. Ledger ordering keys are
// stored at millisecond precision, so implementations return UTC truncated
// to the millisecond.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)
