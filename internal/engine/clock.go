package engine

import "time"

// TimeSource supplies the unix-seconds timestamps that drive turn
// deadlines. The engine never reads the wall clock directly; tests
// substitute a manual source to make timeout behavior deterministic.
type TimeSource interface {
	Now() int64
}

// WallClock is the production time source.
type WallClock struct{}

// Now returns the current unix time in seconds.
func (WallClock) Now() int64 {
	return time.Now().Unix()
}
