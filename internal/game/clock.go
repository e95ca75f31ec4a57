package game

import "time"

// Clock supplies the timestamps that drive phase progression and swap
// cooldowns. Injected so tests can move time deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}
