// Package clock provides the production time source.
package clock

import (
	"time"

	"guardian/internal/domain/service"
)

type systemClock struct{}

// NewSystemClock returns a Clock reading the wall clock in UTC.
func NewSystemClock() service.Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
