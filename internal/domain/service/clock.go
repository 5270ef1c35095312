package service

import "time"

// Clock supplies the current time to throttling logic.
type Clock interface {
	Now() time.Time
}
