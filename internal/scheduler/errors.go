package scheduler

import "errors"

// ErrInvalidSchedule — параметры schedule некорректны.
var ErrInvalidSchedule = errors.New("invalid schedule")
