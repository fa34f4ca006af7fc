package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when triggering a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrSyncAlreadyInProgress is returned when a run is requested while one is active
	ErrSyncAlreadyInProgress = errors.New("marketplace sync already in progress")

	// ErrInvalidSchedule is returned for cron expressions robfig/cron cannot parse
	ErrInvalidSchedule = errors.New("invalid sync schedule")
)
