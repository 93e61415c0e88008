package handler

const (
	errInternalServer  = "Internal server error"
	errJobNotFound     = "Job not found"
	errInvalidSchedule = "Schedule does not match job kind"
	errInvalidCron     = "Cron expression is invalid"
)
