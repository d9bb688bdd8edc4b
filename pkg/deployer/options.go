package deployer

import "time"

// Options configures the orchestrators. Loaded once at startup and
// read-only thereafter.
type Options struct {
	// Defaults are the process-wide deployment defaults.
	Defaults Defaults

	// GroupPrefix is prepended to every deployment id.
	GroupPrefix string

	// RandomizeNames appends a random word-pair suffix to deployment ids.
	RandomizeNames bool

	// CombinedProperties delivers application properties as one JSON blob
	// instead of discrete environment entries.
	CombinedProperties bool

	// SpaceGUID is the target space for job listings.
	SpaceGUID string

	// StagingTimeout caps the package and droplet readiness polls.
	StagingTimeout time.Duration

	// StartupTimeout caps the asynchronous push.
	StartupTimeout time.Duration

	// StatusTimeout caps one status query, including retries.
	StatusTimeout time.Duration

	// StatusRetryAttempts bounds the retry count within StatusTimeout.
	StatusRetryAttempts int

	// StatusRetryDelay is the initial backoff between status retries.
	StatusRetryDelay time.Duration

	// TaskStatusTimeout caps one task status query.
	TaskStatusTimeout time.Duration

	// ScheduleSSLRetries is the retry count for the SSL failure class
	// during schedule creation.
	ScheduleSSLRetries int

	// ScheduleTimeout, UnscheduleTimeout, and ListTimeout cap the
	// corresponding scheduler operations.
	ScheduleTimeout   time.Duration
	UnscheduleTimeout time.Duration
	ListTimeout       time.Duration
}

// DefaultOptions returns the option set used when the configuration
// supplies nothing.
func DefaultOptions() Options {
	return Options{
		Defaults: Defaults{
			MemoryMB:  1024,
			DiskMB:    1024,
			Instances: 1,
		},
		CombinedProperties:  true,
		StagingTimeout:      10 * time.Minute,
		StartupTimeout:      5 * time.Minute,
		StatusTimeout:       30 * time.Second,
		StatusRetryAttempts: 12,
		StatusRetryDelay:    500 * time.Millisecond,
		TaskStatusTimeout:   30 * time.Second,
		ScheduleSSLRetries:  3,
		ScheduleTimeout:     2 * time.Minute,
		UnscheduleTimeout:   2 * time.Minute,
		ListTimeout:         1 * time.Minute,
	}
}

// Readiness poll budgets for the staging sequence.
const (
	packagePollAttempts     = 50
	packagePollInitialDelay = 5 * time.Second
	dropletPollAttempts     = 50
	dropletPollInitialDelay = 10 * time.Second
	pollMaxDelay            = time.Minute
)
