package stores

import "context"

// ScheduleCache maps schedule names to their owning task-definition names.
type ScheduleCache interface {
	// Get returns the task definition for a schedule name. ok is false on
	// a miss; a miss is not an error.
	Get(ctx context.Context, scheduleName string) (taskDefinition string, ok bool, err error)

	// Put records or replaces the task definition for a schedule name.
	Put(ctx context.Context, scheduleName, taskDefinition string) error

	// Remove drops the entry for a schedule name. Removing an absent name
	// is a no-op.
	Remove(ctx context.Context, scheduleName string) error

	// Entries returns every cached mapping.
	Entries(ctx context.Context) (map[string]string, error)

	// Close releases any backing resources.
	Close() error
}
