// Package stores provides the schedule-name to task-definition cache.
//
// The cache is a best-effort optimization, not an authoritative store: the
// remote platform remains the source of truth, and a miss only costs an
// extra environment lookup during schedule listing. Implementations are
// not required to be safe for concurrent mutation of the same name.
package stores
