// Package cache holds the in-process schedule cache: range query results
// keyed by professional and date range, invalidated whenever a mutation for
// that professional commits.
package cache

import (
	"fmt"
	"sync"
	"time"

	"agendado/backend/internal/domain"
)

const dateLayout = "2006-01-02"

// Key derives the cache key for a professional's inclusive date range.
// Dates are fixed-width YYYY-MM-DD, so the delimiter cannot collide.
func Key(professionalID int64, rangeStart, rangeEnd time.Time) string {
	return fmt.Sprintf("%d:%s:%s", professionalID, rangeStart.Format(dateLayout), rangeEnd.Format(dateLayout))
}

type entry struct {
	professionalID int64
	generation     uint64
	appointments   []domain.Appointment
}

// ScheduleCache maps range query keys to appointment snapshots. Entries live
// until invalidated; there is no TTL or size bound. Each entry carries the
// per-professional generation it was fetched under, so a population racing an
// invalidation cannot re-introduce stale rows.
//
// Construct one per process with New and inject it into the services.
type ScheduleCache struct {
	mu          sync.RWMutex
	entries     map[string]entry
	generations map[int64]uint64
}

func New() *ScheduleCache {
	return &ScheduleCache{
		entries:     make(map[string]entry),
		generations: make(map[int64]uint64),
	}
}

// Get returns a copy of the snapshot stored under key, if any.
func (c *ScheduleCache) Get(key string) ([]domain.Appointment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return copyAppointments(e.appointments), true
}

// Generation returns the professional's current generation. Callers capture
// it before fetching from the backing store and pass it to Put.
func (c *ScheduleCache) Generation(professionalID int64) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generations[professionalID]
}

// Put inserts or replaces the entry for key. The write is discarded when
// generation is older than the professional's current one, meaning an
// invalidation happened while the snapshot was being fetched. Reports whether
// the entry was stored.
func (c *ScheduleCache) Put(key string, professionalID int64, generation uint64, appointments []domain.Appointment) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation < c.generations[professionalID] {
		return false
	}
	c.entries[key] = entry{
		professionalID: professionalID,
		generation:     generation,
		appointments:   copyAppointments(appointments),
	}
	return true
}

// InvalidateProfessional removes every entry belonging to professionalID and
// bumps its generation. Entries of other professionals are untouched.
func (c *ScheduleCache) InvalidateProfessional(professionalID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[professionalID]++
	for key, e := range c.entries {
		if e.professionalID == professionalID {
			delete(c.entries, key)
		}
	}
}

// Clear removes every entry.
func (c *ScheduleCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len reports the number of live entries.
func (c *ScheduleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func copyAppointments(in []domain.Appointment) []domain.Appointment {
	out := make([]domain.Appointment, len(in))
	copy(out, in)
	return out
}
