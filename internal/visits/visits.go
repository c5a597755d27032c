// Package visits records redirect events on a short URL entry.
package visits

import (
	"time"

	"github.com/ArcaneCipher/tinyapp/internal/models"
)

// Tracker appends redirect events to an entry's analytics fields. It holds
// no state of its own; callers are responsible for serializing access to
// the entry.
type Tracker struct{}

func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordVisit logs one redirect by visitorID at the given time. The count
// and log grow on every call; the unique-visitor set only on the first
// visit from a given visitor.
func (t *Tracker) RecordVisit(entry *models.ShortURLEntry, visitorID string, now time.Time) {
	if entry.UniqueVisitors == nil {
		entry.UniqueVisitors = map[string]struct{}{}
	}
	entry.UniqueVisitors[visitorID] = struct{}{}
	entry.VisitLog = append(entry.VisitLog, models.Visit{
		VisitorID: visitorID,
		VisitedAt: now,
	})
	entry.VisitCount = len(entry.VisitLog)
}
